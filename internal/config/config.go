// Package config provides the configuration management for the fibqpe
// application. It defines the configuration structure, parses command-line
// flags, applies environment overrides, and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/quantum"
)

const (
	// EnvPrefix is the prefix for all environment variables read by fibqpe.
	EnvPrefix = "FIBQPE_"
)

// Default configuration values.
// These can be overridden via command-line flags or environment variables.
const (
	// DefaultModulus is the modulus estimated when -n is not given.
	DefaultModulus int64 = 6
	// DefaultShots is the number of measurement shots per run.
	DefaultShots = 250
	// DefaultSeed asks for a freshly drawn seed.
	DefaultSeed int64 = -1
	// DefaultTimeout bounds a whole batch of runs.
	DefaultTimeout = 5 * time.Minute
	// DefaultPort is the default server port.
	DefaultPort = "8080"
	// DefaultEnvFile is the dotenv file read at startup when present.
	DefaultEnvFile = ".env"
	// DefaultWindow is the number of starting indices used to verify periods.
	DefaultWindow = 16
)

// AppConfig aggregates the application's configuration parameters.
type AppConfig struct {
	// Moduli lists the N values to estimate, in order.
	Moduli []int64
	// Shots is the number of measurement shots per run.
	Shots int
	// Seed is the sampling seed; -1 draws a fresh one per run.
	Seed int64
	// MaxQubits is the simulation ceiling; 0 derives it from system memory.
	MaxQubits int
	// Workers bounds the sampling goroutines; 0 uses GOMAXPROCS.
	Workers int
	// Timeout sets the maximum duration of the batch.
	Timeout time.Duration
	// ReducePowers shortens controlled powers modulo the Pisano period.
	ReducePowers bool
	// Window is how many starting indices the period check tries.
	Window int
	// JSONOutput prints results as JSON.
	JSONOutput bool
	// Quiet prints only the recovered periods.
	Quiet bool
	// Verbose adds the raw outcome table and debug logs.
	Verbose bool
	// NoColor disables colored output. NO_COLOR is also honored.
	NoColor bool
	// ServerMode starts the HTTP API instead of running a batch.
	ServerMode bool
	// Port is the listening port in server mode.
	Port string
	// PlotFile, when set, receives an HTML page with the histograms.
	PlotFile string
	// HistoryPath, when set, is the SQLite database storing every run.
	HistoryPath string
	// ShowCapacity prints the simulation capacity of the host and exits.
	ShowCapacity bool
	// EnvFile is the dotenv file loaded before environment overrides.
	EnvFile string
}

// Limits returns the simulation ceiling, probing memory when MaxQubits is 0
// through probe.
func (c AppConfig) Limits(probe func() quantum.Limits) quantum.Limits {
	if c.MaxQubits > 0 {
		return quantum.Limits{MaxQubits: c.MaxQubits}
	}
	if probe != nil {
		return probe()
	}
	return quantum.Limits{MaxQubits: quantum.DefaultMaxQubits}
}

// SeedFor returns the seed of the i-th run, or nil when seeds are drawn
// freshly. Runs in one batch get consecutive seeds.
func (c AppConfig) SeedFor(i int) *uint64 {
	if c.Seed < 0 {
		return nil
	}
	s := uint64(c.Seed) + uint64(i)
	return &s
}

// Validate checks the semantic consistency of the configuration.
func (c AppConfig) Validate() error {
	if len(c.Moduli) == 0 && !c.ServerMode && !c.ShowCapacity {
		return apperrors.NewConfigError("at least one modulus is required")
	}
	for _, n := range c.Moduli {
		if n <= 0 {
			return apperrors.NewConfigError("modulus must be a positive integer, got %d", n)
		}
	}
	if c.Shots <= 0 {
		return apperrors.NewConfigError("shot count must be strictly positive, got %d", c.Shots)
	}
	if c.Seed < -1 {
		return apperrors.NewConfigError("seed must be -1 (random) or non-negative, got %d", c.Seed)
	}
	if c.MaxQubits < 0 || c.MaxQubits > quantum.HardMaxQubits {
		return apperrors.NewConfigError("max-qubits must be between 0 (auto) and %d, got %d", quantum.HardMaxQubits, c.MaxQubits)
	}
	if c.Workers < 0 {
		return apperrors.NewConfigError("workers cannot be negative: %d", c.Workers)
	}
	if c.Window <= 0 {
		return apperrors.NewConfigError("verification window must be strictly positive, got %d", c.Window)
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("timeout value must be strictly positive")
	}
	if c.JSONOutput && c.Quiet {
		return apperrors.NewConfigError("-json and -quiet are mutually exclusive")
	}
	return nil
}

// moduliValue parses a comma-separated list of moduli into a slice.
type moduliValue struct {
	target *[]int64
}

func (v moduliValue) String() string {
	if v.target == nil {
		return ""
	}
	parts := make([]string, len(*v.target))
	for i, n := range *v.target {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, ",")
}

func (v moduliValue) Set(s string) error {
	moduli, err := ParseModuli(s)
	if err != nil {
		return err
	}
	*v.target = moduli
	return nil
}

// ParseModuli parses "3,5,6" into its moduli. Whitespace around entries is
// ignored; duplicates are kept.
func ParseModuli(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid modulus %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("empty modulus list")
	}
	return out, nil
}

// ParseConfig parses the command-line arguments into an AppConfig. The
// dotenv file is loaded first, then FIBQPE_ variables fill in every flag
// not given on the command line, and the result is validated.
//
// Parameters:
//   - programName: The name of the program, used in the usage message.
//   - args: The command-line arguments (typically os.Args[1:]).
//   - errorWriter: Where parsing errors and usage information are printed.
//
// Returns:
//   - AppConfig: The populated configuration struct.
//   - error: An error if flag parsing or validation fails.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)

	config := AppConfig{Moduli: []int64{DefaultModulus}}
	fs.Var(moduliValue{&config.Moduli}, "n", "Comma-separated moduli N to estimate (e.g. 3,5,6).")
	fs.IntVar(&config.Shots, "shots", DefaultShots, "Number of measurement shots per modulus.")
	fs.Int64Var(&config.Seed, "seed", DefaultSeed, "Sampling seed (-1 for a random seed).")
	fs.IntVar(&config.MaxQubits, "max-qubits", 0, "Simulation ceiling in qubits (0 derives it from free memory).")
	fs.IntVar(&config.Workers, "workers", 0, "Sampling goroutines per run (0 uses all CPUs).")
	fs.DurationVar(&config.Timeout, "timeout", DefaultTimeout, "Maximum execution time for the batch.")
	fs.BoolVar(&config.ReducePowers, "reduce", false, "Reduce controlled powers modulo the Pisano period.")
	fs.IntVar(&config.Window, "window", DefaultWindow, "Starting indices tried when checking a period.")
	fs.BoolVar(&config.JSONOutput, "json", false, "Output results in JSON format.")
	fs.BoolVar(&config.Quiet, "quiet", false, "Quiet mode - only the recovered periods.")
	fs.BoolVar(&config.Quiet, "q", false, "Quiet mode (shorthand).")
	fs.BoolVar(&config.Verbose, "v", false, "Show the raw outcome table and debug logs.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output (also respects NO_COLOR env var).")
	fs.BoolVar(&config.ServerMode, "server", false, "Start in HTTP server mode.")
	fs.StringVar(&config.Port, "port", DefaultPort, "Port to listen on in server mode.")
	fs.StringVar(&config.PlotFile, "plot", "", "Write an HTML page with the histograms to this path.")
	fs.StringVar(&config.HistoryPath, "history", "", "SQLite database recording every run.")
	fs.BoolVar(&config.ShowCapacity, "capacity", false, "Print the largest simulatable modulus and exit.")
	fs.StringVar(&config.EnvFile, "env-file", DefaultEnvFile, "Dotenv file loaded before reading FIBQPE_ variables.")

	setCustomUsage(fs)

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}

	if err := loadEnvFile(config.EnvFile); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		return AppConfig{}, apperrors.NewConfigError("%v", err)
	}
	if err := applyEnvOverrides(&config, fs); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		return AppConfig{}, apperrors.NewConfigError("%v", err)
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		fs.Usage()
		return AppConfig{}, err
	}
	return config, nil
}
