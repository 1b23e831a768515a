// This file contains environment variable utilities for configuration override.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// loadEnvFile loads path into the process environment. Variables already set
// win over the file. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt64 returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int64, or the default value if not set
// or invalid.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvInt returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int, or the default value if not set
// or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvBool returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as bool, or the default value if not set.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

// getEnvDuration returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as time.Duration, or the default value if not
// set or invalid. Accepts formats like "5m", "30s", "1h30m".
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, names ...string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				found = true
			}
		}
	})
	return found
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
//
// Supported environment variables:
//   - FIBQPE_N: Comma-separated moduli (e.g. "3,5,6")
//   - FIBQPE_SHOTS: Shots per modulus (int)
//   - FIBQPE_SEED: Sampling seed, -1 for random (int)
//   - FIBQPE_MAX_QUBITS: Simulation ceiling, 0 for auto (int)
//   - FIBQPE_WORKERS: Sampling goroutines (int)
//   - FIBQPE_WINDOW: Period verification window (int)
//   - FIBQPE_TIMEOUT: Batch timeout (duration: "5m", "30s")
//   - FIBQPE_PORT: Port for server mode (string)
//   - FIBQPE_PLOT: HTML histogram output path (string)
//   - FIBQPE_HISTORY: SQLite history path (string)
//   - FIBQPE_REDUCE, FIBQPE_SERVER, FIBQPE_JSON, FIBQPE_VERBOSE, FIBQPE_QUIET,
//     FIBQPE_NO_COLOR, FIBQPE_CAPACITY: booleans (true/false, 1/0, yes/no)
//
// Only FIBQPE_N reports a parse error; other malformed values keep the default.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) error {
	if err := applyModuliOverride(config, fs); err != nil {
		return err
	}
	applyNumericOverrides(config, fs)
	applyDurationOverrides(config, fs)
	applyStringOverrides(config, fs)
	applyBooleanOverrides(config, fs)
	return nil
}

func applyModuliOverride(config *AppConfig, fs *flag.FlagSet) error {
	if isFlagSet(fs, "n") {
		return nil
	}
	raw := getEnvString("N", "")
	if raw == "" {
		return nil
	}
	moduli, err := ParseModuli(raw)
	if err != nil {
		return fmt.Errorf("%sN: %w", EnvPrefix, err)
	}
	config.Moduli = moduli
	return nil
}

func applyNumericOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "shots") {
		config.Shots = getEnvInt("SHOTS", config.Shots)
	}
	if !isFlagSet(fs, "seed") {
		config.Seed = getEnvInt64("SEED", config.Seed)
	}
	if !isFlagSet(fs, "max-qubits") {
		config.MaxQubits = getEnvInt("MAX_QUBITS", config.MaxQubits)
	}
	if !isFlagSet(fs, "workers") {
		config.Workers = getEnvInt("WORKERS", config.Workers)
	}
	if !isFlagSet(fs, "window") {
		config.Window = getEnvInt("WINDOW", config.Window)
	}
}

func applyDurationOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "timeout") {
		config.Timeout = getEnvDuration("TIMEOUT", config.Timeout)
	}
}

func applyStringOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "port") {
		config.Port = getEnvString("PORT", config.Port)
	}
	if !isFlagSet(fs, "plot") {
		config.PlotFile = getEnvString("PLOT", config.PlotFile)
	}
	if !isFlagSet(fs, "history") {
		config.HistoryPath = getEnvString("HISTORY", config.HistoryPath)
	}
}

func applyBooleanOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "reduce") {
		config.ReducePowers = getEnvBool("REDUCE", config.ReducePowers)
	}
	if !isFlagSet(fs, "server") {
		config.ServerMode = getEnvBool("SERVER", config.ServerMode)
	}
	if !isFlagSet(fs, "json") {
		config.JSONOutput = getEnvBool("JSON", config.JSONOutput)
	}
	if !isFlagSet(fs, "v") {
		config.Verbose = getEnvBool("VERBOSE", config.Verbose)
	}
	if !isFlagSet(fs, "quiet", "q") {
		config.Quiet = getEnvBool("QUIET", config.Quiet)
	}
	if !isFlagSet(fs, "no-color") {
		config.NoColor = getEnvBool("NO_COLOR", config.NoColor)
	}
	if !isFlagSet(fs, "capacity") {
		config.ShowCapacity = getEnvBool("CAPACITY", config.ShowCapacity)
	}
}
