package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agbru/fibqpe/internal/cli"
	"github.com/agbru/fibqpe/internal/config"
	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/logging"
	"github.com/agbru/fibqpe/internal/orchestration"
	"github.com/agbru/fibqpe/internal/qpe"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/report"
	"github.com/agbru/fibqpe/internal/server"
	"github.com/agbru/fibqpe/internal/service"
	"github.com/agbru/fibqpe/internal/store"
	"github.com/agbru/fibqpe/internal/ui"
	"github.com/agbru/fibqpe/pkg/models"
	"github.com/rs/zerolog"
)

// Application represents the fibqpe application instance.
// It encapsulates the configuration and provides methods to run
// the application in its three modes (capacity report, server, CLI).
type Application struct {
	// Config holds the parsed application configuration.
	Config config.AppConfig
	// ErrWriter is the writer for error output (typically os.Stderr).
	ErrWriter io.Writer
	// Probe reads the memory-derived ceiling. It defaults to qpe.AutoLimits
	// and is replaced in tests.
	Probe func() quantum.Limits
}

// New creates a new Application instance by parsing command-line arguments.
// It validates the configuration and returns an error if parsing or validation fails.
//
// Parameters:
//   - args: The command-line arguments (typically os.Args).
//   - errWriter: The writer for error output.
//
// Returns:
//   - *Application: A new application instance.
//   - error: An error if configuration parsing or validation fails.
func New(args []string, errWriter io.Writer) (*Application, error) {
	programName := "fibqpe"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:    cfg,
		ErrWriter: errWriter,
		Probe:     qpe.AutoLimits,
	}, nil
}

// Run executes the application based on the configured mode.
//
// Parameters:
//   - ctx: The context for managing cancellation and timeouts.
//   - out: The writer for standard output.
//
// Returns:
//   - int: An exit code (0 for success, non-zero for errors).
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	// Initialize CLI theme (respects --no-color flag and NO_COLOR env var)
	ui.InitTheme(a.Config.NoColor)

	if a.Config.ShowCapacity {
		return a.runCapacity(out)
	}
	if a.Config.ServerMode {
		return a.runServer()
	}
	return a.runEstimate(ctx, out)
}

// limits resolves the simulation ceiling: --max-qubits, then the memory probe.
func (a *Application) limits() quantum.Limits {
	probe := a.Probe
	if probe == nil {
		probe = qpe.AutoLimits
	}
	return a.Config.Limits(probe)
}

// newEstimator builds the estimator shared by every run of the invocation.
func (a *Application) newEstimator(limits quantum.Limits, logger logging.Logger, observers ...qpe.ProgressObserver) *qpe.Estimator {
	opts := []qpe.Option{
		qpe.WithLimits(limits),
		qpe.WithWorkers(a.Config.Workers),
		qpe.WithBuildOptions(qpe.BuildOptions{ReducePowers: a.Config.ReducePowers}),
		qpe.WithLogger(logger),
	}
	for _, o := range observers {
		opts = append(opts, qpe.WithObserver(o))
	}
	return qpe.NewEstimator(opts...)
}

// cliLogger logs warnings to ErrWriter. With --verbose it logs debug output
// and the simulation progress of every run.
func (a *Application) cliLogger() (logging.Logger, []qpe.ProgressObserver) {
	if !a.Config.Verbose {
		return logging.NewLevelLogger(a.ErrWriter, "qpe", zerolog.WarnLevel), nil
	}
	logger := logging.NewLevelLogger(a.ErrWriter, "qpe", zerolog.DebugLevel)
	return logger, []qpe.ProgressObserver{qpe.NewLoggingObserver(logger.Zerolog(), 0.25)}
}

// openHistory opens the run history when --history is set.
func (a *Application) openHistory() (*store.Store, error) {
	if a.Config.HistoryPath == "" {
		return nil, nil
	}
	return store.Open(a.Config.HistoryPath)
}

// runCapacity prints the largest simulation this host can take on.
func (a *Application) runCapacity(out io.Writer) int {
	limits := a.limits()
	resp := models.CapacityResponse{
		Ceiling:    limits.Ceiling(),
		MaxModulus: qpe.MaxModulusFor(limits.Ceiling()),
	}
	c, err := qpe.ProbeCapacity()
	if err == nil {
		resp.AvailableBytes = c.AvailableBytes
		resp.MaxQubits = c.MaxQubits
	}

	if a.Config.JSONOutput {
		if err := cli.WriteJSON(out, resp); err != nil {
			return apperrors.ExitErrorGeneric
		}
		return apperrors.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(out, "System memory: unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(out, "System memory: %s\n", c)
	}
	fmt.Fprintf(out, "Configured ceiling: %s%d%s qubits, largest modulus %s%d%s.\n",
		ui.ColorCyan(), resp.Ceiling, ui.ColorReset(),
		ui.ColorCyan(), resp.MaxModulus, ui.ColorReset())
	return apperrors.ExitSuccess
}

// runServer starts the HTTP server mode.
func (a *Application) runServer() int {
	limits := a.limits()
	logger := logging.NewLogger(os.Stdout, "qpe")

	history, err := a.openHistory()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "History error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	opts := service.Options{Limits: limits, Window: a.Config.Window, Logger: logger}
	if history != nil {
		defer history.Close()
		opts.History = history
	}

	est := a.newEstimator(limits, logger, qpe.NewMetricsObserver())
	svc := service.NewEstimationService(est, opts)
	srv := server.NewServer(svc, a.Config)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(a.ErrWriter, "Server error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

// runEstimate orchestrates the execution of the CLI estimation command.
func (a *Application) runEstimate(ctx context.Context, out io.Writer) int {
	ctx, lifecycle := SetupLifecycle(ctx, a.Config.Timeout)
	defer lifecycle.Cleanup()

	limits := a.limits()
	logger, observers := a.cliLogger()
	est := a.newEstimator(limits, logger, observers...)

	interactive := !a.Config.JSONOutput && !a.Config.Quiet
	if interactive {
		cli.PrintExecutionConfig(a.Config, limits, out)
	}

	// In quiet and JSON modes no progress is displayed.
	progressOut := io.Writer(io.Discard)
	var subject *qpe.ProgressSubject
	if interactive {
		progressOut = out
		subject = est.Subject()
	}

	results := orchestration.ExecuteEstimations(ctx, est, subject, a.Config, progressOut)
	exitCode := orchestration.AnalyzeResults(results, a.Config, out)

	var succeeded []models.EstimationResult
	for _, res := range results {
		if res.Err == nil {
			succeeded = append(succeeded, res.Model())
		}
	}
	if err := a.recordHistory(ctx, succeeded); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error recording history: %v\n", err)
		if exitCode == apperrors.ExitSuccess {
			exitCode = apperrors.ExitErrorGeneric
		}
	}
	if err := a.writeReport(succeeded, interactive, out); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error writing report: %v\n", err)
		if exitCode == apperrors.ExitSuccess {
			exitCode = apperrors.ExitErrorGeneric
		}
	}
	return exitCode
}

func (a *Application) recordHistory(ctx context.Context, results []models.EstimationResult) error {
	if a.Config.HistoryPath == "" || len(results) == 0 {
		return nil
	}
	history, err := a.openHistory()
	if err != nil {
		return err
	}
	defer history.Close()
	// The batch context may already be past its deadline.
	ctx = context.WithoutCancel(ctx)
	for _, r := range results {
		if err := history.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) writeReport(results []models.EstimationResult, announce bool, out io.Writer) error {
	if a.Config.PlotFile == "" || len(results) == 0 {
		return nil
	}
	if err := report.WriteFile(a.Config.PlotFile, results); err != nil {
		return err
	}
	if announce {
		fmt.Fprintf(out, "\n%s✓ Report written to: %s%s%s\n",
			ui.ColorGreen(), ui.ColorCyan(), a.Config.PlotFile, ui.ColorReset())
	}
	return nil
}

// IsHelpError checks if the error is a help flag error (--help was used).
// This is useful for determining if the application should exit with success
// after displaying help text.
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
