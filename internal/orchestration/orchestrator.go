// Package orchestration runs batches of phase estimation runs and turns their
// outcomes into verified reports.
package orchestration

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/fibqpe/internal/cli"
	"github.com/agbru/fibqpe/internal/config"
	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/fibonacci"
	"github.com/agbru/fibqpe/internal/period"
	"github.com/agbru/fibqpe/internal/qpe"
	"github.com/agbru/fibqpe/internal/ui"
	"github.com/agbru/fibqpe/pkg/models"
)

// Estimator is the part of qpe.Estimator the orchestrator needs.
type Estimator interface {
	Estimate(ctx context.Context, req qpe.Request) (*qpe.Outcome, error)
}

// RunResult is the outcome of one modulus of a batch, with its period table
// and classical checks. Outcome is nil when Err is set.
type RunResult struct {
	Index    int
	Modulus  int64
	Outcome  *qpe.Outcome
	Analysis period.Analysis
	Checks   []period.Check
	Pisano   uint64
	Duration time.Duration
	Err      error
}

const (
	// ProgressBufferMultiplier defines the buffer size multiplier for the
	// progress channel. A larger buffer reduces the likelihood of dropped
	// updates when the display is slow to consume them.
	ProgressBufferMultiplier = 64
	// MaxConcurrentRuns bounds how many states are alive at once. Each run
	// may plan for half of the available memory.
	MaxConcurrentRuns = 2
)

// ExecuteEstimations runs one estimation per configured modulus, at most
// MaxConcurrentRuns at a time, while progress is rendered on out. Results are
// returned in the order of cfg.Moduli; a failed run does not stop the others.
//
// Parameters:
//   - ctx: The context for managing cancellation and deadlines.
//   - est: The estimator executing each run.
//   - subject: The estimator's progress subject, or nil for no progress display.
//   - cfg: The application configuration (moduli, shots, seed, window).
//   - out: The io.Writer for displaying progress updates.
//
// Returns:
//   - []RunResult: One result per modulus.
func ExecuteEstimations(ctx context.Context, est Estimator, subject *qpe.ProgressSubject, cfg config.AppConfig, out io.Writer) []RunResult {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentRuns)
	results := make([]RunResult, len(cfg.Moduli))

	progressChan := make(chan qpe.ProgressUpdate, len(cfg.Moduli)*ProgressBufferMultiplier)
	var observer *qpe.ChannelObserver
	numDisplayed := 0
	if subject != nil {
		observer = qpe.NewChannelObserver(progressChan)
		subject.Register(observer)
		numDisplayed = len(cfg.Moduli)
	}

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, numDisplayed, out)

	for i, modulus := range cfg.Moduli {
		idx, n := i, modulus
		g.Go(func() error {
			start := time.Now()
			outcome, err := est.Estimate(ctx, qpe.Request{
				Modulus: n,
				Shots:   cfg.Shots,
				Seed:    cfg.SeedFor(idx),
				Index:   idx,
			})
			res := RunResult{Index: idx, Modulus: n, Err: err}
			if err == nil {
				res, res.Err = Evaluate(outcome, cfg.Window)
				res.Index = idx
			}
			res.Duration = time.Since(start)
			results[idx] = res
			return nil
		})
	}

	_ = g.Wait()
	if observer != nil {
		subject.Unregister(observer)
	}
	close(progressChan)
	displayWg.Wait()
	return results
}

// Evaluate recovers the period table of outcome and checks every candidate
// against the classical recurrence over window starting indices.
func Evaluate(outcome *qpe.Outcome, window int) (RunResult, error) {
	res := RunResult{Modulus: int64(outcome.Modulus), Outcome: outcome}
	analysis, err := period.Analyze(outcome.Counts, outcome.Sizes.CountingQubits)
	if err != nil {
		return res, apperrors.WrapError(err, "analyzing N=%d", outcome.Modulus)
	}
	res.Analysis = analysis
	res.Checks = analysis.CheckAll(outcome.Modulus, window)
	res.Pisano = fibonacci.PisanoPeriod(outcome.Modulus)
	return res, nil
}

// ModeHolds reports whether the most frequent candidate period passes the
// recurrence check.
func (r RunResult) ModeHolds() bool {
	mode, _ := r.Analysis.Mode()
	for _, c := range r.Checks {
		if c.Period == mode {
			return c.Holds
		}
	}
	return false
}

// Model converts a successful result into its JSON document.
func (r RunResult) Model() models.EstimationResult {
	o := r.Outcome
	rows := make([]models.PhaseRow, len(r.Analysis.Rows))
	for i, row := range r.Analysis.Rows {
		rows[i] = models.PhaseRow{
			Bitstring: row.Bitstring,
			Value:     row.Value,
			Phase:     row.Phase,
			Fraction:  row.Fraction,
			Period:    row.Period,
			Count:     row.Count,
		}
	}
	checks := make([]models.PeriodCheck, len(r.Checks))
	for i, c := range r.Checks {
		checks[i] = models.PeriodCheck{Period: c.Period, Count: c.Count, Holds: c.Holds, WitnessK: c.WitnessK, Exact: c.Exact}
	}
	mode, _ := r.Analysis.Mode()
	return models.EstimationResult{
		RunID:          o.RunID,
		Modulus:        o.Modulus,
		TermQubits:     o.Sizes.TermQubits,
		CountingQubits: o.Sizes.CountingQubits,
		TotalQubits:    o.Sizes.TotalQubits,
		Shots:          o.Shots,
		Seed:           o.Seed,
		GateCount:      o.GateCount,
		Amplitudes:     o.Amplitudes,
		DurationMS:     float64(o.Duration.Microseconds()) / 1000,
		Counts:         o.Counts,
		Rows:           rows,
		Histogram:      r.Analysis.Histogram,
		Mode:           mode,
		Pisano:         r.Pisano,
		Checks:         checks,
		CreatedAt:      time.Now().UTC(),
	}
}

// AnalyzeResults prints the report of every run and a summary table, or a
// single JSON document when cfg.JSONOutput is set.
//
// The exit code is that of the first failed run. Otherwise it is
// ExitErrorMismatch when the most frequent period of some run fails the
// recurrence check, and ExitSuccess when every run is consistent.
func AnalyzeResults(results []RunResult, cfg config.AppConfig, out io.Writer) int {
	exitCode := apperrors.ExitSuccess
	var batch models.BatchResult

	for _, res := range results {
		if res.Err != nil {
			batch.Errors = append(batch.Errors, models.RunError{Modulus: res.Modulus, Error: res.Err.Error()})
			var code int
			if !cfg.JSONOutput {
				fmt.Fprintf(out, "\n%s=== N = %d ===%s\n", ui.ColorBold(), res.Modulus, ui.ColorReset())
				code = apperrors.HandleEstimationError(res.Err, res.Duration, out, cli.CLIColorProvider{})
			} else {
				code = apperrors.HandleEstimationError(res.Err, res.Duration, io.Discard, nil)
			}
			if exitCode == apperrors.ExitSuccess {
				exitCode = code
			}
			continue
		}
		model := res.Model()
		batch.Results = append(batch.Results, model)
		if !cfg.JSONOutput {
			cli.DisplayResult(out, model, cli.OutputConfig{Verbose: cfg.Verbose, Quiet: cfg.Quiet})
		}
	}

	if exitCode == apperrors.ExitSuccess {
		for _, res := range results {
			if !res.ModeHolds() {
				exitCode = apperrors.ExitErrorMismatch
				break
			}
		}
	}

	if cfg.JSONOutput {
		if err := cli.WriteJSON(out, batch); err != nil {
			fmt.Fprintf(out, "Warning: failed to encode results: %v\n", err)
			return apperrors.ExitErrorGeneric
		}
		return exitCode
	}
	if !cfg.Quiet {
		printSummary(results, out)
	}
	return exitCode
}

func printSummary(results []RunResult, out io.Writer) {
	fmt.Fprintf(out, "\n--- Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "%sModulus%s\t%sMode%s\t%sPisano%s\t%sDuration%s\t%sStatus%s\n",
		ui.ColorBold(), ui.ColorReset(), ui.ColorBold(), ui.ColorReset(), ui.ColorBold(), ui.ColorReset(),
		ui.ColorBold(), ui.ColorReset(), ui.ColorBold(), ui.ColorReset())
	for _, res := range results {
		duration := cli.FormatExecutionDuration(res.Duration)
		if res.Err != nil {
			fmt.Fprintf(tw, "%s%d%s\t-\t-\t%s\t%s❌ Failure (%v)%s\n",
				ui.ColorBlue(), res.Modulus, ui.ColorReset(), duration, ui.ColorRed(), res.Err, ui.ColorReset())
			continue
		}
		mode, _ := res.Analysis.Mode()
		status := fmt.Sprintf("%s✅ Verified%s", ui.ColorGreen(), ui.ColorReset())
		if !res.ModeHolds() {
			status = fmt.Sprintf("%s⚠ Mode fails the recurrence check%s", ui.ColorYellow(), ui.ColorReset())
		}
		fmt.Fprintf(tw, "%s%d%s\t%d\t%d\t%s\t%s\n",
			ui.ColorBlue(), res.Modulus, ui.ColorReset(), mode, res.Pisano, duration, status)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}
}
