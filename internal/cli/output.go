package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/agbru/fibqpe/internal/config"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/ui"
	"github.com/agbru/fibqpe/pkg/models"
)

// OutputConfig selects which sections of a result are printed.
type OutputConfig struct {
	// Verbose adds the raw outcome table.
	Verbose bool
	// Quiet prints one line per modulus.
	Quiet bool
}

// PrintExecutionConfig displays the batch about to run.
func PrintExecutionConfig(cfg config.AppConfig, limits quantum.Limits, out io.Writer) {
	moduli := make([]string, len(cfg.Moduli))
	for i, n := range cfg.Moduli {
		moduli[i] = strconv.FormatInt(n, 10)
	}
	seed := "random"
	if cfg.Seed >= 0 {
		seed = strconv.FormatInt(cfg.Seed, 10)
	}
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Estimating the period of F(k) mod %s%s%s with %s%d%s shots (seed %s), timeout %s%s%s.\n",
		ui.ColorBlue(), strings.Join(moduli, ", "), ui.ColorReset(),
		ui.ColorCyan(), cfg.Shots, ui.ColorReset(), seed,
		ui.ColorYellow(), cfg.Timeout, ui.ColorReset())
	fmt.Fprintf(out, "Simulation ceiling: %s%d%s qubits. Environment: %s%d%s logical processors, Go %s.\n",
		ui.ColorCyan(), limits.Ceiling(), ui.ColorReset(),
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(), runtime.Version())
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}

// DisplayResult prints the report of one run: the register sizes, the
// optional raw outcome table, the phase/period table, the period histogram
// and the classical check of every candidate.
func DisplayResult(out io.Writer, r models.EstimationResult, cfg OutputConfig) {
	if cfg.Quiet {
		DisplayQuietResult(out, r)
		return
	}
	fmt.Fprintf(out, "\n%s=== N = %d ===%s\n", ui.ColorBold(), r.Modulus, ui.ColorReset())
	fmt.Fprintf(out, "Registers: n=%s%d%s term qubits, t=%s%d%s counting qubits, %s%d%s qubits in total.\n",
		ui.ColorCyan(), r.TermQubits, ui.ColorReset(),
		ui.ColorCyan(), r.CountingQubits, ui.ColorReset(),
		ui.ColorCyan(), r.TotalQubits, ui.ColorReset())
	fmt.Fprintf(out, "Circuit: %d gates, %d non-zero amplitudes, simulated in %s%s%s (seed %d).\n",
		r.GateCount, r.Amplitudes, ui.ColorGreen(), formatMillis(r.DurationMS), ui.ColorReset(), r.Seed)

	if cfg.Verbose {
		displayCounts(out, r)
	}
	displayPhaseTable(out, r)
	displayHistogram(out, r)
	displayChecks(out, r)
}

// DisplayQuietResult prints "N <mode> <p1,p2,...>" on a single line.
func DisplayQuietResult(out io.Writer, r models.EstimationResult) {
	periods := make([]int, 0, len(r.Histogram))
	for p := range r.Histogram {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = strconv.Itoa(p)
	}
	fmt.Fprintf(out, "%d %d %s\n", r.Modulus, r.Mode, strings.Join(parts, ","))
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayCounts(out io.Writer, r models.EstimationResult) {
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	max := 0
	for _, k := range keys {
		if c := r.Counts[k]; c > max {
			max = c
		}
	}

	fmt.Fprintf(out, "\n%s--- Raw outcomes ---%s\n", ui.ColorBold(), ui.ColorReset())
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Bitstring\tCount\t")
	for _, k := range keys {
		c := r.Counts[k]
		fmt.Fprintf(tw, "%s\t%d\t%s%s%s\n", k, c, ui.ColorBar(), histogramBar(c, max, HistogramBarWidth), ui.ColorReset())
	}
	flush(tw, out)
}

func displayPhaseTable(out io.Writer, r models.EstimationResult) {
	fmt.Fprintf(out, "\n%s--- Phase estimates ---%s\n", ui.ColorBold(), ui.ColorReset())
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Bitstring\tValue\tPhase\tFraction\tPeriod\tCount")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%.6f\t%s\t%s%d%s\t%d\n",
			row.Bitstring, row.Value, row.Phase, row.Fraction,
			ui.ColorBlue(), row.Period, ui.ColorReset(), row.Count)
	}
	flush(tw, out)
}

func displayHistogram(out io.Writer, r models.EstimationResult) {
	periods := make([]int, 0, len(r.Histogram))
	total, max := 0, 0
	for p, c := range r.Histogram {
		periods = append(periods, p)
		total += c
		if c > max {
			max = c
		}
	}
	sort.Ints(periods)

	fmt.Fprintf(out, "\n%s--- Period histogram ---%s\n", ui.ColorBold(), ui.ColorReset())
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Period\tCount\tShare\t")
	for _, p := range periods {
		c := r.Histogram[p]
		share := 0.0
		if total > 0 {
			share = 100 * float64(c) / float64(total)
		}
		fmt.Fprintf(tw, "%d\t%d\t%5.1f%%\t%s%s%s\n", p, c, share, ui.ColorBar(), histogramBar(c, max, HistogramBarWidth), ui.ColorReset())
	}
	flush(tw, out)
	fmt.Fprintf(out, "Total: %d shots. Most frequent period: %s%d%s.\n", total, ui.ColorBlue(), r.Mode, ui.ColorReset())
}

func displayChecks(out io.Writer, r models.EstimationResult) {
	fmt.Fprintf(out, "\n%s--- Classical check (Pisano period %d) ---%s\n", ui.ColorBold(), r.Pisano, ui.ColorReset())
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Period\tF(k+r) ≡ F(k)\tExact")
	for _, c := range r.Checks {
		holds := fmt.Sprintf("%sno%s", ui.ColorYellow(), ui.ColorReset())
		if c.Holds {
			holds = fmt.Sprintf("%syes (k=%d)%s", ui.ColorGreen(), c.WitnessK, ui.ColorReset())
		}
		exact := "no"
		if c.Exact {
			exact = fmt.Sprintf("%syes%s", ui.ColorGreen(), ui.ColorReset())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.Period, holds, exact)
	}
	flush(tw, out)
}

func flush(tw *tabwriter.Writer, out io.Writer) {
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}
}

func formatMillis(ms float64) string {
	if ms < 1 {
		return fmt.Sprintf("%.0fµs", ms*1000)
	}
	if ms < 1000 {
		return fmt.Sprintf("%.1fms", ms)
	}
	return fmt.Sprintf("%.2fs", ms/1000)
}
