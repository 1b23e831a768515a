package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agbru/fibqpe/internal/config"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/ui"
	"github.com/agbru/fibqpe/pkg/models"
)

func sampleResult() models.EstimationResult {
	return models.EstimationResult{
		RunID:          "run-1",
		Modulus:        3,
		TermQubits:     2,
		CountingQubits: 4,
		TotalQubits:    14,
		Shots:          10,
		Seed:           5,
		GateCount:      900,
		Amplitudes:     32,
		DurationMS:     12.5,
		Counts:         map[string]int{"0000": 2, "0010": 3, "1000": 5},
		Rows: []models.PhaseRow{
			{Bitstring: "0000", Value: 0, Phase: 0, Fraction: "0/1", Period: 1, Count: 2},
			{Bitstring: "0010", Value: 2, Phase: 0.125, Fraction: "1/8", Period: 8, Count: 3},
			{Bitstring: "1000", Value: 8, Phase: 0.5, Fraction: "1/2", Period: 2, Count: 5},
		},
		Histogram: map[int]int{1: 2, 2: 5, 8: 3},
		Mode:      2,
		Pisano:    8,
		Checks: []models.PeriodCheck{
			{Period: 1, Count: 2, Holds: true, WitnessK: 1},
			{Period: 2, Count: 5, Holds: true, WitnessK: 3},
			{Period: 8, Count: 3, Holds: true, Exact: true},
		},
	}
}

func TestDisplayResult(t *testing.T) {
	ui.SetCurrentTheme(ui.NoColorTheme)
	tests := []struct {
		name     string
		cfg      OutputConfig
		contains []string
		excludes []string
	}{
		{
			name:     "Default",
			cfg:      OutputConfig{},
			contains: []string{"=== N = 3 ===", "n=2 term qubits", "Phase estimates", "0.125000", "1/8", "Period histogram", " 50.0%", "Most frequent period: 2", "Pisano period 8", "yes (k=3)"},
			excludes: []string{"Raw outcomes"},
		},
		{
			name:     "Verbose",
			cfg:      OutputConfig{Verbose: true},
			contains: []string{"Raw outcomes", "Bitstring  Count"},
		},
		{
			name:     "Quiet",
			cfg:      OutputConfig{Quiet: true},
			contains: []string{"3 2 1,2,8\n"},
			excludes: []string{"==="},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			DisplayResult(&buf, sampleResult(), tt.cfg)
			out := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output lacks %q:\n%s", s, out)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(out, s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var back models.EstimationResult
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Histogram[2] != 5 || back.Pisano != 8 || len(back.Rows) != 3 {
		t.Errorf("decoded %+v", back)
	}
}

func TestPrintExecutionConfig(t *testing.T) {
	ui.SetCurrentTheme(ui.NoColorTheme)
	var buf bytes.Buffer
	cfg := config.AppConfig{Moduli: []int64{3, 6}, Shots: 250, Seed: 7, Timeout: time.Minute}
	PrintExecutionConfig(cfg, quantum.Limits{MaxQubits: 24}, &buf)
	for _, s := range []string{"mod 3, 6", "250 shots (seed 7)", "24 qubits"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("output lacks %q:\n%s", s, buf.String())
		}
	}
}

func TestFormatMillis(t *testing.T) {
	t.Parallel()
	for ms, want := range map[float64]string{0.25: "250µs", 12.5: "12.5ms", 2500: "2.50s"} {
		if got := formatMillis(ms); got != want {
			t.Errorf("formatMillis(%v) = %q, want %q", ms, got, want)
		}
	}
}
