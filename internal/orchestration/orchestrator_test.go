package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agbru/fibqpe/internal/config"
	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/period"
	"github.com/agbru/fibqpe/internal/qpe"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/ui"
	"github.com/agbru/fibqpe/pkg/models"
)

// SpyEstimator records the requests it receives and answers with fixed
// counts over t counting qubits.
type SpyEstimator struct {
	mu       sync.Mutex
	requests []qpe.Request
	counts   quantum.Counts
	t        int
	errFor   map[int64]error
}

func (s *SpyEstimator) Estimate(_ context.Context, req qpe.Request) (*qpe.Outcome, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if err := s.errFor[req.Modulus]; err != nil {
		return nil, err
	}
	return &qpe.Outcome{
		RunID:   "spy",
		Modulus: uint64(req.Modulus),
		Sizes:   qpe.Sizes{Modulus: uint64(req.Modulus), CountingQubits: s.t},
		Shots:   s.counts.Total(),
		Counts:  s.counts,
	}, nil
}

func baseConfig(moduli ...int64) config.AppConfig {
	return config.AppConfig{
		Moduli:  moduli,
		Shots:   10,
		Seed:    100,
		Window:  period.DefaultWindow,
		Timeout: time.Minute,
	}
}

func TestExecuteEstimationsPassesRequests(t *testing.T) {
	t.Parallel()
	spy := &SpyEstimator{counts: quantum.Counts{"0000": 4, "1000": 6}, t: 4}
	results := ExecuteEstimations(context.Background(), spy, nil, baseConfig(3, 5, 6), io.Discard)

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("result %d error: %v", i, res.Err)
		}
		if res.Index != i || res.Modulus != []int64{3, 5, 6}[i] {
			t.Errorf("result %d = N%d index %d", i, res.Modulus, res.Index)
		}
		if res.Analysis.Histogram[1] != 4 || res.Analysis.Histogram[2] != 6 {
			t.Errorf("histogram = %v", res.Analysis.Histogram)
		}
	}
	if results[0].Pisano != 8 || results[2].Pisano != 24 {
		t.Errorf("Pisano = %d, %d", results[0].Pisano, results[2].Pisano)
	}

	seen := make(map[int64]uint64)
	for _, req := range spy.requests {
		if req.Shots != 10 || req.Seed == nil {
			t.Errorf("request %+v", req)
			continue
		}
		seen[req.Modulus] = *req.Seed
	}
	if seen[3] != 100 || seen[5] != 101 || seen[6] != 102 {
		t.Errorf("seeds = %v, want consecutive from 100", seen)
	}
}

func TestExecuteEstimationsKeepsFailures(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	spy := &SpyEstimator{counts: quantum.Counts{"00": 1}, t: 2, errFor: map[int64]error{5: boom}}
	results := ExecuteEstimations(context.Background(), spy, nil, baseConfig(3, 5), io.Discard)
	if results[0].Err != nil || !errors.Is(results[1].Err, boom) {
		t.Errorf("errors = %v, %v", results[0].Err, results[1].Err)
	}
}

func TestExecuteEstimationsWithRealEstimator(t *testing.T) {
	t.Parallel()
	est := qpe.NewEstimator()
	cfg := baseConfig(3, 6)
	cfg.Shots = 250
	results := ExecuteEstimations(context.Background(), est, est.Subject(), cfg, io.Discard)
	if est.Subject().ObserverCount() != 0 {
		t.Errorf("observer left registered")
	}
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("N=%d: %v", res.Modulus, res.Err)
		}
		if res.Analysis.Total != 250 {
			t.Errorf("N=%d: histogram total %d", res.Modulus, res.Analysis.Total)
		}
		for _, c := range res.Checks {
			if !c.Holds {
				t.Errorf("N=%d: period %d fails the recurrence check", res.Modulus, c.Period)
			}
		}
	}
	if code := AnalyzeResults(results, cfg, io.Discard); code != apperrors.ExitSuccess {
		t.Errorf("exit code = %d", code)
	}
}

func TestEvaluateRejectsBadWidth(t *testing.T) {
	t.Parallel()
	_, err := Evaluate(&qpe.Outcome{Modulus: 3, Sizes: qpe.Sizes{CountingQubits: 4}, Counts: quantum.Counts{"01": 2}}, 16)
	if err == nil {
		t.Error("expected an error for a 2-bit outcome on 4 counting qubits")
	}
}

func evaluated(t *testing.T, modulus uint64, counts quantum.Counts, width int) RunResult {
	t.Helper()
	res, err := Evaluate(&qpe.Outcome{RunID: "r", Modulus: modulus, Sizes: qpe.Sizes{Modulus: modulus, CountingQubits: width}, Counts: counts}, period.DefaultWindow)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestAnalyzeResults(t *testing.T) {
	ui.SetCurrentTheme(ui.NoColorTheme)
	ok := evaluated(t, 3, quantum.Counts{"0100": 7, "0000": 3}, 4)

	bad := ok
	bad.Checks = []period.Check{{Period: 4, Count: 7, Holds: false}}

	tests := []struct {
		name     string
		results  []RunResult
		cfg      config.AppConfig
		wantCode int
		contains []string
	}{
		{"Success", []RunResult{ok}, baseConfig(3), apperrors.ExitSuccess, []string{"=== N = 3 ===", "Summary", "✅ Verified"}},
		{"Mismatch", []RunResult{bad}, baseConfig(3), apperrors.ExitErrorMismatch, []string{"Mode fails the recurrence check"}},
		{"Resource error", []RunResult{ok, {Modulus: 1000, Err: apperrors.ResourceError{Qubits: 62, Limit: 30}}}, baseConfig(3, 1000),
			apperrors.ExitErrorResource, []string{"Status: Rejected", "❌ Failure"}},
		{"Timeout", []RunResult{{Modulus: 9, Err: context.DeadlineExceeded}}, baseConfig(9), apperrors.ExitErrorTimeout, []string{"Timeout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := AnalyzeResults(tt.results, tt.cfg, &buf); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			for _, s := range tt.contains {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output lacks %q:\n%s", s, buf.String())
				}
			}
		})
	}
}

func TestAnalyzeResultsJSON(t *testing.T) {
	ok := evaluated(t, 3, quantum.Counts{"0100": 7, "0000": 3}, 4)
	cfg := baseConfig(3, 4)
	cfg.JSONOutput = true
	var buf bytes.Buffer
	code := AnalyzeResults([]RunResult{ok, {Modulus: 4, Err: apperrors.InvalidModulusError{Modulus: 0}}}, cfg, &buf)
	if code != apperrors.ExitErrorConfig {
		t.Errorf("exit code = %d", code)
	}
	var batch models.BatchResult
	if err := json.Unmarshal(buf.Bytes(), &batch); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(batch.Results) != 1 || len(batch.Errors) != 1 {
		t.Fatalf("batch = %+v", batch)
	}
	r := batch.Results[0]
	if r.Mode != 4 || r.Pisano != 8 || r.Histogram[1] != 3 || len(r.Rows) != 2 {
		t.Errorf("result = %+v", r)
	}
}

func TestModel(t *testing.T) {
	t.Parallel()
	res := evaluated(t, 3, quantum.Counts{"0010": 2}, 4)
	m := res.Model()
	if m.CountingQubits != 4 || m.Rows[0].Fraction != "1/8" || m.Mode != 8 || !m.Checks[0].Exact {
		t.Errorf("Model() = %+v", m)
	}
}
