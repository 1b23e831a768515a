package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/store"
	"github.com/agbru/fibqpe/internal/testutil"
	"github.com/agbru/fibqpe/internal/ui"
	"github.com/agbru/fibqpe/pkg/models"
)

// newTestApp parses args after the program name, with no dotenv file and a
// fixed memory probe.
func newTestApp(t *testing.T, args ...string) *Application {
	t.Helper()
	var errBuf bytes.Buffer
	full := append([]string{"fibqpe", "-env-file", "", "-no-color"}, args...)
	a, err := New(full, &errBuf)
	if err != nil {
		t.Fatalf("New(%v) error: %v\n%s", args, err, errBuf.String())
	}
	a.Probe = func() quantum.Limits { return quantum.Limits{MaxQubits: 20} }
	return a
}

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("Valid args create application", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t, "-n", "3,6", "-shots", "10")
		if len(a.Config.Moduli) != 2 || a.Config.Moduli[1] != 6 || a.Config.Shots != 10 {
			t.Errorf("unexpected config: %+v", a.Config)
		}
		if a.Probe == nil {
			t.Error("Probe should not be nil")
		}
	})

	t.Run("Invalid args return error", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		if _, err := New([]string{"fibqpe", "-env-file", "", "-shots", "0"}, &errBuf); err == nil {
			t.Fatal("expected an error for -shots 0")
		}
		if !strings.Contains(errBuf.String(), "Configuration error:") {
			t.Errorf("stderr = %q", errBuf.String())
		}
	})

	t.Run("Help flag", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		_, err := New([]string{"fibqpe", "-h"}, &errBuf)
		if !IsHelpError(err) {
			t.Errorf("IsHelpError(%v) = false", err)
		}
	})
}

func TestRunQuiet(t *testing.T) {
	a := newTestApp(t, "-n", "3,6", "-shots", "40", "-seed", "1", "-q")
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d, output:\n%s", code, out.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "3 ") || !strings.HasPrefix(lines[1], "6 ") {
		t.Errorf("quiet output = %q", out.String())
	}
}

func TestRunFullReport(t *testing.T) {
	var errBuf bytes.Buffer
	a, err := New([]string{"fibqpe", "-env-file", "", "-n", "3", "-shots", "40", "-seed", "2"}, &errBuf)
	if err != nil {
		t.Fatal(err)
	}
	a.Probe = func() quantum.Limits { return quantum.Limits{MaxQubits: 20} }
	defer ui.InitTheme(true)

	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d, output:\n%s", code, out.String())
	}
	plain := testutil.StripAnsiCodes(out.String())
	for _, want := range []string{"--- Execution Configuration ---", "=== N = 3 ===", "Pisano period 8", "--- Summary ---"} {
		if !strings.Contains(plain, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunJSON(t *testing.T) {
	a := newTestApp(t, "-n", "3,100", "-shots", "20", "-seed", "5", "-max-qubits", "20", "-json")
	var out bytes.Buffer
	code := a.Run(context.Background(), &out)
	if code != apperrors.ExitErrorResource {
		t.Errorf("Run() = %d, want %d for a modulus above the ceiling", code, apperrors.ExitErrorResource)
	}
	var batch models.BatchResult
	if err := json.Unmarshal(out.Bytes(), &batch); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(batch.Results) != 1 || batch.Results[0].Modulus != 3 || batch.Results[0].Seed != 5 {
		t.Errorf("results = %+v", batch.Results)
	}
	if len(batch.Errors) != 1 || batch.Errors[0].Modulus != 100 {
		t.Errorf("errors = %+v", batch.Errors)
	}
}

func TestRunAboveCeiling(t *testing.T) {
	a := newTestApp(t, "-n", "100", "-max-qubits", "20", "-q")
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitErrorResource {
		t.Errorf("Run() = %d, want %d", code, apperrors.ExitErrorResource)
	}
}

func TestRunTimeout(t *testing.T) {
	a := newTestApp(t, "-n", "7", "-timeout", "1ns", "-q")
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitErrorTimeout {
		t.Errorf("Run() = %d, want %d", code, apperrors.ExitErrorTimeout)
	}
}

func TestRunRecordsHistoryAndReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	plotPath := filepath.Join(dir, "report.html")

	a := newTestApp(t, "-n", "3,6", "-shots", "30", "-seed", "4", "-history", dbPath, "-plot", plotPath)
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d, output:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "Report written to: "+plotPath) {
		t.Error("missing report notice")
	}

	page, err := os.ReadFile(plotPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "<html>") {
		t.Error("report is not an HTML page")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	runs, err := st.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("recorded %d runs, want 2", len(runs))
	}
}

func TestRunCapacityJSON(t *testing.T) {
	a := newTestApp(t, "-capacity", "-json", "-max-qubits", "20")
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d", code)
	}
	var resp models.CapacityResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ceiling != 20 || resp.MaxModulus != 7 {
		t.Errorf("capacity = %+v", resp)
	}
}

func TestRunCapacityText(t *testing.T) {
	a := newTestApp(t, "-capacity")
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d", code)
	}
	if !strings.Contains(out.String(), "Configured ceiling: 20 qubits, largest modulus 7.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSetupLifecycle(t *testing.T) {
	t.Parallel()
	ctx, lc := SetupLifecycle(context.Background(), 10*time.Millisecond)
	defer lc.Cleanup()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled after timeout")
	}

	ctx, lc = SetupLifecycle(context.Background(), time.Hour)
	lc.Cleanup()
	if ctx.Err() == nil {
		t.Error("Cleanup should cancel the context")
	}
	(&CancelFuncs{}).Cleanup()
}
