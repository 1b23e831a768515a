package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/quantum"
)

// noEnvFile keeps tests from reading a stray .env in the package directory.
var noEnvFile = []string{"-env-file", ""}

func parse(t *testing.T, args ...string) (AppConfig, error) {
	t.Helper()
	var buf bytes.Buffer
	return ParseConfig("fibqpe", append(append([]string{}, noEnvFile...), args...), &buf)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Moduli, []int64{DefaultModulus}) {
		t.Errorf("Moduli = %v, want [%d]", cfg.Moduli, DefaultModulus)
	}
	if cfg.Shots != DefaultShots {
		t.Errorf("Shots = %d, want %d", cfg.Shots, DefaultShots)
	}
	if cfg.Seed != DefaultSeed || cfg.SeedFor(0) != nil {
		t.Errorf("Seed = %d, want random", cfg.Seed)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Window != DefaultWindow || cfg.Port != DefaultPort {
		t.Errorf("Window = %d, Port = %q", cfg.Window, cfg.Port)
	}
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parse(t,
		"-n", "3, 5,6", "-shots", "500", "-seed", "42", "-max-qubits", "24",
		"-workers", "2", "-timeout", "30s", "-reduce", "-json", "-plot", "out.html",
		"-history", "runs.db", "-window", "8")
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Moduli, []int64{3, 5, 6}) {
		t.Errorf("Moduli = %v", cfg.Moduli)
	}
	if cfg.Shots != 500 || cfg.MaxQubits != 24 || cfg.Workers != 2 || cfg.Window != 8 {
		t.Errorf("numeric flags not applied: %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second || !cfg.ReducePowers || !cfg.JSONOutput {
		t.Errorf("timeout/bool flags not applied: %+v", cfg)
	}
	if cfg.PlotFile != "out.html" || cfg.HistoryPath != "runs.db" {
		t.Errorf("paths not applied: %+v", cfg)
	}
	if s := cfg.SeedFor(2); s == nil || *s != 44 {
		t.Errorf("SeedFor(2) = %v, want 44", s)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Zero modulus", []string{"-n", "0"}},
		{"Negative modulus", []string{"-n", "4,-2"}},
		{"Zero shots", []string{"-shots", "0"}},
		{"Seed below -1", []string{"-seed", "-2"}},
		{"Too many qubits", []string{"-max-qubits", "63"}},
		{"Negative workers", []string{"-workers", "-1"}},
		{"Zero timeout", []string{"-timeout", "0s"}},
		{"Zero window", []string{"-window", "0"}},
		{"JSON and quiet", []string{"-json", "-quiet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := ParseConfig("fibqpe", append(append([]string{}, noEnvFile...), tt.args...), &buf)
			var cfgErr apperrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
			if !strings.Contains(buf.String(), "Configuration error:") {
				t.Errorf("no error message written: %q", buf.String())
			}
		})
	}
}

func TestParseConfigMalformedModuli(t *testing.T) {
	for _, raw := range []string{"abc", ",", "3,x"} {
		if _, err := parse(t, "-n", raw); err == nil {
			t.Errorf("-n %q accepted", raw)
		}
	}
}

func TestParseConfigUsage(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	_, err := ParseConfig("fibqpe", []string{"-h"}, &buf)
	if err == nil {
		t.Fatal("expected flag.ErrHelp")
	}
	out := buf.String()
	for _, want := range []string{"Fibonacci Period Estimator", "-shots", "(default 250)", "FIBQPE_"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("usage contains escape codes despite NO_COLOR")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FIBQPE_N", "5,7")
	t.Setenv("FIBQPE_SHOTS", "64")
	t.Setenv("FIBQPE_SEED", "9")
	t.Setenv("FIBQPE_TIMEOUT", "1m")
	t.Setenv("FIBQPE_PORT", "9090")
	t.Setenv("FIBQPE_REDUCE", "yes")
	t.Setenv("FIBQPE_VERBOSE", "1")
	t.Setenv("FIBQPE_WORKERS", "not-a-number")

	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Moduli, []int64{5, 7}) || cfg.Shots != 64 || cfg.Seed != 9 {
		t.Errorf("numeric overrides not applied: %+v", cfg)
	}
	if cfg.Timeout != time.Minute || cfg.Port != "9090" || !cfg.ReducePowers || !cfg.Verbose {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Workers != 0 {
		t.Errorf("malformed FIBQPE_WORKERS changed Workers to %d", cfg.Workers)
	}
}

func TestFlagsWinOverEnv(t *testing.T) {
	t.Setenv("FIBQPE_SHOTS", "64")
	t.Setenv("FIBQPE_N", "bogus")
	t.Setenv("FIBQPE_QUIET", "true")
	cfg, err := parse(t, "-shots", "100", "-n", "3", "-q=false")
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if cfg.Shots != 100 || cfg.Moduli[0] != 3 || cfg.Quiet {
		t.Errorf("flags did not win: %+v", cfg)
	}
}

func TestEnvModuliError(t *testing.T) {
	t.Setenv("FIBQPE_N", "3,,x")
	if _, err := parse(t); err == nil {
		t.Error("malformed FIBQPE_N accepted")
	}
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("FIBQPE_SHOTS=77\nFIBQPE_HISTORY=from-file.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FIBQPE_HISTORY", "from-env.db")
	t.Cleanup(func() { os.Unsetenv("FIBQPE_SHOTS") })

	var buf bytes.Buffer
	cfg, err := ParseConfig("fibqpe", []string{"-env-file", path}, &buf)
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if cfg.Shots != 77 {
		t.Errorf("Shots = %d, want 77 from the env file", cfg.Shots)
	}
	if cfg.HistoryPath != "from-env.db" {
		t.Errorf("HistoryPath = %q, process environment must win", cfg.HistoryPath)
	}

	if _, err := ParseConfig("fibqpe", []string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}, &buf); err != nil {
		t.Errorf("missing env file: %v", err)
	}
}

func TestLimits(t *testing.T) {
	t.Parallel()
	probe := func() quantum.Limits { return quantum.Limits{MaxQubits: 21} }
	if got := (AppConfig{MaxQubits: 12}).Limits(probe); got.MaxQubits != 12 {
		t.Errorf("explicit ceiling = %d", got.MaxQubits)
	}
	if got := (AppConfig{}).Limits(probe); got.MaxQubits != 21 {
		t.Errorf("probed ceiling = %d", got.MaxQubits)
	}
	if got := (AppConfig{}).Limits(nil); got.MaxQubits != quantum.DefaultMaxQubits {
		t.Errorf("fallback ceiling = %d", got.MaxQubits)
	}
}

func TestValidateServerModeWithoutModuli(t *testing.T) {
	t.Parallel()
	cfg := AppConfig{ServerMode: true, Shots: 1, Window: 1, Timeout: time.Second}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	cfg.ServerMode = false
	if err := cfg.Validate(); err == nil {
		t.Error("empty moduli accepted outside server mode")
	}
}
