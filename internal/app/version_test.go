package app

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/agbru/fibqpe/internal/quantum"
)

func TestHasVersionFlag(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"Empty args", []string{}, false},
		{"No version flag", []string{"-n", "6"}, false},
		{"Long version flag", []string{"--version"}, true},
		{"Short version flag", []string{"-V"}, true},
		{"Version flag with dash", []string{"-version"}, true},
		{"Version flag in middle", []string{"-n", "6", "--version", "-shots", "10"}, true},
		{"Similar but not version", []string{"-v"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasVersionFlag(tc.args); got != tc.expected {
				t.Errorf("HasVersionFlag(%v) = %v, want %v", tc.args, got, tc.expected)
			}
		})
	}
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	PrintVersion(&buf)

	output := buf.String()
	for _, want := range []string{"fibqpe " + Version, "Commit:", "Built:", runtime.Version(), "OS/Arch:", "30 qubits by default, 62 at most"} {
		if !strings.Contains(output, want) {
			t.Errorf("PrintVersion output missing %q:\n%s", want, output)
		}
	}
}

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()
	info := GetVersionInfo()
	if info.Version != Version || info.Commit != Commit || info.BuildDate != BuildDate {
		t.Errorf("build fields = %+v", info)
	}
	if info.GoVersion != runtime.Version() || info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("runtime fields = %+v", info)
	}
	if info.DefaultCeiling != quantum.DefaultMaxQubits || info.HardCeiling != quantum.HardMaxQubits {
		t.Errorf("ceilings = %d/%d", info.DefaultCeiling, info.HardCeiling)
	}
}
