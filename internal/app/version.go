// Package app wires configuration, the estimator, the run history and the
// HTTP server into the fibqpe command.
package app

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/fibqpe/internal/quantum"
)

// Build-time variables set via -ldflags, for example:
//
//	go build -ldflags="-X github.com/agbru/fibqpe/internal/app.Version=v0.3.0 -X github.com/agbru/fibqpe/internal/app.Commit=abc123"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// HasVersionFlag reports whether any argument asks for the version, so that
// --version works in any position and before flag validation.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--version", "-version", "-V":
			return true
		}
	}
	return false
}

// VersionData is the build and simulator information printed by --version.
type VersionData struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	BuildDate      string `json:"build_date"`
	GoVersion      string `json:"go_version"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	DefaultCeiling int    `json:"default_ceiling_qubits"`
	HardCeiling    int    `json:"hard_ceiling_qubits"`
}

// GetVersionInfo returns the current version information.
func GetVersionInfo() VersionData {
	return VersionData{
		Version:        Version,
		Commit:         Commit,
		BuildDate:      BuildDate,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		DefaultCeiling: quantum.DefaultMaxQubits,
		HardCeiling:    quantum.HardMaxQubits,
	}
}

// PrintVersion writes the version block to out.
func PrintVersion(out io.Writer) {
	v := GetVersionInfo()
	fmt.Fprintf(out, "fibqpe %s\n", v.Version)
	fmt.Fprintf(out, "  Commit:     %s\n", v.Commit)
	fmt.Fprintf(out, "  Built:      %s\n", v.BuildDate)
	fmt.Fprintf(out, "  Go version: %s\n", v.GoVersion)
	fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", v.OS, v.Arch)
	fmt.Fprintf(out, "  Simulator:  %d qubits by default, %d at most\n", v.DefaultCeiling, v.HardCeiling)
}
