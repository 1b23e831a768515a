// Package ui holds the terminal color themes shared by the CLI report, the
// usage message and the error handler.
package ui

import (
	"os"
	"sync"
)

// Theme maps the report's semantic roles to ANSI escape codes.
type Theme struct {
	Name string
	// Primary highlights headings and moduli.
	Primary string
	// Secondary is used for labels and defaults.
	Secondary string
	// Success marks verified periods.
	Success string
	// Warning marks unverified periods and flag headers.
	Warning string
	// Error marks failures.
	Error string
	// Bar colors histogram bars.
	Bar   string
	Bold  string
	Reset string
}

var (
	// DarkTheme suits dark terminal backgrounds.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "\033[38;5;39m",
		Secondary: "\033[38;5;245m",
		Success:   "\033[38;5;82m",
		Warning:   "\033[38;5;220m",
		Error:     "\033[38;5;196m",
		Bar:       "\033[38;5;141m",
		Bold:      "\033[1m",
		Reset:     "\033[0m",
	}

	// LightTheme suits light terminal backgrounds.
	LightTheme = Theme{
		Name:      "light",
		Primary:   "\033[38;5;27m",
		Secondary: "\033[38;5;240m",
		Success:   "\033[38;5;28m",
		Warning:   "\033[38;5;130m",
		Error:     "\033[38;5;124m",
		Bar:       "\033[38;5;54m",
		Bold:      "\033[1m",
		Reset:     "\033[0m",
	}

	// NoColorTheme emits no escape codes.
	NoColorTheme = Theme{Name: "none"}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the active theme.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme replaces the active theme.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// ThemeByName returns the theme called name, or DarkTheme for unknown names.
func ThemeByName(name string) Theme {
	switch name {
	case LightTheme.Name:
		return LightTheme
	case NoColorTheme.Name:
		return NoColorTheme
	default:
		return DarkTheme
	}
}

// InitTheme selects the active theme. Colors are disabled by the noColor
// flag or by a NO_COLOR environment variable with any value
// (https://no-color.org/).
func InitTheme(noColor bool) {
	if _, set := os.LookupEnv("NO_COLOR"); noColor || set {
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetCurrentTheme(DarkTheme)
}

// ColorReset returns the reset code of the active theme.
func ColorReset() string { return GetCurrentTheme().Reset }

// ColorRed returns the error color of the active theme.
func ColorRed() string { return GetCurrentTheme().Error }

// ColorGreen returns the success color of the active theme.
func ColorGreen() string { return GetCurrentTheme().Success }

// ColorYellow returns the warning color of the active theme.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorBlue returns the primary color of the active theme.
func ColorBlue() string { return GetCurrentTheme().Primary }

// ColorCyan returns the secondary color of the active theme.
func ColorCyan() string { return GetCurrentTheme().Secondary }

// ColorBar returns the histogram bar color of the active theme.
func ColorBar() string { return GetCurrentTheme().Bar }

// ColorBold returns the bold code of the active theme.
func ColorBold() string { return GetCurrentTheme().Bold }
