package report

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	// Name colors entity names
	Name func(format string, a ...interface{}) string

	// Success colors success counts
	Success func(format string, a ...interface{}) string

	// Error colors failures
	Error func(format string, a ...interface{}) string

	// Warning colors cancellation notices
	Warning func(format string, a ...interface{}) string

	// Header colors table headers
	Header func(format string, a ...interface{}) string

	// Score colors scores and weights
	Score func(format string, a ...interface{}) string

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme.
// Colors are disabled for non-TTY outputs or when noColor is true.
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !isTTY(w) {
		return &ColorScheme{
			Name:     color.New().Sprintf,
			Success:  color.New().Sprintf,
			Error:    color.New().Sprintf,
			Warning:  color.New().Sprintf,
			Header:   color.New().Sprintf,
			Score:    color.New().Sprintf,
			Disabled: true,
		}
	}

	return &ColorScheme{
		Name:    color.New(color.FgCyan, color.Bold).Sprintf,
		Success: color.New(color.FgGreen).Sprintf,
		Error:   color.New(color.FgRed, color.Bold).Sprintf,
		Warning: color.New(color.FgYellow).Sprintf,
		Header:  color.New(color.FgWhite, color.Bold).Sprintf,
		Score:   color.New(color.FgBlue).Sprintf,
	}
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// CountColor returns Error for a non-zero failure count and Success otherwise.
func (cs *ColorScheme) CountColor(failures int) func(format string, a ...interface{}) string {
	if failures > 0 {
		return cs.Error
	}
	return cs.Success
}
