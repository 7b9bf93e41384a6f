package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	loomerrors "github.com/loom-hdl/loom/pkg/errors"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleError = lipgloss.NewStyle().Foreground(colorRed)
)

// printSuccess writes a checkmarked success line to stdout.
func printSuccess(format string, args ...any) {
	fmt.Printf("%s %s\n", StyleSuccess.Render("✓"), fmt.Sprintf(format, args...))
}

// printInfo writes an informational line to stdout.
func printInfo(format string, args ...any) {
	fmt.Printf("%s\n", fmt.Sprintf(format, args...))
}

// renderError writes a structured loom error (or any error) to stderr in
// the error[<Code>] format.
func renderError(err error) {
	var e *loomerrors.Error
	if asLoomError(err, &e) {
		fmt.Fprintln(os.Stderr, styleError.Render(e.Format()))
		return
	}
	fmt.Fprintln(os.Stderr, styleError.Render("error: "+err.Error()))
}

func asLoomError(err error, target **loomerrors.Error) bool {
	for err != nil {
		if e, ok := err.(*loomerrors.Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
