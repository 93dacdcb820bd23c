package formatter

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"

	ColorBold = "\033[1m"
	ColorDim  = "\033[2m"
)

// Icons for different message types
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠️"
	IconInfo    = "→"
	IconDebug   = "·"
)

// Output provides leveled operator output. Log, Warning and Success go to the
// main writer; Error goes to the error writer so per-site failures stay
// visible when stdout is redirected.
type Output struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	noColor bool
}

// New creates a new Output formatter writing to stdout and stderr.
// Colors are disabled when noColor is set or stdout is not a terminal.
func New(verbose, noColor bool) *Output {
	if !noColor && !term.IsTerminal(int(os.Stdout.Fd())) {
		noColor = true
	}
	return &Output{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: verbose,
		noColor: noColor,
	}
}

// NewWriter creates an Output that writes every level to w without colors.
func NewWriter(w io.Writer, verbose bool) *Output {
	return &Output{
		out:     w,
		errOut:  w,
		verbose: verbose,
		noColor: true,
	}
}

// color applies color to text if colors are enabled
func (o *Output) color(color, text string) string {
	if o.noColor {
		return text
	}
	return color + text + ColorReset
}

// IsVerbose reports whether debug output is enabled
func (o *Output) IsVerbose() bool {
	return o.verbose
}

// Success prints a success message
func (o *Output) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(o.out, "%s %s\n", o.color(ColorGreen, IconSuccess), msg)
}

// Error prints an error message. It does not stop anything.
func (o *Output) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(o.errOut, "%s %s\n", o.color(ColorRed, IconError), msg)
}

// Warning prints a warning message
func (o *Output) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(o.out, "%s %s\n", o.color(ColorYellow, IconWarning), msg)
}

// Log prints an informational message
func (o *Output) Log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(o.out, "%s %s\n", o.color(ColorBlue, IconInfo), msg)
}

// Debug prints a message only if verbose mode is enabled
func (o *Output) Debug(format string, args ...interface{}) {
	if !o.verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(o.out, "  %s %s\n", IconDebug, o.color(ColorDim, msg))
}

// Section prints a section header
func (o *Output) Section(title string) {
	fmt.Fprintf(o.out, "\n%s\n\n", o.color(ColorBold, "=== "+title+" ==="))
}

// Plain prints text without an icon, e.g. interactive questions
func (o *Output) Plain(format string, args ...interface{}) {
	fmt.Fprintf(o.out, format, args...)
}

// KeyValue prints a key-value pair
func (o *Output) KeyValue(key, value string) {
	fmt.Fprintf(o.out, "  %s: %s\n", o.color(ColorBold, key), value)
}

// List prints a bulleted list
func (o *Output) List(items ...string) {
	for _, item := range items {
		fmt.Fprintf(o.out, "  • %s\n", item)
	}
}
