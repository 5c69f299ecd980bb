package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI content, coloured when the terminal
// allows it and decorated with a plain-text prefix/suffix otherwise.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...any) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

// noColor reports whether output must stay plain (https://no-color.org/).
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands and directive tokens.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Flag formats CLI flags such as --preview.
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	// Success formats success indicators and messages.
	Success = Formatter{color.New(color.FgGreen), "", ""}

	// Error formats error indicators and messages.
	Error = Formatter{color.New(color.FgRed), "", ""}

	// Warning formats warnings, including the preview marker.
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info formats hints and directional arrows.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Identity formats key owner identities.
	Identity = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary details such as timestamps.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// Done builds a status line starting with a green tick.
func Done(msg string) string {
	return Success.Sprint("✓") + " " + msg
}

// Failed builds a status line starting with a red cross.
func Failed(msg string) string {
	return Error.Sprint("✗") + " " + msg
}

// Hint builds a follow-up line starting with a cyan arrow.
func Hint(msg string) string {
	return Info.Sprint("→") + " " + msg
}
