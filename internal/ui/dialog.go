package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"golang.org/x/term"
)

// CancelInput is the answer that aborts a dialog.
const CancelInput = `\q`

// Dialog asks questions on a console. Every question can be cancelled by
// answering CancelInput, which surfaces as kerrors.ErrCancelled.
type Dialog struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret func() (string, error)
}

// NewDialog returns a dialog bound to the process terminal.
// Returns ErrNoConsole if stdin is not a terminal.
func NewDialog() (*Dialog, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, kerrors.ErrNoConsole
	}
	d := &Dialog{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	d.readSecret = func() (string, error) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(d.out)
		return string(secret), err
	}
	return d, nil
}

// NewScriptedDialog returns a dialog reading answers line by line from in.
// Secrets are read the same way, so tests can drive the full flow.
func NewScriptedDialog(in io.Reader, out io.Writer) *Dialog {
	d := &Dialog{in: bufio.NewReader(in), out: out}
	d.readSecret = d.readLine
	return d
}

// Ask prints the prompt and returns the trimmed answer.
func (d *Dialog) Ask(prompt string, args ...any) (string, error) {
	d.prompt(prompt, args...)
	return d.answer(d.readLine)
}

// AskSecret is Ask without echoing the answer.
func (d *Dialog) AskSecret(prompt string, args ...any) (string, error) {
	d.prompt(prompt, args...)
	return d.answer(d.readSecret)
}

// Say prints an informational message.
func (d *Dialog) Say(msg string, args ...any) {
	fmt.Fprintln(d.out, "\n"+Success.Sprintf(msg, args...))
}

// Warn prints a warning message.
func (d *Dialog) Warn(msg string, args ...any) {
	fmt.Fprintln(d.out, "\n"+Warning.Sprintf(msg, args...))
}

// Error prints an error message.
func (d *Dialog) Error(msg string, args ...any) {
	fmt.Fprintln(d.out, "\n"+Error.Sprintf(msg, args...))
}

func (d *Dialog) prompt(prompt string, args ...any) {
	fmt.Fprint(d.out, "\n"+Success.Sprintf(prompt, args...)+" ("+Info.Sprint(CancelInput)+" to cancel): ")
}

func (d *Dialog) answer(read func() (string, error)) (string, error) {
	text, err := read()
	if err != nil {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	if text == CancelInput {
		return "", kerrors.ErrCancelled
	}
	return text, nil
}

func (d *Dialog) readLine() (string, error) {
	line, err := d.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
