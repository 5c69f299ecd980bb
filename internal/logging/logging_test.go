package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func newTestLogger(verbose, debug bool) (Logger, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return Logger{Verbose: verbose, Debug: debug, Out: out, Err: errOut}, out, errOut
}

func TestLoggerLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name      string
		verbose   bool
		debug     bool
		wantInfo  bool
		wantDebug bool
	}{
		{"quiet", false, false, false, false},
		{"verbose", true, false, true, false},
		{"debug", false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, out, _ := newTestLogger(tt.verbose, tt.debug)
			l.Infof("hello %s", "info")
			l.Debugf("hello %s", "debug")

			if got := strings.Contains(out.String(), "[info] hello info"); got != tt.wantInfo {
				t.Errorf("info shown = %v, want %v (output %q)", got, tt.wantInfo, out.String())
			}
			if got := strings.Contains(out.String(), "[debug] hello debug"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v (output %q)", got, tt.wantDebug, out.String())
			}
		})
	}
}

func TestWarnAndErrorAlwaysShown(t *testing.T) {
	color.NoColor = true
	l, out, errOut := newTestLogger(false, false)

	l.Warnf("careful")
	l.Errorf("broken %d", 42)

	if out.Len() != 0 {
		t.Errorf("Expected nothing on stdout, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[warn] careful") {
		t.Errorf("Expected warning on stderr, got %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "[error] broken 42") {
		t.Errorf("Expected error on stderr, got %q", errOut.String())
	}
}

func TestErrorfAndReturn(t *testing.T) {
	color.NoColor = true
	l, _, errOut := newTestLogger(false, false)

	err := l.ErrorfAndReturn("failed to open %s", "x.txt")
	if err == nil || err.Error() != "failed to open x.txt" {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(errOut.String(), "failed to open x.txt") {
		t.Errorf("Expected logged error, got %q", errOut.String())
	}
}
