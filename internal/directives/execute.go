package directives

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/PolarWolf314/crypthru/internal/directive"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/session"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// Execute runs each non-blank line of "command" through the platform shell.
// The output is printed unless quiet; a failing line stops the directive
// unless lenient.
type Execute struct {
	command string
	quiet   bool
	lenient bool
}

func (x *Execute) Configure(d *directive.Decoder) error {
	var err error
	if x.command, err = d.ReadString("command"); err != nil {
		return err
	}
	if x.quiet, err = d.ReadBool("quiet", true); err != nil {
		return err
	}
	x.lenient, err = d.ReadBool("lenient", false)
	return err
}

func (x *Execute) Describe() string {
	return "Execute " + x.command
}

func (x *Execute) Execute(ctx context.Context, s *session.Session) error {
	for _, line := range strings.Split(x.command, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.Preview {
			s.Report("Would execute: %s", line)
			continue
		}
		s.Report("Executing: %s", line)
		if err := x.run(ctx, s, line); err != nil {
			return err
		}
	}
	return nil
}

func (x *Execute) run(ctx context.Context, s *session.Session, line string) error {
	argv := utils.ShellCommand(line)
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if !x.quiet && len(out) > 0 {
		w := s.Log.Out
		if w == nil {
			w = os.Stdout
		}
		fmt.Fprint(w, string(out))
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("%w: running %s: %v", kerrors.ErrExternalTool, line, err)
	}
	toolErr := &kerrors.ToolError{Command: strings.Join(argv, " "), ExitCode: exitErr.ExitCode(), Output: string(out)}
	if x.lenient {
		s.Log.Warnf("%v", toolErr)
		return nil
	}
	return toolErr
}
