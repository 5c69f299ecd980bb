package crypt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	logger "github.com/PolarWolf314/crypthru/internal/logging"
)

// DefaultGPGBinary is used when neither settings nor the GPG property name one.
const DefaultGPGBinary = "gpg"

// GPG runs a system-installed gpg in batch mode. It is the external-tool
// backend: keys live in the gpg keyring, addressed by identity.
type GPG struct {
	Binary string
	Log    logger.Logger
}

// Encrypt encrypts plainPath for every recipient into cipherPath.
func (g *GPG) Encrypt(ctx context.Context, plainPath, cipherPath string, recipients []string) error {
	args := make([]string, 0, 2*len(recipients)+4)
	for _, id := range recipients {
		args = append(args, "-r", id)
	}
	args = append(args, "--output", cipherPath, "--encrypt", plainPath)
	return g.Run(ctx, args...)
}

// Decrypt decrypts cipherPath into plainPath with the secret key of identity.
// A non-empty passphrase is handed over through loopback pinentry on
// standard input, never on the command line.
func (g *GPG) Decrypt(ctx context.Context, cipherPath, plainPath, identity, passphrase string) error {
	var args []string
	var stdin io.Reader
	if passphrase != "" {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-fd", "0")
		stdin = strings.NewReader(passphrase + "\n")
	}
	args = append(args, "-r", identity, "--output", plainPath, "--decrypt", cipherPath)
	return g.run(ctx, stdin, args...)
}

// Run executes gpg --yes --batch followed by args. A non-zero exit yields a
// *kerrors.ToolError carrying the combined output.
func (g *GPG) Run(ctx context.Context, args ...string) error {
	return g.run(ctx, nil, args...)
}

func (g *GPG) run(ctx context.Context, stdin io.Reader, args ...string) error {
	binary := g.Binary
	if binary == "" {
		binary = DefaultGPGBinary
	}
	full := append([]string{"--yes", "--batch"}, args...)
	command := binary + " " + strings.Join(full, " ")
	g.Log.Infof("Executing GPG: %s", command)

	cmd := exec.CommandContext(ctx, binary, full...)
	cmd.Stdin = stdin
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		g.Log.Debugf("GPG console:\n%s", out)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &kerrors.ToolError{Command: command, ExitCode: exitErr.ExitCode(), Output: string(out)}
		}
		return fmt.Errorf("%w: running %s: %v", kerrors.ErrExternalTool, command, err)
	}
	return nil
}
