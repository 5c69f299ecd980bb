// Testing utilities shared between command tests: environment setup
// and output capture.

package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/crypthru/internal/crypt"
	"github.com/PolarWolf314/crypthru/internal/keystore"
)

// testPass protects the private keys created by tests.
const testPass = "correct horse"

// setupTestEnvironment points the settings file and the keystore at
// temporary directories and installs fast age keys. It returns the
// keystore directory.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	keystoreDir := filepath.Join(tempDir, "keystore")
	t.Setenv("CRYPTHRU_CONFIG", filepath.Join(tempDir, "config", "config.toml"))
	t.Setenv("NO_COLOR", "1")

	originalService := newService
	newService = func(string) (crypt.Service, error) {
		return &crypt.Age{WorkFactor: 10}, nil
	}

	ResetGlobalState()
	t.Cleanup(func() {
		newService = originalService
		ResetGlobalState()
	})
	return keystoreDir
}

// createTestKeyPair stores a key pair for id in the keystore at dir.
func createTestKeyPair(t *testing.T, dir, id string) {
	t.Helper()
	ks, err := keystore.New(dir)
	if err != nil {
		t.Fatalf("Failed to open keystore: %v", err)
	}
	svc := &crypt.Age{WorkFactor: 10}
	pair, err := svc.CreateKeyPair(id, testPass)
	if err != nil {
		t.Fatalf("Failed to create key pair: %v", err)
	}
	if _, _, err := ks.SavePair(id, pair.Private, pair.Public); err != nil {
		t.Fatalf("Failed to save key pair: %v", err)
	}
}

// runCLI executes the root command with args and returns the captured output.
func runCLI(args ...string) (string, error) {
	return captureOutput(func() error {
		RootCmd.SetArgs(args)
		return RootCmd.Execute()
	})
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}
