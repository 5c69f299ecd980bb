package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/crypthru/internal/audit"
	"github.com/PolarWolf314/crypthru/internal/crypt"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestRunEncryptThenDecryptFromTokens(t *testing.T) {
	ks := setupTestEnvironment(t)
	createTestKeyPair(t, ks, "alice")
	dir := t.TempDir()
	plain := filepath.Join(dir, "a.txt")
	writeTestFile(t, plain, "alpha\n")

	output, err := runCLI("--keystore", ks, "encrypt", "path="+dir, "public-id=alice")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v\n%s", err, output)
	}
	if _, err := os.Stat(plain + ".age"); err != nil {
		t.Fatalf("Expected ciphertext next to the source: %v", err)
	}
	if !strings.Contains(output, "Completed 1 directive(s)") {
		t.Errorf("Expected completion message, got: %s", output)
	}
	if !strings.Contains(output, "Encrypt - ") {
		t.Errorf("Expected encrypt performance figures, got: %s", output)
	}

	entries, err := audit.ReadEntries(filepath.Join(ks, audit.FileName))
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Directive != "Encrypt "+dir {
		t.Errorf("Expected audit directive %q, got %q", "Encrypt "+dir, entries[0].Directive)
	}
	if len(entries[0].Outputs) != 1 || entries[0].Digest == "" {
		t.Errorf("Expected one digested output, got %+v", entries[0])
	}

	if err := os.Remove(plain); err != nil {
		t.Fatalf("Failed to remove plaintext: %v", err)
	}
	ResetGlobalState()
	output, err = runCLI("--keystore", ks, "--pass", testPass, "decrypt", "path="+dir)
	if err != nil {
		t.Fatalf("Failed to decrypt: %v\n%s", err, output)
	}
	data, err := os.ReadFile(plain)
	if err != nil {
		t.Fatalf("Failed to read decrypted file: %v", err)
	}
	if string(data) != "alpha\n" {
		t.Errorf("Expected %q, got %q", "alpha\n", data)
	}
}

func TestRunGlobalPublicID(t *testing.T) {
	ks := setupTestEnvironment(t)
	createTestKeyPair(t, ks, "alice")
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha\n")

	output, err := runCLI("--keystore", ks, "--public-id", "alice", "encrypt", "path="+dir)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v\n%s", err, output)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt.age")); err != nil {
		t.Errorf("Expected ciphertext: %v", err)
	}
}

func TestRunInline(t *testing.T) {
	ks := setupTestEnvironment(t)
	createTestKeyPair(t, ks, "alice")
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha\n")

	output, err := runCLI("--keystore", ks, "--inline", "{directive: encrypt, path: '"+dir+"', public-id: alice}")
	if err != nil {
		t.Fatalf("Failed to run inline directive: %v\n%s", err, output)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt.age")); err != nil {
		t.Errorf("Expected ciphertext: %v", err)
	}
}

func TestRunPreviewFromFileWithProperties(t *testing.T) {
	ks := setupTestEnvironment(t)
	createTestKeyPair(t, ks, "alice")
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha\n")
	doc := filepath.Join(t.TempDir(), "daily.yaml")
	writeTestFile(t, doc, "- directive: encrypt\n  path: ${DIR}\n  public-id: alice\n  wipe: true\n")

	output, err := runCLI("--keystore", ks, "--preview", "-D", "DIR="+dir, "-r", doc)
	if err != nil {
		t.Fatalf("Failed to preview: %v\n%s", err, output)
	}
	if !strings.Contains(output, "[preview] Would encrypt "+filepath.Join(dir, "a.txt")) {
		t.Errorf("Expected preview report, got: %s", output)
	}
	if !strings.Contains(output, "Would delete") {
		t.Errorf("Expected wipe preview, got: %s", output)
	}
	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list %s: %v", dir, err)
	}
	if len(names) != 1 || names[0].Name() != "a.txt" {
		t.Errorf("Expected preview to leave only a.txt, got %v", names)
	}
	if _, err := os.Stat(filepath.Join(ks, audit.FileName)); !os.IsNotExist(err) {
		t.Error("Expected no audit log in preview")
	}
}

func TestRunNothingToDo(t *testing.T) {
	ks := setupTestEnvironment(t)

	output, err := runCLI("--keystore", ks)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(output, "Nothing to do") {
		t.Errorf("Expected a warning, got: %s", output)
	}
	if !strings.Contains(output, "Usage:") {
		t.Errorf("Expected usage, got: %s", output)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
		hint string
	}{
		{"unknown directive", []string{"shred", "path=x"}, kerrors.ErrUnknownDirective, "crypthru directives"},
		{"leading parameter", []string{"path=x"}, kerrors.ErrConfig, ""},
		{"missing field", []string{"execute"}, kerrors.ErrMissingField, ""},
		{"missing run file", []string{"-r", "/nonexistent/daily.yaml"}, kerrors.ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := setupTestEnvironment(t)
			_, err := runCLI(append([]string{"--keystore", ks}, tt.args...)...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if tt.hint != "" && !strings.Contains(hintFor(err), tt.hint) {
				t.Errorf("Expected hint mentioning %q, got %q", tt.hint, hintFor(err))
			}
		})
	}
}

func TestRunWithoutRecipients(t *testing.T) {
	ks := setupTestEnvironment(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha\n")

	_, err := runCLI("--keystore", ks, "encrypt", "path="+dir)
	if !errors.Is(err, kerrors.ErrNoPublicKeys) {
		t.Fatalf("Expected ErrNoPublicKeys, got %v", err)
	}
	if !strings.Contains(hintFor(err), "--public-id") {
		t.Errorf("Expected a hint naming --public-id, got %q", hintFor(err))
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt.age")); !os.IsNotExist(err) {
		t.Error("Expected nothing to be encrypted")
	}
}

func TestRunFailureMessage(t *testing.T) {
	ks := setupTestEnvironment(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha\n")

	output, err := runCLI("--keystore", ks, "encrypt", "path="+dir, "public-id=nobody")
	if !errors.Is(err, kerrors.ErrNoSuchKey) {
		t.Fatalf("Expected ErrNoSuchKey, got %v", err)
	}
	if !strings.Contains(output, "failed") {
		t.Errorf("Expected a failure line, got: %s", output)
	}
}

func TestParseDefines(t *testing.T) {
	props, err := parseDefines([]string{"A=1", "B=x=y", "C="})
	if err != nil {
		t.Fatalf("Failed to parse defines: %v", err)
	}
	want := map[string]string{"A": "1", "B": "x=y", "C": ""}
	for k, v := range want {
		if props[k] != v {
			t.Errorf("Expected %s=%q, got %q", k, v, props[k])
		}
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseDefines([]string{bad}); err == nil {
			t.Errorf("Expected an error for %q", bad)
		}
	}
}

func TestGPGBinaryFromProperty(t *testing.T) {
	ks := setupTestEnvironment(t)
	createTestKeyPair(t, ks, "alice")
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "alpha\n")

	// A binary that cannot exist proves the property was honoured.
	missing := filepath.Join(t.TempDir(), "no-gpg")
	_, err := runCLI("--keystore", ks, "-D", "GPG="+missing, "--gpg", "encrypt", "path="+dir, "public-id=alice")
	if !errors.Is(err, kerrors.ErrExternalTool) {
		t.Fatalf("Expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("Expected the configured binary in the error, got %v", err)
	}
}

func TestKeysCommands(t *testing.T) {
	ks := setupTestEnvironment(t)
	createTestKeyPair(t, ks, "alice")

	output, err := runCLI("keys", "list", "--keystore", ks)
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if strings.Count(output, "alice") != 2 {
		t.Errorf("Expected alice as private and public key, got: %s", output)
	}

	ResetGlobalState()
	output, err = runCLI("keys", "history", "alice", "--keystore", ks, "--at", "2999-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("Failed to show history: %v", err)
	}
	if !strings.Contains(output, "current") || !strings.Contains(output, "Valid at 2999-01-01T00:00:00Z") {
		t.Errorf("Expected current key valid in the future, got: %s", output)
	}

	ResetGlobalState()
	output, err = runCLI("keys", "history", "alice", "--keystore", ks, "--at", "2000-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("Failed to show history: %v", err)
	}
	if !strings.Contains(output, "No key of") {
		t.Errorf("Expected no key valid in 2000, got: %s", output)
	}

	ResetGlobalState()
	if _, err := runCLI("keys", "history", "alice", "--keystore", ks, "--at", "yesterday"); err == nil {
		t.Error("Expected an error for an invalid date")
	}
}

func TestKeysImport(t *testing.T) {
	ks := setupTestEnvironment(t)
	pair, err := (&crypt.Age{WorkFactor: 10}).CreateKeyPair("bob", testPass)
	if err != nil {
		t.Fatalf("Failed to create key pair: %v", err)
	}
	var pub bytes.Buffer
	if _, err := pair.Public.WriteTo(&pub); err != nil {
		t.Fatalf("Failed to serialize public key: %v", err)
	}
	keyFile := filepath.Join(t.TempDir(), "bob.txt")
	writeTestFile(t, keyFile, pub.String())

	output, err := runCLI("keys", "import", keyFile, "--keystore", ks, "--id", "bobby")
	if err != nil {
		t.Fatalf("Failed to import key: %v\n%s", err, output)
	}
	if _, err := os.Stat(filepath.Join(ks, "keys", "public", "bobby.key")); err != nil {
		t.Errorf("Expected imported key file: %v", err)
	}
}

func TestDirectivesAndGuide(t *testing.T) {
	setupTestEnvironment(t)

	for _, args := range [][]string{{"directives"}, {"guide"}} {
		output, err := runCLI(args...)
		if err != nil {
			t.Fatalf("Failed to run %v: %v", args, err)
		}
		for _, name := range []string{"encrypt", "decrypt", "create-keypair", "import-public-key", "execute"} {
			if !strings.Contains(output, name) {
				t.Errorf("Expected %v output to list %s, got: %s", args, name, output)
			}
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI("config", "init")
	if err != nil {
		t.Fatalf("Failed to init settings: %v", err)
	}
	if !strings.Contains(output, "Settings written") {
		t.Errorf("Expected confirmation, got: %s", output)
	}

	ResetGlobalState()
	if _, err := runCLI("config", "init"); err == nil {
		t.Error("Expected init to refuse overwriting settings")
	}

	ResetGlobalState()
	if _, err := runCLI("config", "init", "--force"); err != nil {
		t.Errorf("Expected forced init to succeed, got %v", err)
	}

	ResetGlobalState()
	output, err = runCLI("config", "show", "--json", "--backend", "age")
	if err != nil {
		t.Fatalf("Failed to show settings: %v", err)
	}
	if !strings.Contains(output, `"Backend": "age"`) {
		t.Errorf("Expected the flag to override the backend, got: %s", output)
	}
}
