package crypt

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	logger "github.com/PolarWolf314/crypthru/internal/logging"
	"golang.org/x/crypto/openpgp/packet"
)

func testServices() map[string]Service {
	return map[string]Service{
		"pgp": &PGP{Config: &packet.Config{RSABits: 1024}},
		"age": &Age{WorkFactor: 10},
	}
}

func writeKeyPair(t *testing.T, svc Service, id, pass string) (privPath, pubPath string) {
	t.Helper()
	pair, err := svc.CreateKeyPair(id, pass)
	if err != nil {
		t.Fatalf("Failed to create key pair: %v", err)
	}
	dir := t.TempDir()
	privPath = filepath.Join(dir, id+".private.key")
	pubPath = filepath.Join(dir, id+".public.key")
	var priv, pub bytes.Buffer
	if _, err := pair.Private.WriteTo(&priv); err != nil {
		t.Fatalf("Failed to serialize private key: %v", err)
	}
	if _, err := pair.Public.WriteTo(&pub); err != nil {
		t.Fatalf("Failed to serialize public key: %v", err)
	}
	if err := os.WriteFile(privPath, priv.Bytes(), 0600); err != nil {
		t.Fatalf("Failed to write private key: %v", err)
	}
	if err := os.WriteFile(pubPath, pub.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write public key: %v", err)
	}
	return privPath, pubPath
}

func TestRoundTrip(t *testing.T) {
	for name, svc := range testServices() {
		t.Run(name, func(t *testing.T) {
			privPath, pubPath := writeKeyPair(t, svc, "bob@example.com", "correct horse")

			pub, err := svc.ReadPublicKey(pubPath)
			if err != nil {
				t.Fatalf("Failed to read public key: %v", err)
			}
			if pub.Identity() != "bob@example.com" {
				t.Errorf("Expected public identity bob@example.com, got %q", pub.Identity())
			}

			dir := t.TempDir()
			plain := filepath.Join(dir, "report.txt")
			content := []byte("quarterly figures\n")
			if err := os.WriteFile(plain, content, 0644); err != nil {
				t.Fatalf("Failed to write plaintext: %v", err)
			}

			cipher := svc.Naming().EncryptedName(plain)
			if err := svc.Encrypt(plain, cipher, pub); err != nil {
				t.Fatalf("Failed to encrypt: %v", err)
			}
			sealed, err := os.ReadFile(cipher)
			if err != nil {
				t.Fatalf("Failed to read ciphertext: %v", err)
			}
			if bytes.Contains(sealed, content) {
				t.Error("Ciphertext contains the plaintext")
			}

			priv, err := svc.ReadPrivateKey(privPath, "correct horse")
			if err != nil {
				t.Fatalf("Failed to read private key: %v", err)
			}
			if priv.Identity() != "bob@example.com" {
				t.Errorf("Expected private identity bob@example.com, got %q", priv.Identity())
			}

			restored := filepath.Join(dir, "restored.txt")
			if err := svc.Decrypt(cipher, restored, priv); err != nil {
				t.Fatalf("Failed to decrypt: %v", err)
			}
			got, err := os.ReadFile(restored)
			if err != nil {
				t.Fatalf("Failed to read restored file: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("Expected %q, got %q", content, got)
			}
		})
	}
}

func TestWrongPassphrase(t *testing.T) {
	for name, svc := range testServices() {
		t.Run(name, func(t *testing.T) {
			privPath, _ := writeKeyPair(t, svc, "carol", "right passphrase")

			_, err := svc.ReadPrivateKey(privPath, "wrong passphrase")
			if !errors.Is(err, kerrors.ErrInvalidKey) {
				t.Errorf("Expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestAgeEmptyPassphraseStoresClearIdentity(t *testing.T) {
	svc := &Age{}
	privPath, _ := writeKeyPair(t, svc, "dave", "")

	data, err := os.ReadFile(privPath)
	if err != nil {
		t.Fatalf("Failed to read private key: %v", err)
	}
	if !strings.Contains(string(data), "AGE-SECRET-KEY-") {
		t.Errorf("Expected a clear identity, got %q", data)
	}
	if _, err := svc.ReadPrivateKey(privPath, ""); err != nil {
		t.Errorf("Failed to read clear private key: %v", err)
	}
}

func TestEncryptWithoutRecipients(t *testing.T) {
	for name, svc := range testServices() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			plain := filepath.Join(dir, "a.txt")
			if err := os.WriteFile(plain, []byte("a"), 0644); err != nil {
				t.Fatalf("Failed to write plaintext: %v", err)
			}
			err := svc.Encrypt(plain, plain+".out")
			if !errors.Is(err, kerrors.ErrNoPublicKeys) {
				t.Errorf("Expected ErrNoPublicKeys, got %v", err)
			}
		})
	}
}

func TestMixedBackendsRejected(t *testing.T) {
	pgp := &PGP{Config: &packet.Config{RSABits: 1024}}
	age := &Age{WorkFactor: 10}
	_, agePub := writeKeyPair(t, age, "erin", "passphrase")

	pub, err := age.ReadPublicKey(agePub)
	if err != nil {
		t.Fatalf("Failed to read public key: %v", err)
	}
	dir := t.TempDir()
	plain := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(plain, []byte("a"), 0644); err != nil {
		t.Fatalf("Failed to write plaintext: %v", err)
	}
	if err := pgp.Encrypt(plain, plain+".pgp", pub); !errors.Is(err, kerrors.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if svc, err := New("pgp"); err != nil || svc.Naming().EncryptedName("a") != "a.pgp" {
		t.Errorf("Expected pgp backend, got %v, %v", svc, err)
	}
	if svc, err := New("age"); err != nil || svc.Naming().EncryptedName("a") != "a.age" {
		t.Errorf("Expected age backend, got %v, %v", svc, err)
	}
	if _, err := New("rot13"); err == nil {
		t.Error("Expected an error for an unknown backend")
	}
}

func TestPerformanceFigures(t *testing.T) {
	perf := NewPerformance("Encryption")
	if perf.Figures() != "" {
		t.Errorf("Expected no figures before any record, got %q", perf.Figures())
	}

	file := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(file, make([]byte, 2048), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := perf.Record(time.Now().Add(-time.Second), file); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if perf.Bytes() != 2048 {
		t.Errorf("Expected 2048 bytes, got %d", perf.Bytes())
	}
	if perf.Elapsed() < time.Second {
		t.Errorf("Expected at least one second, got %v", perf.Elapsed())
	}
	if !strings.HasPrefix(perf.Figures(), "Encryption - 2048 bytes in ") {
		t.Errorf("Unexpected figures %q", perf.Figures())
	}

	if err := perf.Record(time.Now(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

// fakeGPG writes a shell script that records its arguments and standard
// input, then exits with code. The input lands in argsFile + ".stdin".
func fakeGPG(t *testing.T, code int) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake gpg script requires a POSIX shell")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	binary = filepath.Join(dir, "gpg")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\ncat > " + argsFile + ".stdin\necho gpg says hi\nexit " + string(rune('0'+code)) + "\n"
	if err := os.WriteFile(binary, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake gpg: %v", err)
	}
	return binary, argsFile
}

func TestGPGEncryptArguments(t *testing.T) {
	binary, argsFile := fakeGPG(t, 0)
	g := &GPG{Binary: binary, Log: logger.Logger{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}}

	if err := g.Encrypt(context.Background(), "in.txt", "in.txt.pgp", []string{"alice", "bob"}); err != nil {
		t.Fatalf("Failed to run gpg: %v", err)
	}
	got, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("Failed to read recorded args: %v", err)
	}
	want := "--yes --batch -r alice -r bob --output in.txt.pgp --encrypt in.txt\n"
	if string(got) != want {
		t.Errorf("Expected args %q, got %q", want, got)
	}
}

func TestGPGDecryptArguments(t *testing.T) {
	binary, argsFile := fakeGPG(t, 0)
	debug := &bytes.Buffer{}
	g := &GPG{Binary: binary, Log: logger.Logger{Debug: true, Out: debug, Err: &bytes.Buffer{}}}

	if err := g.Decrypt(context.Background(), "in.txt.pgp", "in.txt", "alice", "s3cret"); err != nil {
		t.Fatalf("Failed to run gpg: %v", err)
	}
	got, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("Failed to read recorded args: %v", err)
	}
	want := "--yes --batch --pinentry-mode loopback --passphrase-fd 0 -r alice --output in.txt --decrypt in.txt.pgp\n"
	if string(got) != want {
		t.Errorf("Expected args %q, got %q", want, got)
	}
	if strings.Contains(string(got), "s3cret") {
		t.Error("Passphrase must not appear on the gpg command line")
	}
	stdin, err := os.ReadFile(argsFile + ".stdin")
	if err != nil {
		t.Fatalf("Failed to read recorded input: %v", err)
	}
	if string(stdin) != "s3cret\n" {
		t.Errorf("Expected the passphrase on standard input, got %q", stdin)
	}
	if strings.Contains(debug.String(), "s3cret") {
		t.Error("Passphrase leaked into the log")
	}
	if !strings.Contains(debug.String(), "gpg says hi") {
		t.Errorf("Expected gpg output at debug level, got %q", debug.String())
	}
}

func TestGPGFailure(t *testing.T) {
	binary, _ := fakeGPG(t, 2)
	g := &GPG{Binary: binary, Log: logger.Logger{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}}

	err := g.Decrypt(context.Background(), "x.pgp", "x", "alice", "")
	var toolErr *kerrors.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Expected ToolError, got %v", err)
	}
	if toolErr.ExitCode != 2 {
		t.Errorf("Expected exit code 2, got %d", toolErr.ExitCode)
	}
	if !errors.Is(err, kerrors.ErrExternalTool) {
		t.Error("Expected ToolError to unwrap to ErrExternalTool")
	}
}
