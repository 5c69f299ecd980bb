package crypt

import (
	"fmt"
	"io"
	"os"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/files"
)

// PublicKey is an opaque recipient handle.
type PublicKey interface {
	io.WriterTo

	// Identity returns the owner embedded in the key, or "" when the key
	// carries none.
	Identity() string
}

// PrivateKey is an opaque decryption handle, already unlocked.
type PrivateKey interface {
	Identity() string
}

// KeyPair holds both serialisable halves of a freshly generated key.
// Private is sealed with the passphrase it was created with.
type KeyPair struct {
	Private io.WriterTo
	Public  PublicKey
}

// Service is the crypto capability every directive works through. Only file
// paths and opaque key handles cross this boundary.
type Service interface {
	ReadPublicKey(path string) (PublicKey, error)
	ReadPrivateKey(path, passphrase string) (PrivateKey, error)
	Encrypt(plainPath, cipherPath string, recipients ...PublicKey) error
	Decrypt(cipherPath, plainPath string, key PrivateKey) error
	CreateKeyPair(identity, passphrase string) (*KeyPair, error)

	// Naming returns the file naming policy matching the cipher format.
	Naming() files.NamingConvention
}

// New returns the service for the named backend ("pgp" or "age").
func New(backend string) (Service, error) {
	switch backend {
	case "", "pgp":
		return &PGP{}, nil
	case "age":
		return &Age{}, nil
	default:
		return nil, fmt.Errorf("unsupported crypto backend %q", backend)
	}
}

// streamFile copies src into a new dst through the writer returned by wrap.
// A partially written dst is removed on failure.
func streamFile(src, dst string, wrap func(io.Writer) (io.WriteCloser, error)) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", kerrors.ErrIO, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", kerrors.ErrIO, dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", kerrors.ErrIO, dst, cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	w, err := wrap(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, dst, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: finishing %s: %v", kerrors.ErrIO, dst, err)
	}
	return nil
}

// copyFrom writes everything r yields into a new dst, removing dst on failure.
func copyFrom(r io.Reader, dst string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", kerrors.ErrIO, dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", kerrors.ErrIO, dst, cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, dst, err)
	}
	return nil
}

// bytesTo adapts a byte slice to io.WriterTo.
type bytesTo []byte

func (b bytesTo) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b)
	return int64(n), err
}

// countingWriter tracks how many bytes went through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
