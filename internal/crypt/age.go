package crypt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/files"
)

// identityComment carries the key owner inside age key files, which have no
// user id field of their own.
const identityComment = "# identity: "

// Age is the age backend. Identities are X25519 keys; a private key file is
// the identity sealed with an scrypt passphrase recipient and armored. An
// empty passphrase stores the identity in the clear.
type Age struct {
	// WorkFactor overrides the scrypt work factor (log2 N); zero keeps the
	// library default.
	WorkFactor int
}

type agePublicKey struct {
	identity   string
	recipients []age.Recipient
	text       []byte
}

func (k *agePublicKey) Identity() string { return k.identity }

func (k *agePublicKey) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(k.text)
	return int64(n), err
}

type agePrivateKey struct {
	identity   string
	identities []age.Identity
}

func (k *agePrivateKey) Identity() string { return k.identity }

func (a *Age) Naming() files.NamingConvention {
	return files.AgeNaming
}

func (a *Age) ReadPublicKey(path string) (PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading public key %s: %v", kerrors.ErrIO, path, err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidKey, path, err)
	}
	return &agePublicKey{identity: commentIdentity(data), recipients: recipients, text: data}, nil
}

func (a *Age) ReadPrivateKey(path, passphrase string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading private key %s: %v", kerrors.ErrIO, path, err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header)) {
		scrypt, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidKey, path, err)
		}
		r, err := age.Decrypt(armor.NewReader(bytes.NewReader(data)), scrypt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidKey, path, errWrongPassphrase)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidKey, path, err)
		}
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidKey, path, err)
	}
	return &agePrivateKey{identity: commentIdentity(data), identities: identities}, nil
}

func (a *Age) Encrypt(plainPath, cipherPath string, recipients ...PublicKey) error {
	var to []age.Recipient
	for _, r := range recipients {
		k, ok := r.(*agePublicKey)
		if !ok {
			return fmt.Errorf("%w: recipient %q is not an age key", kerrors.ErrInvalidKey, r.Identity())
		}
		to = append(to, k.recipients...)
	}
	if len(to) == 0 {
		return kerrors.ErrNoPublicKeys
	}
	return streamFile(plainPath, cipherPath, func(w io.Writer) (io.WriteCloser, error) {
		return age.Encrypt(w, to...)
	})
}

func (a *Age) Decrypt(cipherPath, plainPath string, key PrivateKey) error {
	k, ok := key.(*agePrivateKey)
	if !ok {
		return fmt.Errorf("%w: private key %q is not an age key", kerrors.ErrInvalidKey, key.Identity())
	}
	in, err := os.Open(cipherPath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", kerrors.ErrIO, cipherPath, err)
	}
	defer in.Close()

	r, err := age.Decrypt(in, k.identities...)
	if err != nil {
		return fmt.Errorf("%w: decrypting %s: %v", kerrors.ErrInvalidKey, cipherPath, err)
	}
	return copyFrom(r, plainPath)
}

func (a *Age) CreateKeyPair(identity, passphrase string) (*KeyPair, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating key pair for %s: %w", identity, err)
	}

	secret := identityComment + identity + "\n" + id.String() + "\n"
	private := []byte(secret)
	if passphrase != "" {
		scrypt, err := age.NewScryptRecipient(passphrase)
		if err != nil {
			return nil, err
		}
		if a.WorkFactor > 0 {
			scrypt.SetWorkFactor(a.WorkFactor)
		}
		var sealed bytes.Buffer
		aw := armor.NewWriter(&sealed)
		w, err := age.Encrypt(aw, scrypt)
		if err != nil {
			return nil, fmt.Errorf("sealing private key for %s: %w", identity, err)
		}
		if _, err := io.WriteString(w, secret); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		if err := aw.Close(); err != nil {
			return nil, err
		}
		sealed.WriteString("\n")
		private = sealed.Bytes()
	}

	recipient := id.Recipient()
	return &KeyPair{
		Private: bytesTo(private),
		Public: &agePublicKey{
			identity:   identity,
			recipients: []age.Recipient{recipient},
			text:       []byte(identityComment + identity + "\n" + recipient.String() + "\n"),
		},
	}, nil
}

// commentIdentity returns the owner recorded in an identity comment line.
func commentIdentity(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), identityComment); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
