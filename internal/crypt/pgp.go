package crypt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/files"
	"github.com/PolarWolf314/crypthru/internal/utils"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
	_ "golang.org/x/crypto/ripemd160"
)

// RSABits is the size of generated OpenPGP keys.
const RSABits = 3072

// Armor block types accepted for private key files.
const sealedKeyType = "PGP MESSAGE"

var privateKeyType = openpgp.PrivateKeyType

var errWrongPassphrase = errors.New("wrong passphrase")

// PGP is the OpenPGP backend. Ciphertext is binary OpenPGP, readable by gpg.
//
// Private keys it generates are stored as a passphrase-encrypted OpenPGP
// message wrapping the serialized secret key. Armored secret key blocks
// exported by gpg are read as well.
type PGP struct {
	// Config tunes key generation and encryption; nil uses the defaults.
	Config *packet.Config
}

type pgpPublicKey struct {
	entity *openpgp.Entity
}

func (k *pgpPublicKey) Identity() string {
	return entityIdentity(k.entity)
}

func (k *pgpPublicKey) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	aw, err := armor.Encode(cw, openpgp.PublicKeyType, nil)
	if err != nil {
		return cw.n, err
	}
	if err := k.entity.Serialize(aw); err != nil {
		aw.Close()
		return cw.n, err
	}
	if err := aw.Close(); err != nil {
		return cw.n, err
	}
	_, err = io.WriteString(cw, "\n")
	return cw.n, err
}

type pgpPrivateKey struct {
	entity *openpgp.Entity
}

func (k *pgpPrivateKey) Identity() string {
	return entityIdentity(k.entity)
}

// entityIdentity prefers the primary user id and falls back to the first in
// name order.
func entityIdentity(e *openpgp.Entity) string {
	names := make([]string, 0, len(e.Identities))
	for name, ident := range e.Identities {
		if ident.SelfSignature != nil && ident.SelfSignature.IsPrimaryId != nil && *ident.SelfSignature.IsPrimaryId {
			return utils.IdentityFromUserID(name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return utils.IdentityFromUserID(names[0])
}

func (p *PGP) Naming() files.NamingConvention {
	return files.DefaultNaming
}

func (p *PGP) ReadPublicKey(path string) (PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading public key %s: %v", kerrors.ErrIO, path, err)
	}
	list, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		list, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil || len(list) == 0 {
		return nil, fmt.Errorf("%w: %s is not an OpenPGP public key", kerrors.ErrInvalidKey, path)
	}
	return &pgpPublicKey{entity: list[0]}, nil
}

func (p *PGP) ReadPrivateKey(path, passphrase string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading private key %s: %v", kerrors.ErrIO, path, err)
	}
	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not an armored OpenPGP file", kerrors.ErrInvalidKey, path)
	}

	var list openpgp.EntityList
	switch block.Type {
	case sealedKeyType:
		list, err = p.unseal(block.Body, passphrase)
	case privateKeyType:
		list, err = openpgp.ReadKeyRing(block.Body)
		if err == nil {
			err = unlockEntities(list, passphrase)
		}
	default:
		err = fmt.Errorf("unexpected armor block %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidKey, path, err)
	}
	if len(list) == 0 || list[0].PrivateKey == nil {
		return nil, fmt.Errorf("%w: %s holds no private key", kerrors.ErrInvalidKey, path)
	}
	return &pgpPrivateKey{entity: list[0]}, nil
}

// unseal decrypts a passphrase-protected message and parses the key ring in it.
func (p *PGP) unseal(r io.Reader, passphrase string) (openpgp.EntityList, error) {
	tried := false
	prompt := func(_ []openpgp.Key, symmetric bool) ([]byte, error) {
		if !symmetric || tried {
			return nil, errWrongPassphrase
		}
		tried = true
		return []byte(passphrase), nil
	}
	md, err := openpgp.ReadMessage(r, openpgp.EntityList{}, prompt, p.Config)
	if err != nil {
		return nil, err
	}
	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, err
	}
	return openpgp.ReadKeyRing(bytes.NewReader(plain))
}

func unlockEntities(list openpgp.EntityList, passphrase string) error {
	for _, e := range list {
		if e.PrivateKey != nil && e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return errWrongPassphrase
			}
		}
		for _, sub := range e.Subkeys {
			if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
				if err := sub.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return errWrongPassphrase
				}
			}
		}
	}
	return nil
}

func (p *PGP) Encrypt(plainPath, cipherPath string, recipients ...PublicKey) error {
	if len(recipients) == 0 {
		return kerrors.ErrNoPublicKeys
	}
	to := make([]*openpgp.Entity, 0, len(recipients))
	for _, r := range recipients {
		k, ok := r.(*pgpPublicKey)
		if !ok {
			return fmt.Errorf("%w: recipient %q is not an OpenPGP key", kerrors.ErrInvalidKey, r.Identity())
		}
		to = append(to, k.entity)
	}

	hints := &openpgp.FileHints{IsBinary: true, FileName: filepath.Base(plainPath)}
	if info, err := os.Stat(plainPath); err == nil {
		hints.ModTime = info.ModTime()
	}
	return streamFile(plainPath, cipherPath, func(w io.Writer) (io.WriteCloser, error) {
		pw, err := openpgp.Encrypt(w, to, nil, hints, p.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: encrypting %s: %v", kerrors.ErrInvalidKey, plainPath, err)
		}
		return pw, nil
	})
}

func (p *PGP) Decrypt(cipherPath, plainPath string, key PrivateKey) error {
	k, ok := key.(*pgpPrivateKey)
	if !ok {
		return fmt.Errorf("%w: private key %q is not an OpenPGP key", kerrors.ErrInvalidKey, key.Identity())
	}
	in, err := os.Open(cipherPath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", kerrors.ErrIO, cipherPath, err)
	}
	defer in.Close()

	md, err := openpgp.ReadMessage(in, openpgp.EntityList{k.entity}, nil, p.Config)
	if err != nil {
		return fmt.Errorf("%w: decrypting %s: %v", kerrors.ErrInvalidKey, cipherPath, err)
	}
	return copyFrom(md.UnverifiedBody, plainPath)
}

func (p *PGP) CreateKeyPair(identity, passphrase string) (*KeyPair, error) {
	config := p.Config
	if config == nil {
		config = &packet.Config{RSABits: RSABits}
	}
	entity, err := openpgp.NewEntity(identity, "", "", config)
	if err != nil {
		return nil, fmt.Errorf("generating key pair for %s: %w", identity, err)
	}

	var secret bytes.Buffer
	if err := entity.SerializePrivate(&secret, config); err != nil {
		return nil, fmt.Errorf("serializing private key for %s: %w", identity, err)
	}

	var sealed bytes.Buffer
	aw, err := armor.Encode(&sealed, sealedKeyType, nil)
	if err != nil {
		return nil, err
	}
	sw, err := openpgp.SymmetricallyEncrypt(aw, []byte(passphrase), &openpgp.FileHints{IsBinary: true}, config)
	if err != nil {
		return nil, fmt.Errorf("sealing private key for %s: %w", identity, err)
	}
	if _, err := sw.Write(secret.Bytes()); err != nil {
		return nil, err
	}
	if err := sw.Close(); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}
	sealed.WriteString("\n")

	return &KeyPair{
		Private: bytesTo(sealed.Bytes()),
		Public:  &pgpPublicKey{entity: entity},
	}, nil
}
