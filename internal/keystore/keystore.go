package keystore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// Role separates private keys from public keys.
type Role string

const (
	Private Role = "private"
	Public  Role = "public"
)

const (
	// KeyExt is the extension of every key file.
	KeyExt = ".key"

	// expirationMarker separates the identity from the expiration seconds
	// in the name of a superseded key file.
	expirationMarker = "~"

	// rotationSuffix marks the canonical file while it is being replaced.
	rotationSuffix = ".bak"
)

// Keystore stores keys under <root>/keys/{private,public}/<identity>.key.
//
// Rotation renames files without any lock, so only one process may write
// to a keystore at a time.
type Keystore struct {
	root string
}

// New returns a keystore rooted at root, expanding a leading "~".
// Directories are created lazily.
func New(root string) (*Keystore, error) {
	expanded, err := utils.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	return &Keystore{root: expanded}, nil
}

// Root returns the keystore directory.
func (k *Keystore) Root() string {
	return k.root
}

// Dir returns the directory holding keys of the given role, creating it.
func (k *Keystore) Dir(role Role) (string, error) {
	dir := filepath.Join(k.root, "keys", string(role))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", kerrors.ErrIO, dir, err)
	}
	return dir, nil
}

// Path returns the canonical file name for an identity without checking
// that it exists.
func (k *Keystore) Path(role Role, id string) (string, error) {
	dir, err := k.Dir(role)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+KeyExt), nil
}

// Resolve returns the canonical key file of an identity.
//
// Returns ErrNoSuchKey if the canonical file does not exist.
func (k *Keystore) Resolve(role Role, id string) (string, error) {
	path, err := k.Path(role, id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no %s key for %s (missing file %s)", kerrors.ErrNoSuchKey, role, id, path)
		}
		return "", fmt.Errorf("%w: stat %s: %v", kerrors.ErrIO, path, err)
	}
	return path, nil
}

// ResolveGroup resolves a public identity, or every canonical key inside
// a sub-directory of the public keys when idOrGroup names one.
func (k *Keystore) ResolveGroup(idOrGroup string) ([]string, error) {
	dir, err := k.Dir(Public)
	if err != nil {
		return nil, err
	}

	groupDir := filepath.Join(dir, idOrGroup)
	if !utils.IsDir(groupDir) {
		path, err := k.Resolve(Public, idOrGroup)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	ids, err := canonicalIdentities(groupDir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = filepath.Join(groupDir, id+KeyExt)
	}
	return paths, nil
}

// Identities lists the identities owning a canonical key of the given role.
func (k *Keystore) Identities(role Role) ([]string, error) {
	dir, err := k.Dir(role)
	if err != nil {
		return nil, err
	}
	return canonicalIdentities(dir)
}

// PickIdentity returns the only private identity in the keystore.
//
// Returns ErrNoPrivateKey if there is none and ErrAmbiguousIdentity if
// there are several.
func (k *Keystore) PickIdentity() (string, error) {
	ids, err := k.Identities(Private)
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", kerrors.ErrNoPrivateKey
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", kerrors.ErrAmbiguousIdentity, strings.Join(ids, ", "))
	}
}

func canonicalIdentities(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", kerrors.ErrIO, dir, err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, KeyExt) || strings.Contains(name, expirationMarker) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, KeyExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Save writes key as the canonical file of id. An existing canonical file
// is first moved aside, then renamed to <id>~<seconds>.key where seconds
// is the write time of the new file. Superseded keys are never
// overwritten: when that name is taken the seconds move forward to the
// next free one and the new file's time follows them, so expirations keep
// increasing across rotations.
func (k *Keystore) Save(role Role, id string, key io.WriterTo) (string, error) {
	if err := utils.ValidateIdentity(id); err != nil {
		return "", err
	}
	path, err := k.Path(role, id)
	if err != nil {
		return "", err
	}
	if err := checkRotation(path); err != nil {
		return "", err
	}

	var moved, expired string
	var supersededAt time.Time
	if info, err := os.Stat(path); err == nil {
		from := time.Now()
		if info.ModTime().After(from) {
			from = info.ModTime()
		}
		expired, supersededAt = freeExpiredName(path, from)
		moved = path + rotationSuffix
		if err := os.Rename(path, moved); err != nil {
			return "", fmt.Errorf("%w: renaming %s to %s: %v", kerrors.ErrIO, path, moved, err)
		}
	}

	if err := writeKey(path, key, permFor(role)); err != nil {
		if moved != "" {
			os.Remove(path)
			if rerr := os.Rename(moved, path); rerr != nil {
				return "", fmt.Errorf("%w; previous key left in %s", err, moved)
			}
		}
		return "", err
	}

	if moved == "" {
		return path, nil
	}
	if err := os.Chtimes(path, supersededAt, supersededAt); err != nil {
		return "", fmt.Errorf("%w: setting time of %s: %v; previous key left in %s", kerrors.ErrIO, path, err, moved)
	}
	if err := os.Rename(moved, expired); err != nil {
		return "", fmt.Errorf("%w: renaming %s to %s: %v", kerrors.ErrIO, moved, expired, err)
	}
	return path, nil
}

// checkRotation refuses to rotate over the leftover of an interrupted
// rotation, which may be the only copy of a key.
func checkRotation(canonical string) error {
	moved := canonical + rotationSuffix
	if utils.FileExists(moved) {
		return fmt.Errorf("%w: %s is left from an interrupted rotation, restore or remove it first", kerrors.ErrIO, moved)
	}
	return nil
}

// freeExpiredName returns the first unused expired name at or after from,
// with the second it encodes.
func freeExpiredName(canonical string, from time.Time) (string, time.Time) {
	secs := from.Unix()
	for {
		name := ExpiredName(canonical, secs)
		if !utils.FileExists(name) {
			return name, time.Unix(secs, 0)
		}
		secs++
	}
}

// SavePair saves both halves of a key pair under one identity. Both
// halves are checked before either is written.
func (k *Keystore) SavePair(id string, private, public io.WriterTo) (privatePath, publicPath string, err error) {
	if err := utils.ValidateIdentity(id); err != nil {
		return "", "", err
	}
	for _, role := range []Role{Private, Public} {
		path, err := k.Path(role, id)
		if err != nil {
			return "", "", err
		}
		if err := checkRotation(path); err != nil {
			return "", "", err
		}
	}
	if privatePath, err = k.Save(Private, id, private); err != nil {
		return "", "", err
	}
	if publicPath, err = k.Save(Public, id, public); err != nil {
		return "", "", err
	}
	return privatePath, publicPath, nil
}

// ExpiredName returns the name a canonical key file gets once superseded.
func ExpiredName(canonical string, expiresUnix int64) string {
	base := strings.TrimSuffix(canonical, KeyExt)
	return fmt.Sprintf("%s%s%d%s", base, expirationMarker, expiresUnix, KeyExt)
}

func permFor(role Role) os.FileMode {
	if role == Private {
		return 0600
	}
	return 0644
}

func writeKey(path string, key io.WriterTo, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", kerrors.ErrIO, path, err)
	}
	if _, err := key.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", kerrors.ErrIO, path, err)
	}
	return nil
}
