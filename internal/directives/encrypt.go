package directives

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/PolarWolf314/crypthru/internal/archive"
	"github.com/PolarWolf314/crypthru/internal/crypt"
	"github.com/PolarWolf314/crypthru/internal/directive"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/files"
	"github.com/PolarWolf314/crypthru/internal/session"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// Encrypt encrypts the selected plaintext files for a set of recipients.
//
// Fields: path, filter, wipe, gpg, zip, public-id, public-key.
type Encrypt struct {
	selection
	zip        string
	publicIDs  []string
	publicKeys []string

	recipients *recipients
}

// recipients are the collected public keys of one run.
type recipients struct {
	ids     []string
	keys    []crypt.PublicKey
	display string
}

func (e *Encrypt) Configure(d *directive.Decoder) error {
	if err := e.selection.configure(d); err != nil {
		return err
	}
	var err error
	if e.zip, err = d.ReadStringDefault("zip", ""); err != nil {
		return err
	}
	if e.publicIDs, err = d.ReadStrings("public-id"); err != nil {
		return err
	}
	e.publicKeys, err = d.ReadStrings("public-key")
	return err
}

func (e *Encrypt) Describe() string {
	return "Encrypt " + e.grabber.Describe()
}

func (e *Encrypt) Execute(ctx context.Context, s *session.Session) error {
	naming := s.Service.Naming()
	needs := files.NeedsEncrypting(naming, s.Force)
	grab := needs
	if e.zip != "" {
		bundle := archive.BundleName(e.grabber.Directory(), e.zip)
		grab = func(path string) bool {
			return !naming.IsEncrypted(path) && path != bundle
		}
	}

	candidates, err := e.grabber.Grab(grab)
	if err != nil {
		return err
	}
	if len(candidates) > 0 {
		if err := e.encryptBatch(ctx, s, candidates); err != nil {
			return err
		}
	}

	if !s.Watch {
		return nil
	}
	return e.watchDirectory(ctx, s, "encrypt", needs, func(path string) error {
		return e.encryptFile(ctx, s, path)
	})
}

func (e *Encrypt) encryptBatch(ctx context.Context, s *session.Session, candidates []string) error {
	if e.zip == "" {
		for _, file := range candidates {
			if err := e.encryptFile(ctx, s, file); err != nil {
				return err
			}
		}
		return e.wipeIfApplicable(s, candidates)
	}

	zipPath := archive.BundleName(e.grabber.Directory(), e.zip)
	if s.Preview {
		for _, file := range candidates {
			s.Report("Would zip %s into %s", file, zipPath)
		}
	} else {
		err := archive.Bundle(zipPath, candidates, func(file string) {
			s.Log.Infof("Zipping %s into %s", file, zipPath)
		})
		if err != nil {
			return err
		}
	}
	if err := e.encryptFile(ctx, s, zipPath); err != nil {
		return err
	}
	if err := files.Wipe([]string{zipPath}, s.Preview, func(msg string) { s.Report("%s", msg) }); err != nil {
		return err
	}
	return e.wipeIfApplicable(s, candidates)
}

func (e *Encrypt) encryptFile(ctx context.Context, s *session.Session, file string) error {
	rcpt, err := e.collect(s)
	if err != nil {
		return err
	}
	target := s.Service.Naming().EncryptedName(file)
	if s.Preview {
		s.Report("Would encrypt %s into %s for %s", file, target, rcpt.display)
		return nil
	}
	s.Report("Encrypting %s into %s for %s", file, target, rcpt.display)

	start := time.Now()
	if e.useGPG(s) {
		err = s.GPG.Encrypt(ctx, file, target, rcpt.ids)
	} else {
		err = s.Service.Encrypt(file, target, rcpt.keys...)
	}
	if err != nil {
		return err
	}
	if err := s.EncryptPerformance.Record(start, file); err != nil {
		return err
	}
	s.Track(file, target)
	return nil
}

// collect resolves the recipients once: the directive's ids and key files
// plus the global ones. An id naming a sub-directory of the public keys
// stands for every key inside it. gpg resolves ids itself, so only key
// files are read then.
func (e *Encrypt) collect(s *session.Session) (*recipients, error) {
	if e.recipients != nil {
		return e.recipients, nil
	}
	useGPG := e.useGPG(s)
	ids := union(e.publicIDs, s.PublicIDs)
	keyFiles := union(e.publicKeys, s.PublicKeyFiles)

	var paths []string
	if !useGPG {
		for _, id := range ids {
			resolved, err := s.Keystore.ResolveGroup(id)
			if err != nil {
				return nil, err
			}
			paths = append(paths, resolved...)
		}
	}
	for _, file := range keyFiles {
		expanded, err := utils.ExpandHome(file)
		if err != nil {
			return nil, err
		}
		paths = append(paths, expanded)
	}
	paths = union(paths, nil)
	if len(paths) == 0 && !(useGPG && len(ids) > 0) {
		return nil, kerrors.ErrNoPublicKeys
	}

	rcpt := &recipients{ids: ids}
	var names []string
	for _, path := range paths {
		key, err := s.Service.ReadPublicKey(path)
		if err != nil {
			return nil, fmt.Errorf("reading public key %s: %w", path, err)
		}
		rcpt.keys = append(rcpt.keys, key)
		name := key.Identity()
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		names = append(names, name)
	}
	if useGPG {
		names = append(names, ids...)
	}
	slices.Sort(names)
	rcpt.display = strings.Join(names, ", ")
	e.recipients = rcpt
	return rcpt, nil
}

// union returns the distinct values of a and b in first-seen order.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, v := range append(append([]string(nil), a...), b...) {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
