package directives

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/crypthru/internal/archive"
	"github.com/PolarWolf314/crypthru/internal/directive"
	"github.com/PolarWolf314/crypthru/internal/files"
	"github.com/PolarWolf314/crypthru/internal/session"
)

// Decrypt decrypts the selected ciphertext files with the run's private key.
//
// Fields: path, filter, wipe, gpg, unzip.
type Decrypt struct {
	selection
	unzip bool
}

func (d *Decrypt) Configure(dec *directive.Decoder) error {
	if err := d.selection.configure(dec); err != nil {
		return err
	}
	var err error
	d.unzip, err = dec.ReadBool("unzip", false)
	return err
}

func (d *Decrypt) Describe() string {
	return "Decrypt " + d.grabber.Describe()
}

func (d *Decrypt) Execute(ctx context.Context, s *session.Session) error {
	needs := files.NeedsDecrypting(s.Service.Naming(), s.Force)
	candidates, err := d.grabber.Grab(needs)
	if err != nil {
		return err
	}
	for _, file := range candidates {
		if err := d.decryptFile(ctx, s, file); err != nil {
			return err
		}
	}
	if err := d.wipeIfApplicable(s, candidates); err != nil {
		return err
	}

	if !s.Watch {
		return nil
	}
	return d.watchDirectory(ctx, s, "decrypt", needs, func(path string) error {
		return d.decryptFile(ctx, s, path)
	})
}

func (d *Decrypt) decryptFile(ctx context.Context, s *session.Session, file string) error {
	target, ok := s.Service.Naming().DecryptedName(file)
	if !ok {
		return fmt.Errorf("%s is not named as an encrypted file", file)
	}
	if s.Preview {
		s.Report("Would decrypt %s into %s", file, target)
	} else {
		s.Report("Decrypting %s into %s", file, target)
		if err := d.decryptInto(ctx, s, file, target); err != nil {
			return err
		}
		s.Track(file, target)
	}

	if d.unzip && strings.EqualFold(filepath.Ext(target), archive.Ext) {
		return d.unzipInPlace(s, target)
	}
	return nil
}

func (d *Decrypt) decryptInto(ctx context.Context, s *session.Session, file, target string) error {
	start := time.Now()
	if d.useGPG(s) {
		id, err := s.PrivateIdentity()
		if err != nil {
			return err
		}
		pass, err := s.Passphrase(id)
		if err != nil {
			return err
		}
		if err := s.GPG.Decrypt(ctx, file, target, id, pass); err != nil {
			return err
		}
	} else {
		key, err := s.PrivateKey()
		if err != nil {
			return err
		}
		if err := s.Service.Decrypt(file, target, key); err != nil {
			return err
		}
	}
	return s.DecryptPerformance.Record(start, target)
}

func (d *Decrypt) unzipInPlace(s *session.Session, zipPath string) error {
	dir := filepath.Dir(zipPath)
	if s.Preview {
		s.Report("Would unzip %s into %s", zipPath, dir)
	} else {
		s.Report("Unzipping %s into %s", zipPath, dir)
		extracted, err := archive.Extract(zipPath, dir)
		if err != nil {
			return err
		}
		for _, file := range extracted {
			s.Track("", file)
		}
	}
	return files.Wipe([]string{zipPath}, s.Preview, func(msg string) { s.Report("%s", msg) })
}
