package directives

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/crypthru/internal/directive"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/keystore"
	"github.com/PolarWolf314/crypthru/internal/session"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// ImportPublicKey copies a public key file into the keystore. Without a
// "public-id" the identity embedded in the key is used.
type ImportPublicKey struct {
	path     string
	publicID string
}

func (i *ImportPublicKey) Configure(d *directive.Decoder) error {
	var err error
	if i.path, err = d.ReadString("path"); err != nil {
		return err
	}
	i.publicID, err = d.ReadStringDefault("public-id", "")
	return err
}

func (i *ImportPublicKey) Describe() string {
	desc := "Import public key from file " + i.path
	if i.publicID != "" {
		desc += " as " + i.publicID
	}
	return desc
}

func (i *ImportPublicKey) Execute(ctx context.Context, s *session.Session) error {
	path, err := utils.ExpandHome(i.path)
	if err != nil {
		return err
	}
	if !utils.FileExists(path) {
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, path)
	}
	key, err := s.Service.ReadPublicKey(path)
	if err != nil {
		return fmt.Errorf("reading public key %s: %w", path, err)
	}

	id := i.publicID
	if id == "" {
		if id = key.Identity(); id == "" {
			return fmt.Errorf("%w: %s, supply a public-id", kerrors.ErrNoIdentity, path)
		}
		// The identity names the key file, so it must follow the keystore naming rules.
		if err := utils.ValidateIdentity(id); err != nil {
			return fmt.Errorf("%w; supply a public-id to import %s", err, path)
		}
	}

	if s.Preview {
		s.Report("Would import public key %s from %s", id, path)
		return nil
	}
	saved, err := s.Keystore.Save(keystore.Public, id, key)
	if err != nil {
		return err
	}
	s.Track(path, saved)
	s.Log.Infof("Public key %s imported", id)
	return nil
}
