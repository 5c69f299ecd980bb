package directives

import (
	"context"
	"errors"

	"github.com/PolarWolf314/crypthru/internal/directive"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/session"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// CreateKeypair generates a key pair and stores both halves in the keystore.
// Identity and passphrase come from the "id" and "passphrase" fields or, when
// either is missing, from a console dialog.
type CreateKeypair struct {
	identity   string
	passphrase string
}

func (c *CreateKeypair) Configure(d *directive.Decoder) error {
	var err error
	if c.identity, err = d.ReadStringDefault("id", ""); err != nil {
		return err
	}
	c.passphrase, err = d.ReadStringDefault("passphrase", "")
	return err
}

func (c *CreateKeypair) Describe() string {
	return "Create Key Pair"
}

func (c *CreateKeypair) Execute(ctx context.Context, s *session.Session) error {
	id, pass := c.identity, c.passphrase
	if id != "" {
		if err := utils.ValidateIdentity(id); err != nil {
			return err
		}
	}
	var dialog *ui.Dialog
	if id == "" || pass == "" {
		var err error
		if dialog, err = s.Dialog(); err != nil {
			return err
		}
		id, pass, err = askKeypair(dialog, id)
		if errors.Is(err, kerrors.ErrCancelled) {
			s.Log.Warnf("Key pair creation cancelled")
			return nil
		}
		if err != nil {
			return err
		}
	} else if err := utils.ValidatePassphrase(pass); err != nil {
		return err
	}

	if s.Preview {
		s.Report("Would generate a key pair for %s into %s", id, s.Keystore.Root())
		return nil
	}
	s.Report("Generating a key pair for %s", id)
	pair, err := s.Service.CreateKeyPair(id, pass)
	if err != nil {
		return err
	}
	privatePath, publicPath, err := s.Keystore.SavePair(id, pair.Private, pair.Public)
	if err != nil {
		return err
	}
	s.Track("", publicPath)
	s.Track("", privatePath)

	if dialog != nil {
		dialog.Say("Your public key %s has been generated into file %s.\n"+
			"Never mind in protecting or hiding this file. You can publicly transmit it to\n"+
			"whoever will send you messages or data.", ui.Identity.Sprint(id), ui.Path.Sprint(publicPath))
		dialog.Say("Your private key %s has been generated into file %s.", ui.Identity.Sprint(id), ui.Path.Sprint(privatePath))
		dialog.Error(" .------------------------------------------------------------------------.\n" +
			" | Please keep this file STRICTLY WITH YOU and never transmit to anybody! |\n" +
			" '------------------------------------------------------------------------'")
	}
	s.Log.Infof("New key pair generated for %s", id)
	return nil
}

// askKeypair runs the identity and passphrase questions until both answers
// are valid. A preset identity skips its question.
func askKeypair(d *ui.Dialog, id string) (string, string, error) {
	d.Say("You are going to generate a new key-pair. Please answer the following questions.")
	for id == "" {
		answer, err := d.Ask("What is your ID (email, phone, code name... )")
		if err != nil {
			return "", "", err
		}
		switch {
		case len(answer) < utils.MinIdentityLength:
			d.Error("Your ID shall have at least %d characters. Please try again.", utils.MinIdentityLength)
		case utils.ValidateIdentity(answer) != nil:
			d.Error("Your ID contains invalid characters.")
		default:
			id = answer
		}
	}

	for {
		pass, err := d.AskSecret("Type the passphrase for %s", id)
		if err != nil {
			return "", "", err
		}
		if len(pass) < utils.MinPassphraseLength {
			d.Error("Your passphrase shall have at least %d characters. Please try again.", utils.MinPassphraseLength)
			continue
		}
		confirm, err := d.AskSecret("Confirm (type again) your passphrase")
		if err != nil {
			return "", "", err
		}
		if confirm == pass {
			return id, pass, nil
		}
		d.Error("Your confirmation mismatches. Let's try again...")
	}
}
