package directives

import (
	"github.com/PolarWolf314/crypthru/internal/directive"
)

// Directive names as used in documents and on the command line.
const (
	EncryptName         = "encrypt"
	DecryptName         = "decrypt"
	CreateKeypairName   = "create-keypair"
	ImportPublicKeyName = "import-public-key"
	ExecuteName         = "execute"
)

// Registry returns a registry holding every built-in directive.
func Registry() *directive.Registry {
	r := directive.NewRegistry()
	r.Register(EncryptName, "Encrypt files for one or more public keys, optionally zipped, wiped and watched.",
		func() (directive.Directive, error) { return &Encrypt{}, nil })
	r.Register(DecryptName, "Decrypt files with your private key, optionally unzipped, wiped and watched.",
		func() (directive.Directive, error) { return &Decrypt{}, nil })
	r.Register(CreateKeypairName, "Generate a new key pair into the keystore.",
		func() (directive.Directive, error) { return &CreateKeypair{}, nil })
	r.Register(ImportPublicKeyName, "Import somebody's public key into the keystore.",
		func() (directive.Directive, error) { return &ImportPublicKey{}, nil })
	r.Register(ExecuteName, "Run shell commands, one per line.",
		func() (directive.Directive, error) { return &Execute{}, nil })
	return r
}
