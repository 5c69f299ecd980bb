package session

import (
	"fmt"
	"os"
	"runtime"

	"github.com/PolarWolf314/crypthru/internal/crypt"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/keystore"
	logger "github.com/PolarWolf314/crypthru/internal/logging"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// Special values of the passphrase option.
const (
	// AskMe prompts for the passphrase on first need.
	AskMe = "ask-me"
	// Empty stands for the empty passphrase.
	Empty = "empty"
)

// DefaultStopFile is the sentinel that ends watch mode.
const DefaultStopFile = "STOP"

// Prompter asks for a secret, typically on the terminal.
type Prompter func(prompt string) (string, error)

// Flags are the global switches shared by every directive of a run.
type Flags struct {
	Force   bool
	Preview bool
	Watch   bool
	RunGPG  bool
}

// Options configure a Session. Keystore, Service and Log are required.
type Options struct {
	Flags

	Keystore *keystore.Keystore
	Service  crypt.Service
	GPG      *crypt.GPG
	Log      logger.Logger

	// PublicIDs and PublicKeyFiles are recipients added to every encrypt.
	PublicIDs      []string
	PublicKeyFiles []string

	// PrivateKeyFile wins over PrivateID; both empty picks the only
	// private key of the keystore.
	PrivateID      string
	PrivateKeyFile string

	// Passphrase is a literal, AskMe, Empty, or "" to prompt on first need.
	Passphrase string

	// Properties are looked up before the environment for ${...}
	// placeholders and the GPG binary.
	Properties map[string]string

	StopFile string
	Prompter Prompter

	// Dialog opens the console dialog used by key pair creation.
	Dialog func() (*ui.Dialog, error)
}

// Session is the state of one run, passed by reference to every directive.
// It is not safe for concurrent use; directives run one after the other.
type Session struct {
	Flags

	Keystore *keystore.Keystore
	Service  crypt.Service
	GPG      *crypt.GPG
	Log      logger.Logger

	PublicIDs      []string
	PublicKeyFiles []string
	Properties     map[string]string
	StopFile       string

	EncryptPerformance *crypt.Performance
	DecryptPerformance *crypt.Performance

	privateID      string
	privateKeyFile string
	passOption     string
	passphrase     *string
	privateKey     crypt.PrivateKey
	prompter       Prompter
	dialog         func() (*ui.Dialog, error)

	sources []string
	outputs []string
}

// New builds a session from opts.
func New(opts Options) (*Session, error) {
	if opts.Keystore == nil || opts.Service == nil {
		return nil, fmt.Errorf("session needs a keystore and a crypto service")
	}
	s := &Session{
		Flags:              opts.Flags,
		Keystore:           opts.Keystore,
		Service:            opts.Service,
		GPG:                opts.GPG,
		Log:                opts.Log,
		PublicIDs:          opts.PublicIDs,
		PublicKeyFiles:     opts.PublicKeyFiles,
		Properties:         opts.Properties,
		StopFile:           opts.StopFile,
		EncryptPerformance: crypt.NewPerformance("Encrypt"),
		DecryptPerformance: crypt.NewPerformance("Decrypt"),
		privateID:          opts.PrivateID,
		privateKeyFile:     opts.PrivateKeyFile,
		passOption:         opts.Passphrase,
		prompter:           opts.Prompter,
		dialog:             opts.Dialog,
	}
	if s.StopFile == "" {
		s.StopFile = DefaultStopFile
	}
	if s.GPG == nil {
		s.GPG = &crypt.GPG{Log: s.Log}
	}
	if s.prompter == nil {
		s.prompter = terminalPrompter
	}
	if s.dialog == nil {
		s.dialog = ui.NewDialog
	}
	return s, nil
}

func terminalPrompter(prompt string) (string, error) {
	pass, err := utils.ReadPassphrase(prompt)
	return string(pass), err
}

// Passphrase resolves the passphrase once and caches it. The prompt fires at
// most once per run, on the first call, and only when the option is AskMe
// or absent.
func (s *Session) Passphrase(id string) (string, error) {
	if s.passphrase != nil {
		return *s.passphrase, nil
	}
	var pass string
	switch s.passOption {
	case Empty:
		pass = ""
	case AskMe, "":
		answer, err := s.prompter(fmt.Sprintf("Passphrase for %s: ", id))
		if err != nil {
			return "", err
		}
		pass = answer
	default:
		pass = s.passOption
	}
	s.passphrase = &pass
	return pass, nil
}

// PrivateIdentity returns the selected identity, picking the only private
// key of the keystore when none was given.
func (s *Session) PrivateIdentity() (string, error) {
	if s.privateID == "" {
		id, err := s.Keystore.PickIdentity()
		if err != nil {
			return "", err
		}
		s.privateID = id
	}
	return s.privateID, nil
}

// PrivateKey loads and unlocks the private key once per run.
func (s *Session) PrivateKey() (crypt.PrivateKey, error) {
	if s.privateKey != nil {
		return s.privateKey, nil
	}

	var id, path string
	if s.privateKeyFile != "" {
		expanded, err := utils.ExpandHome(s.privateKeyFile)
		if err != nil {
			return nil, err
		}
		if !utils.FileExists(expanded) {
			return nil, fmt.Errorf("%w: private key file %s", kerrors.ErrNotFound, expanded)
		}
		id, path = s.privateID, expanded
		if id == "" {
			id = expanded
		}
	} else {
		var err error
		if id, err = s.PrivateIdentity(); err != nil {
			return nil, err
		}
		if path, err = s.Keystore.Resolve(keystore.Private, id); err != nil {
			return nil, err
		}
	}
	s.warnIfExposed(path)

	pass, err := s.Passphrase(id)
	if err != nil {
		return nil, err
	}
	key, err := s.Service.ReadPrivateKey(path, pass)
	if err != nil {
		return nil, err
	}
	s.Log.Infof("Using private key of %s loaded from %s", id, path)
	s.privateKey = key
	return key, nil
}

func (s *Session) warnIfExposed(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0077 != 0 {
		s.Log.Warnf("Private key %s is accessible by other users (mode %04o)", path, info.Mode().Perm())
	}
}

// Report prints what a directive does or, in preview mode, would do.
// Outside preview mode it is an info message.
func (s *Session) Report(format string, args ...any) {
	if !s.Preview {
		s.Log.Infof(format, args...)
		return
	}
	out := s.Log.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprint(out, ui.EnsureNewline(ui.Warning.Sprint("[preview] ")+fmt.Sprintf(format, args...)))
}

// Dialog opens the interactive console dialog.
func (s *Session) Dialog() (*ui.Dialog, error) {
	return s.dialog()
}

// Property looks key up in the run properties, then in the environment.
func (s *Session) Property(key string) (string, bool) {
	if v, ok := s.Properties[key]; ok {
		return v, true
	}
	return os.LookupEnv(key)
}

// Track records a processed source and the file written from it. Preview
// runs record nothing.
func (s *Session) Track(source, output string) {
	if s.Preview {
		return
	}
	if source != "" {
		s.sources = append(s.sources, source)
	}
	if output != "" {
		s.outputs = append(s.outputs, output)
	}
}

// TakeActivity returns what was tracked since the previous call and resets it.
func (s *Session) TakeActivity() (sources, outputs []string) {
	sources, outputs = s.sources, s.outputs
	s.sources, s.outputs = nil, nil
	return sources, outputs
}

// PerformanceFigures returns the non-empty throughput lines of the run.
func (s *Session) PerformanceFigures() []string {
	var lines []string
	for _, p := range []*crypt.Performance{s.EncryptPerformance, s.DecryptPerformance} {
		if f := p.Figures(); f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}
