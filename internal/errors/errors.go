package errors

import (
	"errors"
	"fmt"
)

// Configuration errors indicate a malformed or incomplete directive document.
var (
	// ErrConfig indicates a directive document could not be decoded.
	ErrConfig = errors.New("invalid directive configuration")

	// ErrMissingField indicates a required directive field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrTypeMismatch indicates a directive field holds a value of the wrong type.
	ErrTypeMismatch = errors.New("field has the wrong type")

	// ErrUnknownDirective indicates no directive is registered under the requested name.
	ErrUnknownDirective = errors.New("unknown directive")

	// ErrInstantiation indicates a registered directive factory failed to build an instance.
	ErrInstantiation = errors.New("cannot instantiate directive")
)

// Key errors indicate the keystore could not resolve the requested key.
var (
	// ErrNoSuchKey indicates the canonical key file for an identity does not exist.
	ErrNoSuchKey = errors.New("no such key")

	// ErrNoPrivateKey indicates the keystore holds no private key at all.
	ErrNoPrivateKey = errors.New("there is no private key, create a key pair first")

	// ErrAmbiguousIdentity indicates several private keys exist and none was selected.
	ErrAmbiguousIdentity = errors.New("no private identity specified and several private keys found")

	// ErrNoIdentity indicates a public key carries no user identity.
	ErrNoIdentity = errors.New("no user identity found in the key")

	// ErrNoPublicKeys indicates an encryption was requested without any recipient.
	ErrNoPublicKeys = errors.New("no public key defined for encrypting")

	// ErrInvalidIdentity indicates an identity string breaks the naming rules.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrWeakPassphrase indicates a passphrase is shorter than the minimum length.
	ErrWeakPassphrase = errors.New("passphrase is too short")

	// ErrInvalidKey indicates a key file is malformed or of the wrong kind.
	ErrInvalidKey = errors.New("invalid or unsupported key file")
)

// File errors indicate issues with file discovery or access.
var (
	// ErrNotFound indicates a source file or directory does not exist.
	ErrNotFound = errors.New("no such file or directory")

	// ErrIO indicates a filesystem operation failed.
	ErrIO = errors.New("i/o failure")

	// ErrZipSlip indicates an archive entry would be extracted outside its target directory.
	ErrZipSlip = errors.New("archive entry is outside of the target directory")
)

// Interaction errors indicate the console could not provide the requested input.
var (
	// ErrCancelled indicates the user cancelled an interactive dialog.
	ErrCancelled = errors.New("cancelled by user")

	// ErrNoConsole indicates interactive input was needed but no terminal is attached.
	ErrNoConsole = errors.New("no console available, supply the value on the command line")

	// ErrExternalTool indicates an external command exited with a non-zero code.
	ErrExternalTool = errors.New("external tool failed")
)

// ConfigError reports a directive document problem together with its source.
type ConfigError struct {
	// Source names the document, e.g. a file path or "(command line)".
	Source string
	// Key is the offending field, empty when the whole node is at fault.
	Key string
	// Err is the underlying cause, typically ErrMissingField or ErrTypeMismatch.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: [%s] %v", e.Source, e.Key, e.Err)
}

// Unwrap exposes both ErrConfig and the specific cause to errors.Is.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}

// ToolError reports a non-zero exit from an external command.
type ToolError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("exit code %d when running %s", e.ExitCode, e.Command)
}

func (e *ToolError) Unwrap() error {
	return ErrExternalTool
}
