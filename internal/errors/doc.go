// Package errors provides typed error values for the crypthru engine.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Configuration errors: directive documents (ErrConfig, ErrMissingField, ErrUnknownDirective)
//   - Key errors: keystore resolution (ErrNoSuchKey, ErrNoPrivateKey, ErrAmbiguousIdentity)
//   - File errors: file system issues (ErrNotFound, ErrIO, ErrZipSlip)
//   - Interaction errors: console and external tools (ErrCancelled, ErrExternalTool)
//
// Two structured types carry extra context. ConfigError names the document
// a field came from and unwraps to ErrConfig plus its cause. ToolError keeps
// the exit code and output of an external command and unwraps to
// ErrExternalTool.
//
// # Usage
//
// Return errors from internal packages:
//
//	if len(ids) == 0 {
//	    return "", errors.ErrNoPrivateKey
//	}
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrAmbiguousIdentity) {
//	    // Suggest --private-id
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("renaming %s: %w: %v", path, errors.ErrIO, err)
package errors
