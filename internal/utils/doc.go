// Package utils provides shared helpers for the crypthru application.
//
// # Filesystem Utilities
//
//   - ExpandHome: resolves a leading "~" to the user's home directory
//   - FileExists, IsDir: cheap existence checks
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - ValidateIdentity, ValidatePassphrase: rules for new key pairs
//   - IdentityFromUserID: derives an identity from a key's user id
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//   - ShellCommand: wraps a command line for bash or cmd
//
// # Terminal Utilities
//
//   - ReadPassphrase: reads a secret from the terminal without echo
//   - IsTerminal: checks whether stdin is a terminal
package utils
