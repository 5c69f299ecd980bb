package utils

import (
	"fmt"
	"regexp"
	"strings"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/ui"
)

const (
	// MinIdentityLength is the shortest identity accepted for a new key pair.
	MinIdentityLength = 3

	// MinPassphraseLength is the shortest passphrase accepted for a new key pair.
	MinPassphraseLength = 8
)

var (
	identityRegex = regexp.MustCompile(`^[.A-Za-z0-9@_-]+$`)

	// emailWrapperRegex captures the address of a "Name <address>" user id.
	emailWrapperRegex = regexp.MustCompile(`^.*<([^<>]+)>$`)
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// ValidateIdentity checks the naming rules for a key owner identity.
func ValidateIdentity(id string) error {
	if len(id) < MinIdentityLength {
		return fmt.Errorf("%w: %q must have at least %d characters", kerrors.ErrInvalidIdentity, id, MinIdentityLength)
	}
	if !identityRegex.MatchString(id) {
		return fmt.Errorf("%w: %q contains invalid characters", kerrors.ErrInvalidIdentity, id)
	}
	return nil
}

// ValidatePassphrase checks the minimum passphrase length.
func ValidatePassphrase(pass string) error {
	if len(pass) < MinPassphraseLength {
		return fmt.Errorf("%w: at least %d characters are required", kerrors.ErrWeakPassphrase, MinPassphraseLength)
	}
	return nil
}

// IdentityFromUserID turns a key user id into an identity. A user id in
// the "Name <address>" form yields the address inside the brackets; any
// other user id is returned trimmed.
func IdentityFromUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if m := emailWrapperRegex.FindStringSubmatch(userID); m != nil {
		return strings.TrimSpace(m[1])
	}
	return userID
}
