package files

import "strings"

// Encrypted file suffixes.
const (
	PGPSuffix    = ".pgp"
	LegacySuffix = ".gpg"
	AgeSuffix    = ".age"
)

// NamingConvention maps plaintext file names to their encrypted
// counterparts and back.
type NamingConvention interface {
	// IsEncrypted reports whether path carries an encrypted suffix.
	IsEncrypted(path string) bool
	// EncryptedName returns the ciphertext name for a plaintext path.
	EncryptedName(plain string) string
	// DecryptedName returns the plaintext name for an encrypted path, or
	// false when IsEncrypted(path) is false.
	DecryptedName(encrypted string) (string, bool)
}

// SuffixNaming appends Suffix on encryption and strips any of Recognized
// (Suffix included) on decryption.
type SuffixNaming struct {
	Suffix     string
	Recognized []string
}

// DefaultNaming writes ".pgp" and also reads the legacy ".gpg".
var DefaultNaming NamingConvention = SuffixNaming{Suffix: PGPSuffix, Recognized: []string{LegacySuffix}}

// AgeNaming writes and reads ".age".
var AgeNaming NamingConvention = SuffixNaming{Suffix: AgeSuffix}

func (n SuffixNaming) IsEncrypted(path string) bool {
	return n.matchedSuffix(path) != ""
}

func (n SuffixNaming) EncryptedName(plain string) string {
	return plain + n.Suffix
}

func (n SuffixNaming) DecryptedName(encrypted string) (string, bool) {
	suffix := n.matchedSuffix(encrypted)
	if suffix == "" {
		return "", false
	}
	return strings.TrimSuffix(encrypted, suffix), true
}

func (n SuffixNaming) matchedSuffix(path string) string {
	if strings.HasSuffix(path, n.Suffix) {
		return n.Suffix
	}
	for _, s := range n.Recognized {
		if strings.HasSuffix(path, s) {
			return s
		}
	}
	return ""
}
