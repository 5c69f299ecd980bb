package files

import (
	"os"
)

// IsOutdated reports whether result is missing or older than source.
// A source that cannot be read is never outdated.
func IsOutdated(source, result string) bool {
	resultInfo, err := os.Stat(result)
	if err != nil {
		return true
	}
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return false
	}
	return resultInfo.ModTime().Before(sourceInfo.ModTime())
}

// NeedsEncrypting returns the predicate selecting plaintext files whose
// ciphertext is missing or stale. force selects every plaintext file.
func NeedsEncrypting(naming NamingConvention, force bool) Predicate {
	return func(path string) bool {
		if naming.IsEncrypted(path) {
			return false
		}
		return force || IsOutdated(path, naming.EncryptedName(path))
	}
}

// NeedsDecrypting is the inverse of NeedsEncrypting.
func NeedsDecrypting(naming NamingConvention, force bool) Predicate {
	return func(path string) bool {
		plain, ok := naming.DecryptedName(path)
		if !ok {
			return false
		}
		return force || IsOutdated(path, plain)
	}
}
