// Package files selects the files a directive works on.
//
// NamingConvention maps plaintext names to encrypted names and back.
// DefaultNaming appends ".pgp" and also reads the legacy ".gpg"; AgeNaming
// uses ".age".
//
// Grabber turns a path specification into candidates. The specification is
// a directory, a glob in its last segment, or a single file. An ordered
// chain of Include/Exclude filters is matched against base names and the
// first match wins. When nothing matches, a file is accepted only for a
// plain directory specification whose chain holds no Include filter.
//
// NeedsEncrypting and NeedsDecrypting build the staleness predicates: a
// file needs work when its counterpart is missing or older, or when force
// is set. Wipe deletes processed sources, or just reports in preview mode.
package files
