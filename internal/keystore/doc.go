// Package keystore keeps private and public keys on disk, addressed by
// identity.
//
// # Layout
//
//	<root>/keys/private/<identity>.key
//	<root>/keys/public/<identity>.key
//	<root>/keys/public/<group>/<identity>.key
//
// # Rotation
//
// Saving a key under an identity that already has one never deletes the
// old key. The canonical file is renamed to <identity>.key.bak, the new key
// is written, and the old file is renamed to <identity>~<seconds>.key where
// seconds is the write time of the new file. The superseded key was
// therefore valid until that instant.
//
// The two renames are not atomic and are not guarded by a lock. A crash in
// between leaves the .bak file behind, and two processes rotating the same
// keystore can lose history. The keystore assumes a single writer.
//
// # History
//
// History returns the canonical record first and superseded records by
// decreasing expiration. LookupAtDate picks the key that was in force at a
// given instant, which lets old archives be matched with the key version
// that produced them.
package keystore
