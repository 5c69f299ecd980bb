// Package crypt is the crypto capability behind every directive.
//
// Service hides the cipher format behind opaque key handles. Two backends
// implement it:
//
//   - PGP, the default, writes binary OpenPGP files named *.pgp
//   - Age writes age files named *.age
//
// GPG shells out to a system gpg instead and addresses keys by identity in
// the gpg keyring. Performance accumulates bytes and elapsed time so a run
// can report its throughput.
package crypt
