// Package archive bundles files into a single zip before encryption and
// unpacks decrypted bundles.
//
// Bundles are flat: entries carry base names only. Extraction rejects entries
// that would land outside the target directory (zip slip).
package archive
