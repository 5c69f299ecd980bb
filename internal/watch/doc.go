// Package watch turns a directory into a stream of file events for the
// continuous (watch) mode of encrypt and decrypt.
//
// A Watcher is bound to one directory. React runs the reaction for each new
// file synchronously, so reactions never overlap. Dropping the sentinel file
// (see StopOn) or cancelling the context ends the loop cleanly.
package watch
