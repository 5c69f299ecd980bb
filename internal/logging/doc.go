// Package logger provides levelled, coloured logging for crypthru.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: shows info messages
//   - --debug: shows info and debug messages
//
// Warnings and errors are always written to stderr.
//
// # Log Methods
//
//	Logger.Infof()          // Shown with --verbose or --debug
//	Logger.Debugf()         // Shown only with --debug
//	Logger.Warnf()          // Always shown
//	Logger.Errorf()         // Always shown
//	Logger.ErrorfAndReturn  // Always shown, also returned as an error
//
// # Usage
//
// The root command creates a logger in its PersistentPreRun and passes it
// to the session, which hands it to every directive:
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Encrypting %s into %s", src, dst)
package logger
