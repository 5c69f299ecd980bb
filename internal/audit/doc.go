// Package audit provides the audit trail of directive runs.
//
// Every executed directive, outside preview mode, is recorded in a
// keystore-level audit log. This tells an operator which files were
// encrypted or decrypted, when, and what exactly was written.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	<keystore>/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Run id (UUID, shared by all directives of one invocation)
//   - OS user
//   - Directive description
//   - Source files, written files and a BLAKE3 digest of the written files
//
// # Usage
//
//	log := audit.NewLog(keystore.Root(), user)
//	err := log.Append(audit.Entry{Directive: d.Describe(), Files: in, Outputs: out})
//
// # Failure Handling
//
// Audit logging is best-effort. Append returns its error so the caller can
// warn, but a run never fails because of it.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
