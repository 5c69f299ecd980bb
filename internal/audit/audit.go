package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// FileName is the audit log name inside the keystore root.
const FileName = "audit.jsonl"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`        // RFC3339 with microseconds.
	Run       string `json:"run"`       // UUID shared by every entry of one run.
	User      string `json:"user"`      // OS user running crypthru.
	Directive string `json:"directive"` // Directive description.

	// Optional fields depending on directive.
	Files   []string `json:"files,omitempty"`   // Processed sources.
	Outputs []string `json:"outputs,omitempty"` // Written files.
	Digest  string   `json:"digest,omitempty"`  // BLAKE3 over the outputs.
	Preview bool     `json:"preview,omitempty"`
}

// Log appends entries to a JSON Lines file.
type Log struct {
	path string
	run  string
	user string
}

// NewLog returns a log writing to <root>/audit.jsonl under a fresh run id.
func NewLog(root, user string) *Log {
	return &Log{path: filepath.Join(root, FileName), run: uuid.NewString(), user: user}
}

func (l *Log) Path() string { return l.path }

// Run returns the id stamped on every entry of this log.
func (l *Log) Run() string { return l.run }

// Append writes entry, filling in the timestamp, run, user and digest.
// Callers treat a failure as a warning; audit logging never fails a run.
func (l *Log) Append(entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	entry.Run = l.run
	if entry.User == "" {
		entry.User = l.user
	}
	if entry.Digest == "" && len(entry.Outputs) > 0 {
		digest, err := Digest(entry.Outputs)
		if err != nil {
			return err
		}
		entry.Digest = digest
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

// Digest hashes the content of files in order with BLAKE3 and returns it hex
// encoded. File names are mixed in so that swapped contents differ.
func Digest(files []string) (string, error) {
	h := blake3.New()
	for _, file := range files {
		if err := hashFile(h, file); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("digesting %s: %w", file, err)
	}
	defer f.Close()

	if _, err := io.WriteString(w, filepath.Base(file)+"\x00"); err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("digesting %s: %w", file, err)
	}
	return nil
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
