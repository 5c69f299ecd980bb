package files

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
)

// writeTestFile is a helper to write test files with 0644 permissions.
// #nosec G306 -- Test files are temporary and don't contain sensitive data.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { // #nosec G306
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func setupCandidates(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		writeTestFile(t, filepath.Join(dir, n), "content of "+n)
	}
	return dir
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	sort.Strings(names)
	return names
}

func grabNames(t *testing.T, g *Grabber, pred Predicate) []string {
	t.Helper()
	got, err := g.Grab(pred)
	if err != nil {
		t.Fatalf("Failed to grab: %v", err)
	}
	return baseNames(got)
}

func TestNewGrabberModes(t *testing.T) {
	dir := setupCandidates(t, "a.txt")

	g, err := NewGrabber(dir)
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if g.Mode() != ModeDirectory || g.Directory() != dir || len(g.Filters()) != 0 {
		t.Errorf("Unexpected directory grabber: mode=%v dir=%s filters=%v", g.Mode(), g.Directory(), g.Filters())
	}

	g, err = NewGrabber(filepath.Join(dir, "*.txt"))
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if g.Mode() != ModeDirectory || g.Directory() != dir {
		t.Errorf("Expected glob to list parent directory, got mode=%v dir=%s", g.Mode(), g.Directory())
	}
	if f := g.Filters(); len(f) != 1 || f[0].Action != Include || f[0].Pattern != "*.txt" {
		t.Errorf("Expected implicit include filter, got %v", f)
	}

	g, err = NewGrabber(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if g.Mode() != ModeSingleFile {
		t.Errorf("Expected single file mode, got %v", g.Mode())
	}
}

func TestGrabDirectoryDefaultAccept(t *testing.T) {
	dir := setupCandidates(t, "a.txt", "b.csv")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("Failed to create sub directory: %v", err)
	}
	writeTestFile(t, filepath.Join(dir, "sub", "deep.txt"), "x")

	g, err := NewGrabber(dir)
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}

	got := grabNames(t, g, nil)
	if strings.Join(got, ",") != "a.txt,b.csv" {
		t.Errorf("Expected non-recursive listing of files, got %v", got)
	}
}

func TestFilterChain(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		want    string
	}{
		{
			name:    "IncludeOnlyRejectsUnmatched",
			filters: []Filter{{Include, "*.txt"}},
			want:    "a.txt,secret1.txt",
		},
		{
			name:    "ExcludeOnlyKeepsDefaultAccept",
			filters: []Filter{{Exclude, "secret*.txt"}},
			want:    "a.txt,b.csv",
		},
		{
			name:    "MixedExcludeFirst",
			filters: []Filter{{Exclude, "secret*.txt"}, {Include, "*.txt"}},
			want:    "a.txt",
		},
		{
			name:    "MixedIncludeFirstWins",
			filters: []Filter{{Include, "*.txt"}, {Exclude, "secret*.txt"}},
			want:    "a.txt,secret1.txt",
		},
		{
			name:    "BraceAlternatives",
			filters: []Filter{{Include, "*.{txt,csv}"}, {Exclude, "*"}},
			want:    "a.txt,b.csv,secret1.txt",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := setupCandidates(t, "a.txt", "secret1.txt", "b.csv")
			g, err := NewGrabber(dir)
			if err != nil {
				t.Fatalf("Failed to create grabber: %v", err)
			}
			for _, f := range tc.filters {
				if err := g.AddFilter(f.Action, f.Pattern); err != nil {
					t.Fatalf("Failed to add filter: %v", err)
				}
			}

			if got := strings.Join(grabNames(t, g, nil), ","); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestGrabGlobSpec(t *testing.T) {
	dir := setupCandidates(t, "a.txt", "b.csv", "c.txt")

	g, err := NewGrabber(filepath.Join(dir, "*.txt"))
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if got := strings.Join(grabNames(t, g, nil), ","); got != "a.txt,c.txt" {
		t.Errorf("Expected a.txt,c.txt, got %s", got)
	}
}

func TestGrabExtraPredicate(t *testing.T) {
	dir := setupCandidates(t, "a.txt", "b.txt")

	g, err := NewGrabber(dir)
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	got := grabNames(t, g, func(p string) bool { return filepath.Base(p) == "b.txt" })
	if strings.Join(got, ",") != "b.txt" {
		t.Errorf("Expected only b.txt, got %v", got)
	}
}

func TestGrabSingleFile(t *testing.T) {
	dir := setupCandidates(t, "a.txt")
	path := filepath.Join(dir, "a.txt")

	g, err := NewGrabber(path)
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	got, err := g.Grab(nil)
	if err != nil {
		t.Fatalf("Failed to grab: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Errorf("Expected [%s], got %v", path, got)
	}

	if err := g.AddFilter(Include, "*.csv"); err != nil {
		t.Fatalf("Failed to add filter: %v", err)
	}
	got, err = g.Grab(nil)
	if err != nil {
		t.Fatalf("Failed to grab: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected filtered single file to be rejected, got %v", got)
	}
}

func TestGrabNotFound(t *testing.T) {
	dir := t.TempDir()

	g, err := NewGrabber(filepath.Join(dir, "missing.txt"))
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if _, err := g.Grab(nil); !errors.Is(err, kerrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing file, got %v", err)
	}

	g, err = NewGrabber(filepath.Join(dir, "nodir", "*.txt"))
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if _, err := g.Grab(nil); !errors.Is(err, kerrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing directory, got %v", err)
	}
}

func TestAddFilterInvalidPattern(t *testing.T) {
	g, err := NewGrabber(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if err := g.AddFilter(Include, "[abc"); err == nil {
		t.Error("Expected invalid pattern to be rejected")
	}
}

func TestDescribe(t *testing.T) {
	g, err := NewGrabber("in")
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	if got := g.Describe(); got != "in" {
		t.Errorf("Describe() = %q", got)
	}

	_ = g.AddFilter(Include, "*.txt")
	_ = g.AddFilter(Exclude, "secret*")
	if got := g.Describe(); got != "in (+*.txt, -secret*)" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestGrabLeavesFilesystemUntouched(t *testing.T) {
	dir := setupCandidates(t, "a.txt", "b.csv")
	before, _ := os.ReadDir(dir)

	g, err := NewGrabber(dir)
	if err != nil {
		t.Fatalf("Failed to create grabber: %v", err)
	}
	_ = g.AddFilter(Exclude, "*.csv")
	if _, err := g.Grab(nil); err != nil {
		t.Fatalf("Failed to grab: %v", err)
	}

	after, _ := os.ReadDir(dir)
	if len(before) != len(after) {
		t.Errorf("Directory changed: %d entries before, %d after", len(before), len(after))
	}
}
