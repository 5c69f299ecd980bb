package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/utils"
)

// Action decides what a matching filter does with a file.
type Action int

const (
	Include Action = iota
	Exclude
)

func (a Action) String() string {
	if a == Include {
		return "+"
	}
	return "-"
}

// Filter is one entry of a grabber's ordered filter chain.
type Filter struct {
	Action  Action
	Pattern string
}

// Mode tells how a grabber resolved its path specification.
type Mode int

const (
	// ModeDirectory lists the direct children of a directory.
	ModeDirectory Mode = iota
	// ModeSingleFile targets one explicit file.
	ModeSingleFile
)

// Predicate is an extra per-file condition applied while grabbing.
type Predicate func(path string) bool

// Grabber resolves a path specification into candidate files.
//
// A specification naming an existing directory lists that directory and
// accepts unmatched files by default. One whose last segment holds a
// wildcard lists the parent directory with an implicit Include filter for
// the wildcard. Anything else targets a single file.
type Grabber struct {
	spec            string
	mode            Mode
	dir             string
	file            string
	filters         []Filter
	acceptByDefault bool
}

// NewGrabber inspects spec, expanding a leading "~".
func NewGrabber(spec string) (*Grabber, error) {
	fullPath, err := utils.ExpandHome(spec)
	if err != nil {
		return nil, err
	}

	g := &Grabber{spec: spec}
	base := filepath.Base(fullPath)

	switch {
	case utils.IsDir(fullPath):
		g.mode = ModeDirectory
		g.dir = fullPath
		g.acceptByDefault = true
	case hasWildcard(base):
		g.mode = ModeDirectory
		g.dir = filepath.Dir(fullPath)
		if err := g.AddFilter(Include, base); err != nil {
			return nil, err
		}
	default:
		g.mode = ModeSingleFile
		g.file = fullPath
		g.dir = filepath.Dir(fullPath)
	}
	return g, nil
}

func hasWildcard(name string) bool {
	return strings.ContainsAny(name, "*?[{")
}

// AddFilter appends a filter to the chain. Filters are evaluated in the
// order they were added.
func (g *Grabber) AddFilter(action Action, pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid filter pattern %q", pattern)
	}
	g.filters = append(g.filters, Filter{Action: action, Pattern: pattern})
	return nil
}

// Mode returns how the specification was resolved.
func (g *Grabber) Mode() Mode { return g.mode }

// Directory returns the listed directory, or the parent of a single file.
func (g *Grabber) Directory() string { return g.dir }

// Filters returns a copy of the filter chain.
func (g *Grabber) Filters() []Filter {
	return append([]Filter(nil), g.filters...)
}

// Passes evaluates the filter chain over the base name of path. The first
// matching filter decides. Without a match the file is accepted only when
// the grabber accepts by default and the chain holds no Include filter.
// An empty chain accepts everything.
func (g *Grabber) Passes(path string) bool {
	if len(g.filters) == 0 {
		return true
	}

	name := filepath.Base(path)
	hasInclude := false
	for _, f := range g.filters {
		if f.Action == Include {
			hasInclude = true
		}
		if ok, _ := doublestar.Match(f.Pattern, name); ok {
			return f.Action == Include
		}
	}
	return g.acceptByDefault && !hasInclude
}

// Grab returns the candidate files that pass both pred and the filter
// chain. A nil pred accepts everything. Directory listing is not recursive
// and skips sub-directories.
//
// Returns ErrNotFound if the target file or directory does not exist.
func (g *Grabber) Grab(pred Predicate) ([]string, error) {
	accept := func(path string) bool {
		return (pred == nil || pred(path)) && g.Passes(path)
	}

	if g.mode == ModeSingleFile {
		if _, err := os.Stat(g.file); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", kerrors.ErrNotFound, g.file)
			}
			return nil, fmt.Errorf("%w: stat %s: %v", kerrors.ErrIO, g.file, err)
		}
		if accept(g.file) {
			return []string{g.file}, nil
		}
		return nil, nil
	}

	if !utils.IsDir(g.dir) {
		return nil, fmt.Errorf("%w: directory %s", kerrors.ErrNotFound, g.dir)
	}

	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", kerrors.ErrIO, g.dir, err)
	}

	var result []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(g.dir, e.Name())
		if accept(path) {
			result = append(result, path)
		}
	}
	return result, nil
}

// Describe renders the specification and its filters, e.g. "in (+*.txt, -secret*)".
func (g *Grabber) Describe() string {
	if len(g.filters) == 0 {
		return g.spec
	}
	parts := make([]string, len(g.filters))
	for i, f := range g.filters {
		parts[i] = f.Action.String() + f.Pattern
	}
	return g.spec + " (" + strings.Join(parts, ", ") + ")"
}
