package directive

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/session"
)

// Directive is a named, declaratively configured unit of work.
//
// Configure is called exactly once, right after construction. Execute may
// run several times and must skip files that are already processed.
type Directive interface {
	Configure(d *Decoder) error
	Describe() string
	Execute(ctx context.Context, s *session.Session) error
}

// Factory builds an unconfigured directive.
type Factory func() (Directive, error)

type registration struct {
	summary string
	factory Factory
}

// Registry maps directive names to factories.
type Registry struct {
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register adds name. It panics on a duplicate or empty name, which is a
// programming error caught at startup.
func (r *Registry) Register(name, summary string, factory Factory) {
	if name == "" || factory == nil {
		panic("directive: empty name or nil factory")
	}
	if _, dup := r.entries[name]; dup {
		panic("directive: duplicate registration of " + name)
	}
	r.entries[name] = registration{summary: summary, factory: factory}
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Summary returns the one-line description registered with name.
func (r *Registry) Summary(name string) string {
	return r.entries[name].summary
}

// New instantiates the directive registered as name.
func (r *Registry) New(name string) (Directive, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, known directives: %s", kerrors.ErrUnknownDirective, name, strings.Join(r.Names(), ", "))
	}
	d, err := entry.factory()
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", kerrors.ErrInstantiation, name, err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w %q: factory returned nothing", kerrors.ErrInstantiation, name)
	}
	return d, nil
}

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?\d+\.\d*$`)
)

// Coerce types a command-line value: the true/false literals, then integers,
// then decimals, otherwise the string itself.
func Coerce(s string) any {
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case integerPattern.MatchString(s):
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	case decimalPattern.MatchString(s):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
