package directive

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
)

var (
	placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	expandPattern      = regexp.MustCompile(`^expand: *(.+)$`)
)

// Expander substitutes ${...} placeholders in directive values.
//
//	${NAME}           run property NAME, else environment variable NAME
//	${expand: *.txt}  space-joined names in Dir matching the glob
//
// Unresolved placeholders are left verbatim.
type Expander struct {
	Properties map[string]string

	// Env defaults to os.LookupEnv.
	Env func(key string) (string, bool)

	// Dir is the directory listed by expand; "" means the working directory.
	Dir string
}

// Expand returns s with every resolvable placeholder replaced.
func (e *Expander) Expand(s string) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		replacement, ok, err := e.evaluate(s[m[2]:m[3]])
		if err != nil {
			return "", err
		}
		if !ok {
			replacement = s[m[0]:m[1]]
		}
		b.WriteString(replacement)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func (e *Expander) evaluate(expr string) (string, bool, error) {
	if m := expandPattern.FindStringSubmatch(expr); m != nil {
		list, err := e.expandGlob(m[1])
		return list, err == nil, err
	}
	if v, ok := e.Properties[expr]; ok {
		return v, true, nil
	}
	env := e.Env
	if env == nil {
		env = os.LookupEnv
	}
	v, ok := env(expr)
	return v, ok, nil
}

func (e *Expander) expandGlob(glob string) (string, error) {
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: expanding %s: %v", kerrors.ErrIO, glob, err)
	}
	var names []string
	for _, entry := range entries {
		if ok, _ := doublestar.Match(glob, entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	return strings.Join(names, " "), nil
}
