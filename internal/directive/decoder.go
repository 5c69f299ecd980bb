package directive

import (
	"fmt"
	"strconv"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/PolarWolf314/crypthru/internal/files"
)

// Decoder reads the fields of one directive node. Every string it returns
// has been through placeholder expansion. A field holding null counts as
// absent.
type Decoder struct {
	source   string
	fields   map[string]any
	expander *Expander
}

// NewDecoder wraps node, which must be a mapping.
func NewDecoder(node any, source string, expander *Expander) (*Decoder, error) {
	fields, ok := asMap(node)
	if !ok {
		return nil, &kerrors.ConfigError{Source: source, Err: fmt.Errorf("not a mapping: %s", abbrev(fmt.Sprint(node), 40))}
	}
	if expander == nil {
		expander = &Expander{}
	}
	return &Decoder{source: source, fields: fields, expander: expander}, nil
}

// Source names the document the node came from.
func (d *Decoder) Source() string { return d.source }

func (d *Decoder) fail(key string, err error) error {
	return &kerrors.ConfigError{Source: d.source, Key: key, Err: err}
}

func (d *Decoder) expand(key string, s string) (string, error) {
	out, err := d.expander.Expand(s)
	if err != nil {
		return "", d.fail(key, err)
	}
	return out, nil
}

// ReadString returns the required string field key.
func (d *Decoder) ReadString(key string) (string, error) {
	v := d.fields[key]
	if v == nil {
		return "", d.fail(key, kerrors.ErrMissingField)
	}
	return d.expand(key, scalarString(v))
}

// ReadStringDefault returns key, or def when absent. def is expanded too.
func (d *Decoder) ReadStringDefault(key, def string) (string, error) {
	v := d.fields[key]
	if v == nil {
		return d.expand(key, def)
	}
	return d.expand(key, scalarString(v))
}

// ReadStrings accepts a scalar or a list and always returns a list, empty
// when key is absent.
func (d *Decoder) ReadStrings(key string) ([]string, error) {
	v := d.fields[key]
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		s, err := d.expand(key, scalarString(v))
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		s, err := d.expand(key, scalarString(el))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadBool returns key, or def when absent. Anything but a boolean fails with
// ErrTypeMismatch.
func (d *Decoder) ReadBool(key string, def bool) (bool, error) {
	v := d.fields[key]
	if v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, d.fail(key, fmt.Errorf("%w: can only be true or false", kerrors.ErrTypeMismatch))
	}
	return b, nil
}

// ReadMapList returns the list of mappings under key, empty when absent.
func (d *Decoder) ReadMapList(key string) ([]map[string]any, error) {
	v := d.fields[key]
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, d.fail(key, fmt.Errorf("%w: not a list", kerrors.ErrTypeMismatch))
	}
	out := make([]map[string]any, 0, len(list))
	for _, el := range list {
		m, ok := asMap(el)
		if !ok {
			return nil, d.fail(key, fmt.Errorf("%w: not a mapping (%s)", kerrors.ErrTypeMismatch, abbrev(fmt.Sprint(el), 40)))
		}
		out = append(out, m)
	}
	return out, nil
}

// CaptureFilters adds the include/exclude entries of the "filter" list to g,
// in document order. An entry with both keys counts as an include.
func (d *Decoder) CaptureFilters(g *files.Grabber) error {
	entries, err := d.ReadMapList("filter")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		action, pattern := files.Include, entry["include"]
		if pattern == nil {
			action, pattern = files.Exclude, entry["exclude"]
		}
		if pattern == nil {
			continue
		}
		expanded, err := d.expand("filter", scalarString(pattern))
		if err != nil {
			return err
		}
		if err := g.AddFilter(action, expanded); err != nil {
			return d.fail("filter", err)
		}
	}
	return nil
}

// asMap accepts both map shapes produced by the YAML and JSON decoders.
func asMap(node any) (map[string]any, bool) {
	switch m := node.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func abbrev(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
