package directive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Sources reported in errors for directives not read from a file.
const (
	TokenSource  = "(command line)"
	InlineSource = "<command line>"
)

// NameField names the directive type inside a node.
const NameField = "directive"

// Loader turns directive documents into configured directives.
type Loader struct {
	Registry *Registry
	Expander *Expander
}

// LoadFile reads a document holding a sequence of directive nodes. Files
// ending in .json or .jsonc are read as JSON with comments, anything else as
// YAML.
func (l *Loader) LoadFile(path string) ([]Directive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no such directive file %s", kerrors.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: reading directives from %s: %v", kerrors.ErrIO, path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return l.ParseJSON(data, path)
	default:
		return l.ParseYAML(data, path)
	}
}

// ParseYAML builds the directives of a YAML sequence.
func (l *Loader) ParseYAML(data []byte, source string) ([]Directive, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &kerrors.ConfigError{Source: source, Err: fmt.Errorf("parsing YAML: %v", err)}
	}
	return l.buildAll(doc, source)
}

// ParseJSON builds the directives of a JSON array, comments and trailing
// commas allowed.
func (l *Loader) ParseJSON(data []byte, source string) ([]Directive, error) {
	var doc any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, &kerrors.ConfigError{Source: source, Err: fmt.Errorf("parsing JSON: %v", err)}
	}
	return l.buildAll(doc, source)
}

func (l *Loader) buildAll(doc any, source string) ([]Directive, error) {
	list, ok := doc.([]any)
	if !ok {
		return nil, &kerrors.ConfigError{Source: source, Err: errors.New("does not contain a sequence of directives")}
	}
	result := make([]Directive, 0, len(list))
	for _, node := range list {
		d, err := l.Build(node, source)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// ParseInline builds one directive from a YAML mapping given on the command
// line, e.g. "{directive: encrypt, path: in}".
func (l *Loader) ParseInline(text string) (Directive, error) {
	var node any
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, &kerrors.ConfigError{Source: InlineSource, Err: fmt.Errorf("parsing YAML [%s]: %v", text, err)}
	}
	return l.Build(node, InlineSource)
}

// Convert builds directives from command-line tokens. A token without "="
// starts a new directive of that name; key=value tokens set its fields.
func (l *Loader) Convert(tokens []string) ([]Directive, error) {
	var result []Directive
	var fields map[string]any
	for _, token := range tokens {
		if key, value, isField := strings.Cut(token, "="); isField {
			if fields == nil {
				return nil, &kerrors.ConfigError{Source: TokenSource, Err: fmt.Errorf("unrecognized argument: %s", token)}
			}
			fields[key] = Coerce(value)
			continue
		}
		if fields != nil {
			d, err := l.Build(fields, TokenSource)
			if err != nil {
				return nil, err
			}
			result = append(result, d)
		}
		fields = map[string]any{NameField: token}
	}
	if fields != nil {
		d, err := l.Build(fields, TokenSource)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// Build constructs and configures one directive from a mapping node
// carrying the directive field.
func (l *Loader) Build(node any, source string) (Directive, error) {
	dec, err := NewDecoder(node, source, l.Expander)
	if err != nil {
		return nil, err
	}
	name, err := dec.ReadString(NameField)
	if err != nil {
		return nil, err
	}
	d, err := l.Registry.New(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := d.Configure(dec); err != nil {
		return nil, err
	}
	return d, nil
}
