// Package definition loads form definitions from YAML and JSON files,
// applies overlays to them and registers them on a form manager.
package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-forms/pkg/form"
)

// ErrEmptyDocument is returned for files without any content.
var ErrEmptyDocument = errors.New("definition: document is empty")

// Definition is one form definition: the params handed to
// form.Manager.RegisterForm.
type Definition struct {
	Alias  string
	Params map[string]any
	// Source is the file the definition was read from, "" when built in code.
	Source string
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	params, _ := deepcopy.Copy(d.Params).(map[string]any)
	return Definition{Alias: d.Alias, Params: params, Source: d.Source}
}

// FieldSlugs lists the declared field slugs in order.
func (d Definition) FieldSlugs() []string {
	var out []string
	switch fields := d.Params["fields"].(type) {
	case []any:
		for _, item := range fields {
			if entry, ok := item.(map[string]any); ok {
				if slug, ok := entry["slug"].(string); ok {
					out = append(out, slug)
				}
			}
		}
	case map[string]any:
		for slug := range fields {
			out = append(out, slug)
		}
		sort.Strings(out)
	}
	return out
}

// Parse reads the definitions held by data. A document either maps aliases
// under a top level "forms" key or describes a single form carrying an
// "alias" key. JSON documents are read with gjson, anything else as YAML.
// Field and group declarations written as maps keep their file order.
func Parse(data []byte, source string) ([]Definition, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}

	var root *ordered
	var err error
	if strings.HasPrefix(trimmed, "{") {
		root, err = decodeJSON([]byte(trimmed))
	} else {
		root, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("definition: parse %s: %w", source, err)
	}
	return fromDocument(root, source)
}

func fromDocument(root *ordered, source string) ([]Definition, error) {
	if forms, ok := root.get("forms"); ok {
		set, ok := forms.(*ordered)
		if !ok {
			return nil, fmt.Errorf("definition: %s: \"forms\" must be a map of aliases", source)
		}
		out := make([]Definition, 0, len(set.keys))
		for _, alias := range set.keys {
			body, ok := set.values[alias].(*ordered)
			if !ok {
				return nil, fmt.Errorf("definition: %s: form %q must be a map", source, alias)
			}
			def, err := newDefinition(strings.TrimSpace(alias), body, source)
			if err != nil {
				return nil, err
			}
			out = append(out, def)
		}
		return out, nil
	}

	aliasValue, _ := root.get("alias")
	alias, _ := aliasValue.(string)
	if strings.TrimSpace(alias) == "" {
		return nil, fmt.Errorf("definition: %s: expected a \"forms\" map or an \"alias\" key", source)
	}
	def, err := newDefinition(strings.TrimSpace(alias), root, source)
	if err != nil {
		return nil, err
	}
	delete(def.Params, "alias")
	return []Definition{def}, nil
}

func newDefinition(alias string, body *ordered, source string) (Definition, error) {
	if alias == "" {
		return Definition{}, fmt.Errorf("definition: %s defines an empty form alias", source)
	}
	return Definition{Alias: alias, Params: formParams(body), Source: source}, nil
}

// LoadFile reads the definitions of one file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS walks fsys and parses every .json, .yaml and .yml file. Aliases
// must be unique across files. A nil fsys yields no definitions.
func LoadFS(fsys fs.FS) ([]Definition, error) {
	if fsys == nil {
		return nil, nil
	}
	var out []Definition
	seen := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("definition: read %s: %w", path, err)
		}
		defs, err := Parse(data, path)
		if err != nil {
			return err
		}
		for _, def := range defs {
			if previous, exists := seen[def.Alias]; exists {
				return fmt.Errorf("definition: duplicate form %q (files %s and %s)", def.Alias, previous, path)
			}
			seen[def.Alias] = path
			out = append(out, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadDir is LoadFS over a directory of the host filesystem.
func LoadDir(dir string) ([]Definition, error) {
	return LoadFS(os.DirFS(dir))
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Register registers every definition on m, stopping at the first error.
func Register(m *form.Manager, defs []Definition) error {
	for _, def := range defs {
		if err := m.RegisterForm(def.Alias, def.Clone().Params); err != nil {
			return fmt.Errorf("definition: register %q: %w", def.Alias, err)
		}
	}
	return nil
}

// Find returns the definition registered under alias.
func Find(defs []Definition, alias string) (Definition, bool) {
	for _, def := range defs {
		if def.Alias == alias {
			return def, true
		}
	}
	return Definition{}, false
}

// Encode renders definitions as a YAML document under a "forms" key.
func Encode(defs ...Definition) ([]byte, error) {
	forms := yaml.Node{Kind: yaml.MappingNode}
	for _, def := range defs {
		var body yaml.Node
		if err := body.Encode(def.Params); err != nil {
			return nil, fmt.Errorf("definition: encode %q: %w", def.Alias, err)
		}
		forms.Content = append(forms.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: def.Alias},
			&body,
		)
	}
	doc := yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "forms"},
		&forms,
	}}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("definition: encode: %w", err)
	}
	return out, nil
}
