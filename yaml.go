package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =====================================
// YAML Declarations
// =====================================

// Reserved entity keys; every other key declares a property.
const (
	yamlName      = "name"
	yamlExtends   = "extends"
	yamlPlain     = "plain"
	yamlTraits    = "traits"
	yamlConstants = "constants"
)

type yamlDocument struct {
	Entities []yaml.Node `yaml:"entities"`
}

// ParseFile parses entity declarations from a YAML file
func ParseFile(path string) ([]*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	decls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}

// Parse parses entity declarations from YAML bytes. Mapping order is kept, so keyed
// property entries merge in the order they are written.
func Parse(data []byte) ([]*Declaration, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	decls := make([]*Declaration, 0, len(doc.Entities))
	for i := range doc.Entities {
		decl, err := parseEntity(&doc.Entities[i])
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// ParseDir parses every .yaml and .yml file of a directory, including subdirectories
func ParseDir(dir string) ([]*Declaration, error) {
	var decls []*Declaration

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			decls = append(decls, sub...)
			continue
		}

		if !IsYAML(entry.Name()) {
			continue
		}

		parsed, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		decls = append(decls, parsed...)
	}

	return decls, nil
}

// IsYAML reports whether a file name has a YAML extension
func IsYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Load parses YAML files or directories and registers their declarations
func (r *Registry) Load(paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		var decls []*Declaration
		if info.IsDir() {
			decls, err = ParseDir(path)
		} else {
			decls, err = ParseFile(path)
		}
		if err != nil {
			return err
		}

		if err := r.Register(decls...); err != nil {
			return err
		}
		r.logger.Debug().Str("path", path).Int("entities", len(decls)).Msg("declarations loaded")
	}
	return nil
}

// LoadConfig reads a Config from a YAML file. Relative sources resolve against the file's directory.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	dir := filepath.Dir(path)
	for i, source := range config.Sources {
		if !filepath.IsAbs(source) {
			config.Sources[i] = filepath.Join(dir, source)
		}
	}
	return config, nil
}

func parseEntity(node *yaml.Node) (*Declaration, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: entity must be a mapping", node.Line)
	}

	decl := Declare("")
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]

		var err error
		switch key {
		case yamlName:
			err = value.Decode(&decl.name)
		case yamlExtends:
			err = value.Decode(&decl.parent)
		case yamlPlain:
			err = value.Decode(&decl.plain)
		case yamlTraits:
			err = value.Decode(&decl.traits)
		case yamlConstants:
			err = parseConstants(decl, value)
		default:
			var v Value
			if v, err = nodeValue(value); err == nil {
				decl.Set(key, v)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: entity key %q: %w", value.Line, key, err)
		}
	}

	if decl.name == "" {
		return nil, fmt.Errorf("line %d: entity name is required", node.Line)
	}
	return decl, nil
}

func parseConstants(decl *Declaration, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("constants must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		v, err := nodeValue(node.Content[i+1])
		if err != nil {
			return err
		}
		decl.Const(node.Content[i].Value, v)
	}
	return nil
}

// nodeValue converts a YAML node into a property value: mappings become keyed arrays,
// sequences positional arrays.
func nodeValue(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return nodeValue(node.Alias)
	case yaml.SequenceNode:
		v := List()
		for _, child := range node.Content {
			item, err := nodeNative(child)
			if err != nil {
				return Null(), err
			}
			v = v.With(Item(item))
		}
		return v, nil
	case yaml.MappingNode:
		v := Array()
		for i := 0; i+1 < len(node.Content); i += 2 {
			item, err := nodeNative(node.Content[i+1])
			if err != nil {
				return Null(), err
			}
			v = v.With(KV(node.Content[i].Value, item))
		}
		return v, nil
	}

	native, err := nodeNative(node)
	if err != nil {
		return Null(), err
	}
	return Scalar(native), nil
}

func nodeNative(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
