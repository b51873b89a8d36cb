/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package processor

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	storeerrors "github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// Extension is the vendor extension key read from schemas and properties.
const Extension = "x-cipherstash"

type document struct {
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string         `yaml:"type"`
	Extension  *typeExtension `yaml:"x-cipherstash"`
	Properties yaml.Node      `yaml:"properties"`
}

type typeExtension struct {
	PartitionKey  string `yaml:"partitionKey"`
	SortKey       string `yaml:"sortKey"`
	SortKeyPrefix string `yaml:"sortKeyPrefix"`
	MaxPrefixLen  int    `yaml:"maxPrefixLen"`
}

type property struct {
	Type      string             `yaml:"type"`
	Format    string             `yaml:"format"`
	Extension *propertyExtension `yaml:"x-cipherstash"`
}

type propertyExtension struct {
	Kind     string            `yaml:"kind"`
	Role     string            `yaml:"role"`
	Default  any               `yaml:"default"`
	KeyOnly  bool              `yaml:"keyOnly"`
	Cap      int               `yaml:"cap"`
	Query    []string          `yaml:"query"`
	Compound map[string]string `yaml:"compound"`
}

// LoadFile reads the record types declared in an OpenAPI document on disk.
func LoadFile(path string) ([]*registry.RecordType, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening schema file")
	}
	defer f.Close()
	return Load(f)
}

// Load reads the record types declared in an OpenAPI document. Only schemas
// carrying the x-cipherstash extension become record types; they are
// returned sorted by name.
func Load(r io.Reader) ([]*registry.RecordType, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "parsing schema document")
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name, s := range doc.Components.Schemas {
		if s.Extension != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	types := make([]*registry.RecordType, 0, len(names))
	for _, name := range names {
		rt, err := buildType(name, doc.Components.Schemas[name])
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	return types, nil
}

func buildType(name string, s schema) (*registry.RecordType, error) {
	ext := s.Extension
	b := registry.NewRecordType(name).PartitionKey(ext.PartitionKey)
	if ext.SortKeyPrefix != "" {
		b.SortKeyPrefix(ext.SortKeyPrefix)
	}
	if ext.SortKey != "" {
		b.SortKey(ext.SortKey)
	}
	if ext.MaxPrefixLen != 0 {
		b.MaxPrefixLen(ext.MaxPrefixLen)
	}

	if s.Properties.Kind != 0 && s.Properties.Kind != yaml.MappingNode {
		return nil, storeerrors.NewConfigurationError(name, "", "properties must be a mapping")
	}
	// Walk the node so fields keep document order.
	content := s.Properties.Content
	for i := 0; i+1 < len(content); i += 2 {
		field := content[i].Value
		var p property
		if err := content[i+1].Decode(&p); err != nil {
			return nil, storeerrors.NewConfigurationError(name, field, "invalid property: %v", err)
		}
		kind, opts, err := fieldOptions(name, field, p)
		if err != nil {
			return nil, err
		}
		b.Field(field, kind, opts...)
	}
	return b.Build()
}

func fieldOptions(typeName, field string, p property) (registry.Kind, []registry.FieldOption, error) {
	ext := p.Extension
	if ext == nil {
		ext = &propertyExtension{}
	}

	kind, ok := kindOf(p)
	if ext.Kind != "" {
		kind, ok = registry.ParseKind(ext.Kind)
	}
	if !ok {
		return 0, nil, storeerrors.NewConfigurationError(typeName, field, "cannot map type %q format %q to a kind", p.Type, p.Format)
	}

	var opts []registry.FieldOption
	switch ext.Role {
	case "", "encrypted":
	case "plaintext":
		opts = append(opts, registry.Plaintext())
	case "skipped":
		opts = append(opts, registry.Skipped())
		if ext.Default != nil {
			opts = append(opts, registry.Default(ext.Default))
		}
	default:
		return 0, nil, storeerrors.NewConfigurationError(typeName, field, "unknown role %q", ext.Role)
	}
	if ext.KeyOnly {
		opts = append(opts, registry.KeyOnly())
	}
	if ext.Cap != 0 {
		opts = append(opts, registry.Cap(ext.Cap))
	}

	for _, mode := range ext.Query {
		switch mode {
		case "exact":
			opts = append(opts, registry.Exact())
		case "prefix":
			opts = append(opts, registry.Prefix())
		default:
			return 0, nil, storeerrors.NewConfigurationError(typeName, field, "unknown query mode %q", mode)
		}
	}

	groups := make([]string, 0, len(ext.Compound))
	for g := range ext.Compound {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		switch ext.Compound[g] {
		case "exact":
			opts = append(opts, registry.ExactIn(g))
		case "prefix":
			opts = append(opts, registry.PrefixIn(g))
		default:
			return 0, nil, storeerrors.NewConfigurationError(typeName, field, "unknown query mode %q for group %s", ext.Compound[g], g)
		}
	}
	return kind, opts, nil
}

// kindOf maps an OpenAPI type and format to a field kind.
func kindOf(p property) (registry.Kind, bool) {
	switch p.Type {
	case "string":
		switch p.Format {
		case "date-time":
			return registry.DateTime, true
		case "byte", "binary":
			return registry.Bytes, true
		default:
			return registry.String, true
		}
	case "integer":
		return registry.Int, true
	case "number":
		return registry.Float, true
	case "boolean":
		return registry.Bool, true
	case "object", "array":
		return registry.Any, true
	}
	return 0, false
}
