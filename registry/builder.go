/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package registry

import (
	"regexp"
	"strings"

	"github.com/cipherstash/cipherstash-dynamodb/errors"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reservedNames = map[string]bool{
	"pk":   true,
	"sk":   true,
	"term": true,
}

// ValidIdentifier reports whether name can be used as a field or group part.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name) && !strings.HasPrefix(name, "__") && !reservedNames[name]
}

// FieldOption configures a field declared through Builder.Field.
type FieldOption func(*FieldSpec)

// Plaintext stores the field value as a native attribute.
func Plaintext() FieldOption {
	return func(f *FieldSpec) { f.Role = RolePlaintext }
}

// Encrypted stores the field value as ciphertext. This is the default.
func Encrypted() FieldOption {
	return func(f *FieldSpec) { f.Role = RoleEncrypted }
}

// Skipped excludes the field from storage entirely.
func Skipped() FieldOption {
	return func(f *FieldSpec) { f.Role = RoleSkipped }
}

// Default sets the value a skipped field decodes to.
func Default(v any) FieldOption {
	return func(f *FieldSpec) {
		f.Default = v
		f.HasDefault = true
	}
}

// KeyOnly keeps the designated sort field inside the sort key only.
func KeyOnly() FieldOption {
	return func(f *FieldSpec) { f.KeyOnly = true }
}

// Exact adds a standalone exact-match index.
func Exact() FieldOption {
	return func(f *FieldSpec) { f.Modes = append(f.Modes, QueryMode{Kind: ModeExact}) }
}

// Prefix adds a standalone prefix index.
func Prefix() FieldOption {
	return func(f *FieldSpec) { f.Modes = append(f.Modes, QueryMode{Kind: ModePrefix}) }
}

// ExactIn makes the field an exact member of a compound group.
func ExactIn(group string) FieldOption {
	return func(f *FieldSpec) { f.Modes = append(f.Modes, QueryMode{Kind: ModeExact, Group: group}) }
}

// PrefixIn makes the field a prefix member of a compound group.
func PrefixIn(group string) FieldOption {
	return func(f *FieldSpec) { f.Modes = append(f.Modes, QueryMode{Kind: ModePrefix, Group: group}) }
}

// Cap overrides the prefix cap of the field.
func Cap(n int) FieldOption {
	return func(f *FieldSpec) { f.MaxPrefixLen = n }
}

// Builder assembles a RecordType. All validation happens in Build.
type Builder struct {
	name         string
	sortPrefix   string
	partitionKey string
	sortField    string
	maxPrefixLen int
	fields       []FieldSpec
}

// NewRecordType starts a record type definition.
func NewRecordType(name string) *Builder {
	return &Builder{name: name}
}

// SortKeyPrefix overrides the sort-key prefix, which defaults to the lowercase type name.
func (b *Builder) SortKeyPrefix(prefix string) *Builder {
	b.sortPrefix = prefix
	return b
}

// PartitionKey designates the partition-key field.
func (b *Builder) PartitionKey(field string) *Builder {
	b.partitionKey = field
	return b
}

// SortKey designates a dynamic sort field.
func (b *Builder) SortKey(field string) *Builder {
	b.sortField = field
	return b
}

// MaxPrefixLen sets the prefix cap for every field of the type without its own Cap.
func (b *Builder) MaxPrefixLen(n int) *Builder {
	b.maxPrefixLen = n
	return b
}

// Field declares a field.
func (b *Builder) Field(name string, kind Kind, opts ...FieldOption) *Builder {
	f := FieldSpec{Name: name, Kind: kind, Role: RoleEncrypted}
	for _, opt := range opts {
		opt(&f)
	}
	b.fields = append(b.fields, f)
	return b
}

// MustBuild is Build for package-level declarations; it panics on error.
func (b *Builder) MustBuild() *RecordType {
	rt, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rt
}

// Build validates the definition and returns the immutable RecordType.
func (b *Builder) Build() (*RecordType, error) {
	if !identifierPattern.MatchString(b.name) {
		return nil, errors.NewConfigurationError(b.name, "", "invalid record type name %q", b.name)
	}

	rt := &RecordType{
		name:         b.name,
		partitionKey: b.partitionKey,
		sortKey:      SortKeySpec{Prefix: b.sortPrefix, Field: b.sortField},
		byName:       make(map[string]int, len(b.fields)),
		groupByName:  make(map[string]int),
		maxPrefixLen: b.maxPrefixLen,
	}
	if rt.sortKey.Prefix == "" {
		rt.sortKey.Prefix = strings.ToLower(b.name)
	}
	if strings.ContainsAny(rt.sortKey.Prefix, "#%") {
		return nil, errors.NewConfigurationError(b.name, "", "sort key prefix %q must not contain '#' or '%%'", rt.sortKey.Prefix)
	}
	if b.maxPrefixLen < 0 || b.maxPrefixLen > MaxPrefixLenLimit {
		return nil, errors.NewConfigurationError(b.name, "", "max prefix length %d out of range 1..%d", b.maxPrefixLen, MaxPrefixLenLimit)
	}

	for i, f := range b.fields {
		if err := validateField(b.name, f); err != nil {
			return nil, err
		}
		if _, dup := rt.byName[f.Name]; dup {
			return nil, errors.NewConfigurationError(b.name, f.Name, "duplicate field")
		}
		rt.byName[f.Name] = i
		rt.fields = append(rt.fields, f)
	}

	if err := rt.validateKeys(); err != nil {
		return nil, err
	}
	if err := rt.collectIndexes(); err != nil {
		return nil, err
	}
	if err := rt.checkFanOut(); err != nil {
		return nil, err
	}
	return rt, nil
}

func validateField(typeName string, f FieldSpec) error {
	if !ValidIdentifier(f.Name) {
		return errors.NewConfigurationError(typeName, f.Name, "invalid or reserved field name")
	}
	if f.Kind < String || f.Kind > Any {
		return errors.NewConfigurationError(typeName, f.Name, "unknown kind %s", f.Kind)
	}
	if f.MaxPrefixLen < 0 || f.MaxPrefixLen > MaxPrefixLenLimit {
		return errors.NewConfigurationError(typeName, f.Name, "prefix cap %d out of range 1..%d", f.MaxPrefixLen, MaxPrefixLenLimit)
	}
	if f.Role == RoleSkipped {
		if len(f.Modes) > 0 {
			return errors.NewConfigurationError(typeName, f.Name, "skipped field cannot be indexed")
		}
		if f.KeyOnly {
			return errors.NewConfigurationError(typeName, f.Name, "skipped field cannot be key-only")
		}
		if f.HasDefault && f.Default != nil {
			if _, err := f.Kind.Normalize(f.Default); err != nil {
				return errors.NewConfigurationError(typeName, f.Name, "default: %v", err)
			}
		}
	} else if f.HasDefault {
		return errors.NewConfigurationError(typeName, f.Name, "only skipped fields take a default")
	}

	seen := make(map[QueryMode]bool, len(f.Modes))
	for _, m := range f.Modes {
		if seen[m] {
			return errors.NewConfigurationError(typeName, f.Name, "duplicate %s annotation", m.Kind)
		}
		seen[m] = true
		if !f.Kind.Indexable() {
			return errors.NewConfigurationError(typeName, f.Name, "%s fields cannot be indexed", f.Kind)
		}
		if m.Kind == ModePrefix && f.Kind != String {
			return errors.NewConfigurationError(typeName, f.Name, "prefix index requires a string field, got %s", f.Kind)
		}
	}
	return nil
}

func (rt *RecordType) validateKeys() error {
	if rt.partitionKey == "" {
		return errors.NewConfigurationError(rt.name, "", "no partition key declared")
	}
	pk, ok := rt.Field(rt.partitionKey)
	if !ok {
		return errors.NewConfigurationError(rt.name, rt.partitionKey, "partition key field does not exist")
	}
	if pk.Role == RoleSkipped || pk.KeyOnly {
		return errors.NewConfigurationError(rt.name, rt.partitionKey, "partition key field must be stored")
	}
	if !pk.Kind.Indexable() {
		return errors.NewConfigurationError(rt.name, rt.partitionKey, "partition key cannot be of kind %s", pk.Kind)
	}

	for _, f := range rt.fields {
		if f.KeyOnly && f.Name != rt.sortKey.Field {
			return errors.NewConfigurationError(rt.name, f.Name, "key-only is reserved for the sort field")
		}
	}
	if !rt.sortKey.Dynamic() {
		return nil
	}
	sf, ok := rt.Field(rt.sortKey.Field)
	if !ok {
		return errors.NewConfigurationError(rt.name, rt.sortKey.Field, "sort key field does not exist")
	}
	if sf.Role == RoleSkipped {
		return errors.NewConfigurationError(rt.name, sf.Name, "sort key field cannot be skipped")
	}
	if !sf.Kind.Indexable() {
		return errors.NewConfigurationError(rt.name, sf.Name, "sort key cannot be of kind %s", sf.Kind)
	}
	if sf.Name == rt.partitionKey {
		return errors.NewConfigurationError(rt.name, sf.Name, "sort key field cannot also be the partition key")
	}
	return nil
}

// collectIndexes splits annotations into standalone indexes and compound groups.
func (rt *RecordType) collectIndexes() error {
	declared := make(map[string][]GroupMember)
	var order []string

	for _, f := range rt.fields {
		for _, m := range f.Modes {
			if m.Group == "" {
				rt.singles = append(rt.singles, SingleIndex{Field: f.Name, Mode: m.Kind})
				continue
			}
			members, seen := declared[m.Group]
			if !seen {
				order = append(order, m.Group)
			}
			for _, existing := range members {
				if existing.Field == f.Name {
					return errors.NewConfigurationError(rt.name, f.Name, "field annotated more than once for group %q", m.Group)
				}
			}
			declared[m.Group] = append(members, GroupMember{Field: f.Name, Mode: m.Kind})
		}
	}

	for _, name := range order {
		members := declared[name]
		parts := strings.Split(name, "#")
		if len(parts) < 2 || len(members) < 2 {
			return errors.NewConfigurationError(rt.name, "", "compound group %q needs at least two members", name)
		}
		for _, p := range parts {
			if !ValidIdentifier(p) {
				return errors.NewConfigurationError(rt.name, "", "compound group %q has invalid part %q", name, p)
			}
			if _, ok := rt.byName[p]; !ok {
				return errors.NewConfigurationError(rt.name, p, "compound group %q references an unknown field", name)
			}
		}
		if len(parts) != len(members) {
			for _, p := range parts {
				if !hasMember(members, p) {
					return errors.NewConfigurationError(rt.name, p, "field lacks an annotation for compound group %q", name)
				}
			}
			return errors.NewConfigurationError(rt.name, "", "compound group %q has members outside its name", name)
		}
		for i, p := range parts {
			if members[i].Field == p {
				continue
			}
			if !hasMember(members, p) {
				return errors.NewConfigurationError(rt.name, p, "field lacks an annotation for compound group %q", name)
			}
			return errors.NewConfigurationError(rt.name, members[i].Field, "field order disagrees with compound group %q", name)
		}
		rt.groupByName[name] = len(rt.groups)
		rt.groups = append(rt.groups, CompoundGroup{Name: name, Members: members})
	}
	return nil
}

func (rt *RecordType) checkFanOut() error {
	for _, g := range rt.groups {
		if n := rt.GroupFanOut(g); n > MaxCompoundTerms {
			return errors.NewConfigurationError(rt.name, "", "compound group %q fans out to %d terms, limit is %d", g.Name, n, MaxCompoundTerms)
		}
	}
	return nil
}

func hasMember(members []GroupMember, field string) bool {
	for _, m := range members {
		if m.Field == field {
			return true
		}
	}
	return false
}
