/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxPrefixLen caps the number of prefix terms generated per field.
	DefaultMaxPrefixLen = 25

	// MaxPrefixLenLimit is the largest cap a field may declare.
	MaxPrefixLenLimit = 255

	// MaxCompoundTerms bounds the fan-out of a single compound group.
	MaxCompoundTerms = 625
)

// Values holds a record's field values keyed by field name.
type Values map[string]any

// Role says how a field is persisted on the primary row.
type Role int

const (
	RoleEncrypted Role = iota
	RolePlaintext
	RoleSkipped
)

func (r Role) String() string {
	switch r {
	case RoleEncrypted:
		return "encrypted"
	case RolePlaintext:
		return "plaintext"
	case RoleSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// IndexKind is the query mode of an index annotation.
type IndexKind int

const (
	ModeExact IndexKind = iota + 1
	ModePrefix
)

func (k IndexKind) String() string {
	switch k {
	case ModeExact:
		return "exact"
	case ModePrefix:
		return "prefix"
	default:
		return fmt.Sprintf("IndexKind(%d)", int(k))
	}
}

// QueryMode is one index annotation on a field. A non-empty Group makes the
// annotation a member of that compound group rather than a standalone index.
type QueryMode struct {
	Kind  IndexKind
	Group string
}

// FieldSpec describes one field of a record type.
type FieldSpec struct {
	Name    string
	Kind    Kind
	Role    Role
	KeyOnly bool
	Modes   []QueryMode

	// MaxPrefixLen overrides the prefix cap for this field; zero means inherit.
	MaxPrefixLen int

	// Default is used when decoding a skipped field.
	Default    any
	HasDefault bool
}

// Stored reports whether the field is written as an attribute of the primary row.
func (f FieldSpec) Stored() bool {
	return f.Role != RoleSkipped && !f.KeyOnly
}

// SortKeySpec is the sort-key layout of a record type. Field is empty for a
// static sort key.
type SortKeySpec struct {
	Prefix string
	Field  string
}

// Dynamic reports whether the sort key embeds a field value.
func (s SortKeySpec) Dynamic() bool {
	return s.Field != ""
}

// GroupMember is one field of a compound group with the mode it contributes.
type GroupMember struct {
	Field string
	Mode  IndexKind
}

// CompoundGroup is a multi-field index. Members are ordered as in the group name.
type CompoundGroup struct {
	Name    string
	Members []GroupMember
}

// Fields returns the member field names in group order.
func (g CompoundGroup) Fields() []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Field
	}
	return out
}

// SingleIndex is a standalone (non-compound) index annotation.
type SingleIndex struct {
	Field string
	Mode  IndexKind
}

// RecordType is the immutable schema of one record type. Build one with NewRecordType.
type RecordType struct {
	name         string
	partitionKey string
	sortKey      SortKeySpec
	fields       []FieldSpec
	byName       map[string]int
	singles      []SingleIndex
	groups       []CompoundGroup
	groupByName  map[string]int
	maxPrefixLen int
	defaultCap   int
}

// Name returns the record type name.
func (rt *RecordType) Name() string { return rt.name }

// PartitionKey returns the name of the partition-key field.
func (rt *RecordType) PartitionKey() string { return rt.partitionKey }

// SortKey returns the sort-key layout.
func (rt *RecordType) SortKey() SortKeySpec { return rt.sortKey }

// Fields returns the field specs in declaration order.
func (rt *RecordType) Fields() []FieldSpec {
	out := make([]FieldSpec, len(rt.fields))
	copy(out, rt.fields)
	return out
}

// Field looks a field up by name.
func (rt *RecordType) Field(name string) (FieldSpec, bool) {
	i, ok := rt.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return rt.fields[i], true
}

// SingleIndexes returns the standalone index annotations in declaration order.
func (rt *RecordType) SingleIndexes() []SingleIndex {
	out := make([]SingleIndex, len(rt.singles))
	copy(out, rt.singles)
	return out
}

// HasSingleIndex reports whether field carries a standalone annotation of mode.
func (rt *RecordType) HasSingleIndex(field string, mode IndexKind) bool {
	for _, s := range rt.singles {
		if s.Field == field && s.Mode == mode {
			return true
		}
	}
	return false
}

// Groups returns the compound groups in order of first appearance.
func (rt *RecordType) Groups() []CompoundGroup {
	out := make([]CompoundGroup, len(rt.groups))
	copy(out, rt.groups)
	return out
}

// Group looks a compound group up by name.
func (rt *RecordType) Group(name string) (CompoundGroup, bool) {
	i, ok := rt.groupByName[name]
	if !ok {
		return CompoundGroup{}, false
	}
	return rt.groups[i], true
}

// PrefixCap resolves the prefix cap of a field: field override, then type
// override, then the registry default, then DefaultMaxPrefixLen.
func (rt *RecordType) PrefixCap(field string) int {
	if f, ok := rt.Field(field); ok && f.MaxPrefixLen > 0 {
		return f.MaxPrefixLen
	}
	if rt.maxPrefixLen > 0 {
		return rt.maxPrefixLen
	}
	if rt.defaultCap > 0 {
		return rt.defaultCap
	}
	return DefaultMaxPrefixLen
}

// GroupFanOut is the largest number of term rows a group can produce for one record.
func (rt *RecordType) GroupFanOut(g CompoundGroup) int {
	n := 1
	for _, m := range g.Members {
		if m.Mode == ModePrefix {
			n *= rt.PrefixCap(m.Field)
		}
	}
	return n
}

// TermRowBound is the largest number of term rows one record of this type can produce.
func (rt *RecordType) TermRowBound() int {
	n := 0
	for _, s := range rt.singles {
		if s.Mode == ModePrefix {
			n += rt.PrefixCap(s.Field)
		} else {
			n++
		}
	}
	for _, g := range rt.groups {
		n += rt.GroupFanOut(g)
	}
	return n
}

// withDefaultCap returns a shallow copy using defaultCap for unset caps.
func (rt *RecordType) withDefaultCap(defaultCap int) *RecordType {
	c := *rt
	c.defaultCap = defaultCap
	return &c
}

func (rt *RecordType) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(pk=%s, sk=%s", rt.name, rt.partitionKey, rt.sortKey.Prefix)
	if rt.sortKey.Dynamic() {
		fmt.Fprintf(&b, "#{%s}", rt.sortKey.Field)
	}
	b.WriteString(")")
	return b.String()
}
