/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"sort"
)

// Operator is the comparison a predicate applies.
type Operator int

const (
	OpEq Operator = iota + 1
	OpStartsWith
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpStartsWith:
		return "starts_with"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// Predicate constrains one field.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

// Eq matches records whose field equals v.
func Eq(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: v}
}

// StartsWith matches records whose string field begins with prefix.
func StartsWith(field, prefix string) Predicate {
	return Predicate{Field: field, Op: OpStartsWith, Value: prefix}
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

func fieldsOf(preds []Predicate) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Field
	}
	sort.Strings(out)
	return out
}
