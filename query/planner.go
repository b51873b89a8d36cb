/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package query

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/terms"
)

// Op is the storage operation a plan resolves to.
type Op int

const (
	// DirectGet reads one primary row by key.
	DirectGet Op = iota + 1
	// IndexQuery looks term rows up by token and hydrates their primary rows.
	IndexQuery
)

func (o Op) String() string {
	switch o {
	case DirectGet:
		return "DirectGet"
	case IndexQuery:
		return "IndexQuery"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Plan is a resolved query.
type Plan struct {
	Op         Op
	RecordType *registry.RecordType
	Fields     []string

	// Key is set for DirectGet.
	Key keys.Key
	// Term is the hex token to look up for IndexQuery.
	Term string
	// Index describes the index or key path chosen.
	Index string
}

// Explain renders the plan for logs and diagnostics.
func (p *Plan) Explain() string {
	if p.Op == DirectGet {
		return fmt.Sprintf("%s %s via %s", p.Op, p.RecordType.Name(), p.Index)
	}
	return fmt.Sprintf("%s %s via %s %v", p.Op, p.RecordType.Name(), p.Index, p.Fields)
}

// Planner turns predicate sets into plans. It never plans a scan.
type Planner struct {
	composer  *keys.Composer
	generator *terms.Generator
}

// NewPlanner returns a Planner computing keys and tokens with the given collaborators.
func NewPlanner(composer *keys.Composer, generator *terms.Generator) *Planner {
	return &Planner{composer: composer, generator: generator}
}

// Plan resolves preds against rt. The order of checks is: a compound group
// with exactly the predicate fields, a direct key read, a single-field index.
func (p *Planner) Plan(ctx context.Context, rt *registry.RecordType, preds ...Predicate) (*Plan, error) {
	byField, err := validate(rt, preds)
	if err != nil {
		return nil, err
	}
	fields := fieldsOf(preds)

	if len(preds) > 1 {
		if plan, err := p.planCompound(ctx, rt, byField, fields); plan != nil || err != nil {
			return plan, err
		}
	}

	if plan, err := p.planDirect(ctx, rt, byField, fields); plan != nil || err != nil {
		return plan, err
	}

	if len(preds) == 1 {
		if plan, err := p.planSingle(ctx, rt, preds[0]); plan != nil || err != nil {
			return plan, err
		}
	}

	return nil, errors.NewQueryError(errors.NoMatchingIndex, rt.Name(), fields, "no index serves %v", describe(preds))
}

func validate(rt *registry.RecordType, preds []Predicate) (map[string]Predicate, error) {
	if len(preds) == 0 {
		return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), nil, "empty predicate set")
	}
	byField := make(map[string]Predicate, len(preds))
	for _, pr := range preds {
		f, ok := rt.Field(pr.Field)
		if !ok {
			return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), []string{pr.Field}, "unknown field")
		}
		if _, dup := byField[pr.Field]; dup {
			return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), []string{pr.Field}, "field constrained more than once")
		}
		if pr.Value == nil {
			return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), []string{pr.Field}, "nil value")
		}
		switch pr.Op {
		case OpEq:
			if _, err := f.Kind.Canonical(pr.Value); err != nil {
				return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), []string{pr.Field}, "%v", err)
			}
		case OpStartsWith:
			s, ok := pr.Value.(string)
			if !ok || f.Kind != registry.String {
				return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), []string{pr.Field}, "starts_with needs a string field and value")
			}
			if s == "" {
				return nil, errors.NewQueryError(errors.EmptyPrefix, rt.Name(), []string{pr.Field}, "empty prefix")
			}
		default:
			return nil, errors.NewQueryError(errors.InvalidPredicate, rt.Name(), []string{pr.Field}, "unknown operator %s", pr.Op)
		}
		byField[pr.Field] = pr
	}
	return byField, nil
}

func (p *Planner) planCompound(ctx context.Context, rt *registry.RecordType, byField map[string]Predicate, fields []string) (*Plan, error) {
	for _, g := range rt.Groups() {
		if len(g.Members) != len(byField) || !matchesGroup(g, byField) {
			continue
		}
		parts := make([]string, len(g.Members))
		for i, m := range g.Members {
			part, err := p.part(rt, m.Field, byField[m.Field])
			if err != nil {
				return nil, err
			}
			parts[i] = part
		}
		token, err := p.generator.CompoundToken(ctx, rt, g.Name, parts)
		if err != nil {
			return nil, err
		}
		return &Plan{Op: IndexQuery, RecordType: rt, Fields: fields, Term: token, Index: "compound index " + g.Name}, nil
	}
	return nil, nil
}

// matchesGroup reports whether every member has a predicate using the
// member's declared mode.
func matchesGroup(g registry.CompoundGroup, byField map[string]Predicate) bool {
	for _, m := range g.Members {
		pr, ok := byField[m.Field]
		if !ok || !modeServes(m.Mode, pr.Op) {
			return false
		}
	}
	return true
}

func modeServes(mode registry.IndexKind, op Operator) bool {
	return (mode == registry.ModeExact && op == OpEq) || (mode == registry.ModePrefix && op == OpStartsWith)
}

// part renders one predicate value as it was blinded on write, enforcing the
// prefix cap for starts_with.
func (p *Planner) part(rt *registry.RecordType, field string, pr Predicate) (string, error) {
	if pr.Op == OpStartsWith {
		s := pr.Value.(string)
		if limit := rt.PrefixCap(field); utf8.RuneCountInString(s) > limit {
			return "", errors.NewQueryError(errors.PrefixTooLong, rt.Name(), []string{field},
				"prefix of %d characters exceeds cap %d", utf8.RuneCountInString(s), limit)
		}
		return s, nil
	}
	f, _ := rt.Field(field)
	return f.Kind.Canonical(pr.Value)
}

func (p *Planner) planDirect(ctx context.Context, rt *registry.RecordType, byField map[string]Predicate, fields []string) (*Plan, error) {
	pk, ok := byField[rt.PartitionKey()]
	if !ok || pk.Op != OpEq {
		return nil, nil
	}
	spec := rt.SortKey()
	var sortValue any
	switch {
	case !spec.Dynamic() && len(byField) == 1:
	case spec.Dynamic() && len(byField) == 2:
		sk, ok := byField[spec.Field]
		if !ok || sk.Op != OpEq {
			return nil, nil
		}
		sortValue = sk.Value
	default:
		return nil, nil
	}
	key, err := p.composer.ComposeFrom(ctx, rt, pk.Value, sortValue)
	if err != nil {
		return nil, err
	}
	return &Plan{Op: DirectGet, RecordType: rt, Fields: fields, Key: key, Index: "primary key"}, nil
}

func (p *Planner) planSingle(ctx context.Context, rt *registry.RecordType, pr Predicate) (*Plan, error) {
	var mode registry.IndexKind
	switch pr.Op {
	case OpEq:
		mode = registry.ModeExact
	case OpStartsWith:
		mode = registry.ModePrefix
	}
	if !rt.HasSingleIndex(pr.Field, mode) {
		return nil, nil
	}
	part, err := p.part(rt, pr.Field, pr)
	if err != nil {
		return nil, err
	}

	var token string
	if mode == registry.ModeExact {
		token, err = p.generator.ExactToken(ctx, rt, pr.Field, part)
	} else {
		token, err = p.generator.PrefixToken(ctx, rt, pr.Field, part)
	}
	if err != nil {
		return nil, err
	}
	return &Plan{Op: IndexQuery, RecordType: rt, Fields: []string{pr.Field}, Term: token, Index: mode.String() + " index " + pr.Field}, nil
}

func describe(preds []Predicate) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Field + " " + p.Op.String()
	}
	return out
}
