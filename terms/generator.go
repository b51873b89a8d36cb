/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package terms

import (
	"context"
	"encoding/hex"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// TermRow is one index row derived from a record.
type TermRow struct {
	PK     string
	SK     string
	Suffix string
	Term   string
}

// Key returns the storage address of the row.
func (t TermRow) Key() keys.Key {
	return keys.Key{PK: t.PK, SK: t.SK}
}

// Generator derives term rows and the blind tokens queries look them up by.
type Generator struct {
	provider cipher.Provider
	dataset  uuid.UUID
}

// NewGenerator returns a Generator blinding with provider under dataset.
func NewGenerator(provider cipher.Provider, dataset uuid.UUID) *Generator {
	return &Generator{provider: provider, dataset: dataset}
}

// Terms returns the term rows of a record stored at key, in declaration order:
// standalone indexes first, then compound groups. Fields without a value
// contribute no rows.
func (g *Generator) Terms(ctx context.Context, rt *registry.RecordType, key keys.Key, values registry.Values) ([]TermRow, error) {
	var rows []TermRow
	add := func(suffix, token string) {
		rows = append(rows, TermRow{PK: key.PK, SK: keys.TermSK(key.SK, suffix), Suffix: suffix, Term: token})
	}

	for _, idx := range rt.SingleIndexes() {
		plain, ok, err := canonicalValue(rt, idx.Field, values)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		switch idx.Mode {
		case registry.ModeExact:
			token, err := g.ExactToken(ctx, rt, idx.Field, plain)
			if err != nil {
				return nil, err
			}
			add(ExactSuffix(idx.Field), token)
		case registry.ModePrefix:
			for i, p := range Prefixes(plain, rt.PrefixCap(idx.Field)) {
				token, err := g.PrefixToken(ctx, rt, idx.Field, p)
				if err != nil {
					return nil, err
				}
				add(PrefixSuffix(idx.Field, i+1), token)
			}
		}
	}

	for _, group := range rt.Groups() {
		parts := make([][]string, len(group.Members))
		complete := true
		for i, m := range group.Members {
			plain, ok, err := canonicalValue(rt, m.Field, values)
			if err != nil {
				return nil, err
			}
			if !ok {
				complete = false
				break
			}
			if m.Mode == registry.ModePrefix {
				parts[i] = Prefixes(plain, rt.PrefixCap(m.Field))
			} else {
				parts[i] = []string{plain}
			}
		}
		if !complete {
			continue
		}
		err := combinations(parts, func(choice []int, combo []string) error {
			token, err := g.CompoundToken(ctx, rt, group.Name, combo)
			if err != nil {
				return err
			}
			add(CompoundSuffix(group.Name, CompoundIndex(rt, group, choice)), token)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// ExactToken blinds the canonical value of a field for its exact index.
func (g *Generator) ExactToken(ctx context.Context, rt *registry.RecordType, field, plain string) (string, error) {
	return g.blind(ctx, []byte(plain), cipher.TermContext(g.dataset, rt.Name(), field, cipher.PurposeExact))
}

// PrefixToken blinds a value prefix for a field's prefix index.
func (g *Generator) PrefixToken(ctx context.Context, rt *registry.RecordType, field, prefix string) (string, error) {
	return g.blind(ctx, []byte(prefix), cipher.TermContext(g.dataset, rt.Name(), field, cipher.PurposePrefix))
}

// CompoundToken blinds the ordered member parts of a compound group.
func (g *Generator) CompoundToken(ctx context.Context, rt *registry.RecordType, group string, parts []string) (string, error) {
	bs := make([][]byte, len(parts))
	for i, p := range parts {
		bs[i] = []byte(p)
	}
	return g.blind(ctx, cipher.JoinParts(bs...), cipher.TermContext(g.dataset, rt.Name(), group, cipher.PurposeCompound))
}

func (g *Generator) blind(ctx context.Context, plain []byte, bc cipher.BlindContext) (string, error) {
	token, err := g.provider.Blind(ctx, plain, bc)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(token), nil
}

// Suffixes returns every term suffix a record of rt can produce.
func Suffixes(rt *registry.RecordType) []string {
	out := make([]string, 0, rt.TermRowBound())
	for _, idx := range rt.SingleIndexes() {
		if idx.Mode == registry.ModeExact {
			out = append(out, ExactSuffix(idx.Field))
			continue
		}
		for i := 1; i <= rt.PrefixCap(idx.Field); i++ {
			out = append(out, PrefixSuffix(idx.Field, i))
		}
	}
	for _, group := range rt.Groups() {
		for n := 0; n < rt.GroupFanOut(group); n++ {
			out = append(out, CompoundSuffix(group.Name, n))
		}
	}
	return out
}

// ExactSuffix is the sort-key suffix of an exact term row.
func ExactSuffix(field string) string {
	return keys.Separator + field
}

// PrefixSuffix is the sort-key suffix of the i-th prefix term row.
func PrefixSuffix(field string, i int) string {
	return keys.Separator + field + keys.Separator + strconv.Itoa(i)
}

// CompoundSuffix is the sort-key suffix of the n-th combination of a group.
func CompoundSuffix(group string, n int) string {
	return keys.Separator + group + keys.Separator + strconv.Itoa(n)
}

// CompoundIndex numbers a combination in mixed radix, using each prefix
// member's cap as its radix, so the number does not depend on value lengths.
// choice holds the 0-based prefix length index per member; exact members use 0.
func CompoundIndex(rt *registry.RecordType, group registry.CompoundGroup, choice []int) int {
	n := 0
	for i, m := range group.Members {
		if m.Mode != registry.ModePrefix {
			continue
		}
		n = n*rt.PrefixCap(m.Field) + choice[i]
	}
	return n
}

// Prefixes returns the prefixes of s from one rune up to limit runes. Prefixes
// are cut at rune boundaries of s itself, so bytes that are not valid UTF-8 are
// kept as they are and count as one rune each.
func Prefixes(s string, limit int) []string {
	var out []string
	for i := 0; i < len(s) && len(out) < limit; {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
		out = append(out, s[:i])
	}
	return out
}

// combinations calls fn for the cartesian product of parts, last member varying fastest.
func combinations(parts [][]string, fn func(choice []int, combo []string) error) error {
	if len(parts) == 0 {
		return nil
	}
	for _, p := range parts {
		if len(p) == 0 {
			return nil
		}
	}
	choice := make([]int, len(parts))
	combo := make([]string, len(parts))
	for {
		for i, c := range choice {
			combo[i] = parts[i][c]
		}
		if err := fn(choice, combo); err != nil {
			return err
		}
		i := len(parts) - 1
		for ; i >= 0; i-- {
			choice[i]++
			if choice[i] < len(parts[i]) {
				break
			}
			choice[i] = 0
		}
		if i < 0 {
			return nil
		}
	}
}

func canonicalValue(rt *registry.RecordType, field string, values registry.Values) (string, bool, error) {
	v, ok := values[field]
	if !ok || v == nil {
		return "", false, nil
	}
	f, _ := rt.Field(field)
	plain, err := f.Kind.Canonical(v)
	if err != nil {
		return "", false, errors.NewValidationError(field, err.Error())
	}
	return plain, true, nil
}
