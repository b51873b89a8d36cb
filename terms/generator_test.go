/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package terms

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

var (
	userType = registry.NewRecordType("User").
			PartitionKey("email").
			Field("email", registry.String, registry.Exact()).
			Field("name", registry.String, registry.Prefix(), registry.Cap(4)).
			MustBuild()

	contactType = registry.NewRecordType("Contact").
			PartitionKey("id").
			Field("id", registry.String).
			Field("email", registry.String, registry.Exact(), registry.ExactIn("email#name")).
			Field("name", registry.String, registry.PrefixIn("email#name"), registry.Cap(3)).
			MustBuild()
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	p, err := cipher.NewLocal(bytes.Repeat([]byte{3}, cipher.RootKeySize))
	require.NoError(t, err)
	return NewGenerator(p, uuid.Nil)
}

func suffixesOf(rows []TermRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Suffix
	}
	return out
}

func TestTerms_ExactAndPrefix(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t)
	key := keys.Key{PK: "pk1", SK: "user"}

	rows, err := g.Terms(ctx, userType, key, registry.Values{"email": "dan@x.co", "name": "Dan"})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"#email", "#name#1", "#name#2", "#name#3"}, suffixesOf(rows))

	for _, r := range rows {
		assert.Equal(t, "pk1", r.PK)
		assert.Equal(t, "user"+r.Suffix, r.SK)
		assert.Len(t, r.Term, 64)
	}

	da, err := g.PrefixToken(ctx, userType, "name", "Da")
	require.NoError(t, err)
	assert.Equal(t, da, rows[2].Term)

	exact, err := g.ExactToken(ctx, userType, "email", "dan@x.co")
	require.NoError(t, err)
	assert.Equal(t, exact, rows[0].Term)
}

func TestTerms_PrefixCapAndRunes(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t)

	rows, err := g.Terms(ctx, userType, keys.Key{PK: "p", SK: "user"}, registry.Values{"email": "a", "name": "Zoë Smith"})
	require.NoError(t, err)
	assert.Len(t, rows, 1+4)

	assert.Equal(t, []string{"Z", "Zo", "Zoë"}, Prefixes("Zoë", 25))
	assert.Equal(t, []string{"Z", "Zo"}, Prefixes("Zoë", 2))
	assert.Empty(t, Prefixes("", 4))
}

func TestTerms_PrefixesKeepInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t)
	name := "\xffab"

	assert.Equal(t, []string{"\xff", "\xffa", "\xffab"}, Prefixes(name, 25))
	assert.Equal(t, []string{"\xff", "\xffa"}, Prefixes(name, 2))
	assert.Equal(t, []string{"a\xff", "a\xffé"}, Prefixes("a\xffé", 5)[1:])

	rows, err := g.Terms(ctx, userType, keys.Key{PK: "p", SK: "user"}, registry.Values{"email": "a", "name": name})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, prefix := range Prefixes(name, 4) {
		token, err := g.PrefixToken(ctx, userType, "name", prefix)
		require.NoError(t, err)
		assert.Equal(t, token, rows[i+1].Term, "prefix %q", prefix)
	}

	rows, err = g.Terms(ctx, contactType, keys.Key{PK: "p", SK: "contact"}, registry.Values{"id": "1", "email": "e", "name": name})
	require.NoError(t, err)
	token, err := g.CompoundToken(ctx, contactType, "email#name", []string{"e", "\xffa"})
	require.NoError(t, err)
	found := false
	for _, r := range rows {
		found = found || r.Term == token
	}
	assert.True(t, found)
}

func TestTerms_Determinism(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t)
	values := registry.Values{"email": "dan@x.co", "name": "Dan"}

	a, err := g.Terms(ctx, userType, keys.Key{PK: "p1", SK: "user"}, values)
	require.NoError(t, err)
	b, err := g.Terms(ctx, userType, keys.Key{PK: "p2", SK: "user"}, values)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Term, b[i].Term)
	}

	c, err := g.Terms(ctx, userType, keys.Key{PK: "p1", SK: "user"}, registry.Values{"email": "dan@x.com", "name": "Dan"})
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Term, c[0].Term)
}

func TestTerms_Compound(t *testing.T) {
	ctx := context.Background()
	g := newGenerator(t)
	key := keys.Key{PK: "p", SK: "contact"}

	rows, err := g.Terms(ctx, contactType, key, registry.Values{"id": "1", "email": "a@b.c", "name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"#email",
		"#email#name#0", "#email#name#1", "#email#name#2",
	}, suffixesOf(rows))

	token, err := g.CompoundToken(ctx, contactType, "email#name", []string{"a@b.c", "An"})
	require.NoError(t, err)
	assert.Equal(t, token, rows[2].Term)

	// A compound token never equals the standalone exact token of a member.
	assert.NotEqual(t, rows[0].Term, rows[1].Term)
}

func TestTerms_CompoundMissingMember(t *testing.T) {
	rows, err := newGenerator(t).Terms(context.Background(), contactType, keys.Key{PK: "p", SK: "contact"},
		registry.Values{"id": "1", "email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#email"}, suffixesOf(rows))
}

func TestTerms_InvalidValue(t *testing.T) {
	_, err := newGenerator(t).Terms(context.Background(), userType, keys.Key{PK: "p", SK: "user"},
		registry.Values{"email": 12})
	assert.True(t, errors.IsValidationError(err))
}

func TestSuffixes(t *testing.T) {
	assert.Equal(t, []string{"#email", "#name#1", "#name#2", "#name#3", "#name#4"}, Suffixes(userType))

	all := Suffixes(contactType)
	assert.Len(t, all, 1+3)
	assert.Equal(t, "#email#name#2", all[3])
}

func TestSuffixesCoverTerms(t *testing.T) {
	rows, err := newGenerator(t).Terms(context.Background(), contactType, keys.Key{PK: "p", SK: "contact"},
		registry.Values{"id": "1", "email": "a@b.c", "name": "Annabel"})
	require.NoError(t, err)

	all := map[string]bool{}
	for _, s := range Suffixes(contactType) {
		all[s] = true
	}
	for _, r := range rows {
		assert.True(t, all[r.Suffix], r.Suffix)
	}
}

func TestCompoundIndex(t *testing.T) {
	pair := registry.NewRecordType("Pair").PartitionKey("id").
		Field("id", registry.String).
		Field("a", registry.String, registry.PrefixIn("a#b"), registry.Cap(3)).
		Field("b", registry.String, registry.PrefixIn("a#b"), registry.Cap(5)).
		MustBuild()
	g, _ := pair.Group("a#b")

	assert.Equal(t, 0, CompoundIndex(pair, g, []int{0, 0}))
	assert.Equal(t, 5, CompoundIndex(pair, g, []int{1, 0}))
	assert.Equal(t, 14, CompoundIndex(pair, g, []int{2, 4}))

	// Short values keep the same numbering as long ones.
	rows, err := newGenerator(t).Terms(context.Background(), pair, keys.Key{PK: "p", SK: "pair"},
		registry.Values{"id": "1", "a": "xy", "b": "z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#a#b#0", "#a#b#5"}, suffixesOf(rows))
}
