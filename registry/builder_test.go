/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstash/cipherstash-dynamodb/errors"
)

func userType() *Builder {
	return NewRecordType("User").
		PartitionKey("email").
		Field("email", String, Exact(), ExactIn("email#name")).
		Field("name", String, Prefix(), Cap(4), PrefixIn("email#name")).
		Field("age", Int, Plaintext())
}

func TestBuild_UserType(t *testing.T) {
	rt, err := userType().Build()
	require.NoError(t, err)

	assert.Equal(t, "User", rt.Name())
	assert.Equal(t, "email", rt.PartitionKey())
	assert.Equal(t, SortKeySpec{Prefix: "user"}, rt.SortKey())
	assert.False(t, rt.SortKey().Dynamic())

	assert.Equal(t, []SingleIndex{
		{Field: "email", Mode: ModeExact},
		{Field: "name", Mode: ModePrefix},
	}, rt.SingleIndexes())
	assert.True(t, rt.HasSingleIndex("name", ModePrefix))
	assert.False(t, rt.HasSingleIndex("name", ModeExact))

	g, ok := rt.Group("email#name")
	require.True(t, ok)
	assert.Equal(t, []string{"email", "name"}, g.Fields())
	assert.Equal(t, ModeExact, g.Members[0].Mode)
	assert.Equal(t, ModePrefix, g.Members[1].Mode)

	assert.Equal(t, 4, rt.PrefixCap("name"))
	assert.Equal(t, DefaultMaxPrefixLen, rt.PrefixCap("email"))
	assert.Equal(t, 4, rt.GroupFanOut(g))
	assert.Equal(t, 1+4+4, rt.TermRowBound())

	age, ok := rt.Field("age")
	require.True(t, ok)
	assert.Equal(t, RolePlaintext, age.Role)
	assert.True(t, age.Stored())
}

func TestBuild_DynamicSortKey(t *testing.T) {
	rt, err := NewRecordType("License").
		SortKeyPrefix("lic").
		PartitionKey("owner").
		SortKey("number").
		Field("owner", String).
		Field("number", String, KeyOnly()).
		Build()
	require.NoError(t, err)

	assert.Equal(t, SortKeySpec{Prefix: "lic", Field: "number"}, rt.SortKey())
	f, _ := rt.Field("number")
	assert.False(t, f.Stored())
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{
			name:    "no partition key",
			builder: NewRecordType("t").Field("a", String),
		},
		{
			name:    "partition key field missing",
			builder: NewRecordType("t").PartitionKey("b").Field("a", String),
		},
		{
			name:    "partition key skipped",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String, Skipped()),
		},
		{
			name:    "partition key of kind any",
			builder: NewRecordType("t").PartitionKey("a").Field("a", Any),
		},
		{
			name:    "sort key field missing",
			builder: NewRecordType("t").PartitionKey("a").SortKey("b").Field("a", String),
		},
		{
			name:    "sort key field skipped",
			builder: NewRecordType("t").PartitionKey("a").SortKey("b").Field("a", String).Field("b", String, Skipped()),
		},
		{
			name:    "key-only on non sort field",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("b", String, KeyOnly()),
		},
		{
			name:    "duplicate field",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("a", Int),
		},
		{
			name:    "reserved field name",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("term", String),
		},
		{
			name:    "double underscore field name",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("__type", String),
		},
		{
			name:    "invalid field name",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("b#c", String),
		},
		{
			name:    "prefix on int",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("n", Int, Prefix()),
		},
		{
			name:    "duplicate exact annotation",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String, Exact(), Exact()),
		},
		{
			name:    "skipped field indexed",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("b", String, Skipped(), Exact()),
		},
		{
			name:    "default on stored field",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String).Field("b", String, Default("x")),
		},
		{
			name:    "single member group",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String, ExactIn("a#b")).Field("b", String),
		},
		{
			name: "group member outside name",
			builder: NewRecordType("t").PartitionKey("a").
				Field("a", String, ExactIn("a#b")).
				Field("b", String, ExactIn("a#b")).
				Field("c", String, ExactIn("a#b")),
		},
		{
			name: "group order disagrees",
			builder: NewRecordType("t").PartitionKey("a").
				Field("a", String, ExactIn("b#a")).
				Field("b", String, ExactIn("b#a")),
		},
		{
			name: "group fan-out over limit",
			builder: NewRecordType("t").PartitionKey("a").
				Field("a", String, PrefixIn("a#b"), Cap(30)).
				Field("b", String, PrefixIn("a#b"), Cap(30)),
		},
		{
			name:    "cap out of range",
			builder: NewRecordType("t").PartitionKey("a").Field("a", String, Prefix(), Cap(MaxPrefixLenLimit+1)),
		},
		{
			name:    "invalid sort prefix",
			builder: NewRecordType("t").SortKeyPrefix("a#b").PartitionKey("a").Field("a", String),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := tt.builder.Build()
			require.Error(t, err)
			assert.Nil(t, rt)
			assert.True(t, errors.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestBuild_GroupMemberMissingAnnotation(t *testing.T) {
	// name carries a standalone prefix index but nothing for the group.
	_, err := NewRecordType("User").
		PartitionKey("email").
		Field("email", String, Exact(), ExactIn("email#name")).
		Field("name", String, Prefix()).
		Build()
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "email#name")
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewRecordType("t").MustBuild()
	})
}

func TestBuild_SkippedDefault(t *testing.T) {
	rt, err := NewRecordType("t").PartitionKey("a").
		Field("a", String).
		Field("b", Int, Skipped(), Default(7)).
		Build()
	require.NoError(t, err)

	b, _ := rt.Field("b")
	assert.False(t, b.Stored())
	assert.True(t, b.HasDefault)
	assert.Equal(t, 7, b.Default)

	_, err = NewRecordType("t").PartitionKey("a").
		Field("a", String).
		Field("b", Int, Skipped(), Default("seven")).
		Build()
	assert.True(t, errors.IsConfigurationError(err))
}
