/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package codec

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

var profileType = registry.NewRecordType("Profile").
	PartitionKey("id").
	SortKey("version").
	Field("id", registry.String).
	Field("version", registry.Int, registry.KeyOnly()).
	Field("name", registry.String).
	Field("age", registry.Int, registry.Plaintext()).
	Field("score", registry.Float).
	Field("ratio", registry.Float, registry.Plaintext()).
	Field("active", registry.Bool, registry.Plaintext()).
	Field("avatar", registry.Bytes).
	Field("born", registry.Time).
	Field("seen", registry.DateTime, registry.Plaintext()).
	Field("prefs", registry.Any).
	Field("labels", registry.Any, registry.Plaintext()).
	Field("nickname", registry.String).
	Field("cache", registry.String, registry.Skipped(), registry.Default("none")).
	MustBuild()

func newCodec(t *testing.T) (*Codec, keys.Key) {
	t.Helper()
	p, err := cipher.NewLocal(bytes.Repeat([]byte{9}, cipher.RootKeySize))
	require.NoError(t, err)
	return New(p, uuid.Nil), keys.Key{PK: "cGs", SK: "profile#3"}
}

func profileValues() registry.Values {
	ts := time.Date(1990, 5, 17, 8, 0, 0, 0, time.UTC)
	return registry.Values{
		"id":       "p-1",
		"version":  int64(3),
		"name":     "Dan",
		"age":      int64(35),
		"score":    9.5,
		"ratio":    0.125,
		"active":   true,
		"avatar":   []byte{0, 1, 2},
		"born":     ts,
		"seen":     strfmt.DateTime(ts.Add(time.Hour)),
		"prefs":    map[string]any{"theme": "dark", "beta": true},
		"labels":   []any{"a", "b"},
		"nickname": nil,
		"cache":    "ignored",
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, key := newCodec(t)
	in := profileValues()

	item, err := c.Encode(ctx, profileType, key, in)
	require.NoError(t, err)

	assert.Equal(t, &types.AttributeValueMemberS{Value: "Profile"}, item[storagemodels.AttrType])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "35"}, item["age"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, item["active"])
	assert.IsType(t, &types.AttributeValueMemberB{}, item["name"])
	assert.NotContains(t, item, "version")
	assert.NotContains(t, item, "cache")
	assert.NotContains(t, item, storagemodels.AttrTerm)

	out, err := c.Decode(ctx, profileType, item)
	require.NoError(t, err)

	want := profileValues()
	want["cache"] = "none"
	assert.Equal(t, want, out)
}

func TestCodec_EncryptedIsOpaque(t *testing.T) {
	c, key := newCodec(t)
	item, err := c.Encode(context.Background(), profileType, key, profileValues())
	require.NoError(t, err)

	name := item["name"].(*types.AttributeValueMemberB).Value
	assert.NotContains(t, string(name), "Dan")
}

func TestCodec_DecodeErrors(t *testing.T) {
	ctx := context.Background()
	c, key := newCodec(t)
	item, err := c.Encode(ctx, profileType, key, profileValues())
	require.NoError(t, err)

	clone := func() storagemodels.Item {
		out := storagemodels.Item{}
		for k, v := range item {
			out[k] = v
		}
		return out
	}

	t.Run("decryption failed", func(t *testing.T) {
		bad := clone()
		bad["name"] = &types.AttributeValueMemberB{Value: []byte("not a ciphertext at all, really")}
		_, err := c.Decode(ctx, profileType, bad)
		assert.Equal(t, errors.DecryptionFailed, errors.DecodeKind(err))
		assert.ErrorIs(t, err, cipher.ErrDecryption)
	})

	t.Run("moved to another partition", func(t *testing.T) {
		bad := clone()
		bad[storagemodels.AttrPK] = &types.AttributeValueMemberS{Value: "other"}
		_, err := c.Decode(ctx, profileType, bad)
		assert.Equal(t, errors.DecryptionFailed, errors.DecodeKind(err))
	})

	t.Run("type mismatch", func(t *testing.T) {
		bad := clone()
		bad["age"] = &types.AttributeValueMemberS{Value: "old"}
		_, err := c.Decode(ctx, profileType, bad)
		assert.Equal(t, errors.TypeMismatch, errors.DecodeKind(err))
		assert.Contains(t, err.Error(), "Profile.age")
	})

	t.Run("encrypted attribute not binary", func(t *testing.T) {
		bad := clone()
		bad["name"] = &types.AttributeValueMemberS{Value: "Dan"}
		_, err := c.Decode(ctx, profileType, bad)
		assert.Equal(t, errors.TypeMismatch, errors.DecodeKind(err))
	})

	t.Run("missing attribute", func(t *testing.T) {
		bad := clone()
		delete(bad, "score")
		_, err := c.Decode(ctx, profileType, bad)
		assert.Equal(t, errors.MissingAttribute, errors.DecodeKind(err))
	})

	t.Run("wrong record type", func(t *testing.T) {
		bad := clone()
		bad[storagemodels.AttrType] = &types.AttributeValueMemberS{Value: "User"}
		_, err := c.Decode(ctx, profileType, bad)
		assert.Equal(t, errors.TypeMismatch, errors.DecodeKind(err))
	})
}

func TestCodec_MissingDefault(t *testing.T) {
	rt := registry.NewRecordType("Note").PartitionKey("id").
		Field("id", registry.String).
		Field("draft", registry.String, registry.Skipped()).
		MustBuild()
	c, _ := newCodec(t)
	ctx := context.Background()

	item, err := c.Encode(ctx, rt, keys.Key{PK: "p", SK: "note"}, registry.Values{"id": "n1", "draft": "x"})
	require.NoError(t, err)
	assert.NotContains(t, item, "draft")

	_, err = c.Decode(ctx, rt, item)
	assert.True(t, errors.IsDecodeError(err))
	assert.Equal(t, errors.MissingDefault, errors.DecodeKind(err))
}

func TestCodec_EncodeValidation(t *testing.T) {
	c, key := newCodec(t)
	values := profileValues()
	values["age"] = "thirty"

	_, err := c.Encode(context.Background(), profileType, key, values)
	assert.True(t, errors.IsValidationError(err))
}
