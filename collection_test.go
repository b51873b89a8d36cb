/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipherstash_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cipherstash "github.com/cipherstash/cipherstash-dynamodb"
	"github.com/cipherstash/cipherstash-dynamodb/datastore/testmodels"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/query"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// writeOnly implements Encryptable but not Decryptable.
type writeOnly struct{ email string }

func (w writeOnly) RecordTypeName() string { return "User" }

func (w writeOnly) ToValues() registry.Values {
	return registry.Values{"email": w.email, "name": "W"}
}

func assertSameUser(t *testing.T, want, got testmodels.User) {
	t.Helper()
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Age, got.Age)
	assert.True(t, time.Time(want.CreatedAt).Equal(time.Time(got.CreatedAt)))
}

func TestCollection(t *testing.T) {
	ctx := context.Background()
	table, _ := newTable(t, testmodels.UserType(), testmodels.LicenseType())

	t.Run("BasicOperations", func(t *testing.T) {
		users, err := cipherstash.NewCollection[testmodels.User](table, "User")
		require.NoError(t, err)
		assert.Equal(t, "User", users.TypeName())

		dan := testmodels.NewUser("dan@x.co", "Dan")
		require.NoError(t, users.Put(ctx, dan))

		got, err := users.Get(ctx, "dan@x.co", nil)
		require.NoError(t, err)
		assertSameUser(t, dan, *got)

		results, err := users.Query(ctx, []query.Predicate{query.StartsWith("name", "Da")})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.NoError(t, results[0].Error)
		assertSameUser(t, dan, results[0].Item)
		assert.NotNil(t, results[0].Raw)

		found, err := users.Find(ctx, "dan@x.co", nil)
		require.NoError(t, err)
		require.NotNil(t, found)
		assertSameUser(t, dan, *found)

		require.NoError(t, users.Delete(ctx, "dan@x.co", nil))
		_, err = users.Get(ctx, "dan@x.co", nil)
		assert.True(t, errors.IsNotFound(err))

		found, err = users.Find(ctx, "dan@x.co", nil)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("PointerRecords", func(t *testing.T) {
		licenses, err := cipherstash.NewCollection[testmodels.License](table, "License")
		require.NoError(t, err)

		require.NoError(t, licenses.Put(ctx, testmodels.License{Email: "a@x.co", Number: "7", Jurisdiction: "VIC"}))
		got, err := licenses.Get(ctx, "a@x.co", "7")
		require.NoError(t, err)
		assert.Equal(t, "VIC", got.Jurisdiction)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("MissingCapabilities", func(t *testing.T) {
		_, err := cipherstash.NewCollection[testmodels.User](table, "Missing")
		assert.True(t, errors.IsConfigurationError(err))

		ints, err := cipherstash.NewCollection[int](table, "User")
		require.NoError(t, err)
		assert.True(t, errors.IsConfigurationError(ints.Put(ctx, 1)))

		wo, err := cipherstash.NewCollection[writeOnly](table, "User")
		require.NoError(t, err)
		require.NoError(t, wo.Put(ctx, writeOnly{email: "w@x.co"}))
		_, err = wo.Get(ctx, "w@x.co", nil)
		assert.True(t, errors.IsConfigurationError(err))

		wrongType, err := cipherstash.NewCollection[testmodels.User](table, "License")
		require.NoError(t, err)
		assert.True(t, errors.IsConfigurationError(wrongType.Put(ctx, testmodels.NewUser("x@x.co", "X"))))
	})
}
