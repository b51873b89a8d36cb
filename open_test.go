/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipherstash_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cipherstash "github.com/cipherstash/cipherstash-dynamodb"
	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/config"
	"github.com/cipherstash/cipherstash-dynamodb/datastore/mock"
	"github.com/cipherstash/cipherstash-dynamodb/datastore/testmodels"
	"github.com/cipherstash/cipherstash-dynamodb/query"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

func TestOpen_Bolt(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.BoltPath = filepath.Join(t.TempDir(), "table.db")
	cfg.RootKeyHex = strings.Repeat("ab", 32)
	cfg.MaxPrefixLen = 3

	table, err := cipherstash.Open(ctx, cfg, []*registry.RecordType{testmodels.UserType(), testmodels.LicenseType()})
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.PutRecord(ctx, testmodels.NewUser("dan@x.co", "Dan")))
	require.NoError(t, table.PutRecord(ctx, testmodels.License{Email: "dan@x.co", Number: "L1", Jurisdiction: "NSW"}))

	res, err := table.Query(ctx, "User", query.Eq("email", "dan@x.co"), query.StartsWith("name", "Da"))
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)

	res, err = table.Query(ctx, "License", query.Eq("jurisdiction", "NSW"))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "L1", res.Records[0]["number"])

	// The user type keeps its own cap; the registry default only fills unset caps.
	rt, ok := table.Registry().Lookup("User")
	require.True(t, ok)
	assert.Equal(t, 4, rt.PrefixCap("name"))
}

func TestOpen_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := cipherstash.Open(ctx, config.Config{}, nil)
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.BoltPath = filepath.Join(t.TempDir(), "table.db")
	_, err = cipherstash.Open(ctx, cfg, nil)
	assert.Error(t, err, "a root key is required")
}

func TestOpen_ClosesStoreOnError(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	cfg := config.DefaultConfig()
	cfg.RootKeyHex = strings.Repeat("ab", 32)
	types := []*registry.RecordType{testmodels.UserType()}

	cfg.BoltPath = filepath.Join(t.TempDir(), "first.db")
	first, err := cipherstash.Open(ctx, cfg, types, cipherstash.WithObservability(reg))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// The metrics are already registered, so building the table fails after
	// the bolt file was opened.
	cfg.BoltPath = filepath.Join(t.TempDir(), "second.db")
	_, err = cipherstash.Open(ctx, cfg, types, cipherstash.WithObservability(reg))
	require.Error(t, err)

	again, err := cipherstash.Open(ctx, cfg, types)
	require.NoError(t, err, "the failed open must release the file")
	assert.NoError(t, again.Close())
}

func TestNew_WithObservability(t *testing.T) {
	ctx := context.Background()
	provider, err := cipher.NewLocal(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	table, err := cipherstash.New(
		registry.New().MustRegister(testmodels.UserType()).Freeze(),
		provider,
		mock.New(),
		cipherstash.WithObservability(reg),
	)
	require.NoError(t, err)

	require.NoError(t, table.PutRecord(ctx, testmodels.NewUser("a@x.co", "Al")))
	_, err = table.Query(ctx, "User", query.StartsWith("name", "A"))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cipherstash_operations_total")
	assert.Contains(t, names, "cipherstash_operation_duration_seconds")
	assert.NoError(t, table.Close())
}
