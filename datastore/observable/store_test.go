/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package observable

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstash/cipherstash-dynamodb/datastore/mock"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

func TestStore_PassesThroughAndCounts(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inner := mock.New()
	obs, err := New(inner, WithName("test"), WithRegisterer(reg), WithLogger(logger))
	require.NoError(t, err)

	key := storagemodels.RowKey{PK: "p", SK: "user#email"}
	require.NoError(t, obs.Write(ctx, storagemodels.WriteBatch{Puts: []storagemodels.Item{
		storagemodels.TermItem(key, "tok"),
	}}))

	keys, err := obs.QueryTerm(ctx, storagemodels.TermQuery{Term: "tok"})
	require.NoError(t, err)
	assert.Equal(t, []storagemodels.RowKey{key}, keys)

	items, err := obs.BatchGet(ctx, keys)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	item, err := obs.GetItem(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, item)

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("write", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("get_item", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.metrics.active.WithLabelValues("write")))
	assert.Contains(t, logs.String(), "operation=query_term")
}

func TestStore_RecordsErrors(t *testing.T) {
	boom := errors.New("boom")
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer

	obs, err := New(mock.New().WithWriteError(boom),
		WithName("failing"),
		WithRegisterer(reg),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	err = obs.Write(context.Background(), storagemodels.WriteBatch{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("write", "error")))
	assert.Contains(t, logs.String(), "store operation failed")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	reg := prometheus.NewRegistry()
	_, err = New(mock.New(), WithName("dup"), WithRegisterer(reg))
	require.NoError(t, err)
	_, err = New(mock.New(), WithName("dup"), WithRegisterer(reg))
	assert.Error(t, err, "registering the same collectors twice fails")

	obs, err := New(mock.New())
	require.NoError(t, err)
	assert.Nil(t, obs.metrics)
	assert.Nil(t, obs.logger)
}
