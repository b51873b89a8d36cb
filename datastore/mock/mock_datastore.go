/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Store for testing
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/cipherstash/cipherstash-dynamodb/datastore"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

var errMissingKey = errors.NewValidationError("key", "item has no pk/sk attributes")

// Store is an in-memory datastore.Store. A Write is applied atomically.
type Store struct {
	mu            sync.RWMutex
	rows          map[storagemodels.RowKey]storagemodels.Item
	writeError    error
	getError      error
	queryError    error
	batchGetError error
	writes        int
}

var _ datastore.Store = (*Store)(nil)

// New creates a new mock Store
func New() *Store {
	return &Store{
		rows: make(map[storagemodels.RowKey]storagemodels.Item),
	}
}

// WithWriteError makes Write operations return an error
func (m *Store) WithWriteError(err error) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeError = err
	return m
}

// WithGetError makes GetItem operations return an error
func (m *Store) WithGetError(err error) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getError = err
	return m
}

// WithQueryError makes QueryTerm operations return an error
func (m *Store) WithQueryError(err error) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryError = err
	return m
}

// WithBatchGetError makes BatchGet operations return an error
func (m *Store) WithBatchGetError(err error) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchGetError = err
	return m
}

// Write implements datastore.Store.
func (m *Store) Write(ctx context.Context, batch storagemodels.WriteBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeError != nil {
		return m.writeError
	}

	for _, item := range batch.Puts {
		key, ok := storagemodels.KeyOf(item)
		if !ok {
			return errMissingKey
		}
		m.rows[key] = copyItem(item)
	}
	for _, key := range batch.Deletes {
		delete(m.rows, key)
	}
	m.writes++
	return nil
}

// GetItem implements datastore.Store.
func (m *Store) GetItem(ctx context.Context, key storagemodels.RowKey) (storagemodels.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getError != nil {
		return nil, m.getError
	}
	item, ok := m.rows[key]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

// QueryTerm implements datastore.Store. Keys come back sorted.
func (m *Store) QueryTerm(ctx context.Context, q storagemodels.TermQuery) ([]storagemodels.RowKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.queryError != nil {
		return nil, m.queryError
	}
	var keys []storagemodels.RowKey
	for key, item := range m.rows {
		if term, ok := storagemodels.TermOf(item); ok && term == q.Term {
			keys = append(keys, key)
		}
	}
	sortKeys(keys)
	return keys, nil
}

// BatchGet implements datastore.Store.
func (m *Store) BatchGet(ctx context.Context, keys []storagemodels.RowKey) ([]storagemodels.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.batchGetError != nil {
		return nil, m.batchGetError
	}
	var out []storagemodels.Item
	for _, key := range keys {
		if item, ok := m.rows[key]; ok {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

// Keys returns every stored key in sorted order.
func (m *Store) Keys() []storagemodels.RowKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]storagemodels.RowKey, 0, len(m.rows))
	for key := range m.rows {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

// Len returns the number of stored rows.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Writes returns the number of successful Write calls.
func (m *Store) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Remove deletes a row directly, bypassing error injection.
func (m *Store) Remove(key storagemodels.RowKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
}

// Clear removes all rows
func (m *Store) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[storagemodels.RowKey]storagemodels.Item)
}

func copyItem(item storagemodels.Item) storagemodels.Item {
	out := make(storagemodels.Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func sortKeys(keys []storagemodels.RowKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PK != keys[j].PK {
			return keys[i].PK < keys[j].PK
		}
		return keys[i].SK < keys[j].SK
	})
}
