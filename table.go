/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipherstash

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/codec"
	"github.com/cipherstash/cipherstash-dynamodb/datastore"
	"github.com/cipherstash/cipherstash-dynamodb/datastore/observable"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/query"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
	"github.com/cipherstash/cipherstash-dynamodb/terms"
)

// EncryptedTable stores records of the registered types in one table,
// encrypting field values and maintaining blinded term rows for queries.
// It holds no mutable state and is safe for concurrent use.
type EncryptedTable struct {
	registry  *registry.Registry
	provider  cipher.Provider
	store     datastore.Store
	dataset   uuid.UUID
	indexName string
	queryOpts []storagemodels.QueryOption
	logger    *slog.Logger

	observed   bool
	registerer prometheus.Registerer

	composer  *keys.Composer
	generator *terms.Generator
	codec     *codec.Codec
	planner   *query.Planner
}

// Option configures an EncryptedTable.
type Option func(*EncryptedTable)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *EncryptedTable) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDatasetID scopes the table to a dataset from construction.
func WithDatasetID(id uuid.UUID) Option {
	return func(t *EncryptedTable) { t.dataset = id }
}

// WithIndexName overrides the term index name.
func WithIndexName(name string) Option {
	return func(t *EncryptedTable) {
		if name != "" {
			t.indexName = name
		}
	}
}

// WithQueryOptions sets defaults applied before per-call query options.
func WithQueryOptions(opts ...storagemodels.QueryOption) Option {
	return func(t *EncryptedTable) { t.queryOpts = append(t.queryOpts, opts...) }
}

// WithObservability wraps the store so every storage call is traced and
// logged, with metrics registered on reg when it is non-nil.
func WithObservability(reg prometheus.Registerer) Option {
	return func(t *EncryptedTable) {
		t.observed = true
		t.registerer = reg
	}
}

// New returns a table over store. The registry should be frozen.
func New(reg *registry.Registry, provider cipher.Provider, store datastore.Store, opts ...Option) (*EncryptedTable, error) {
	if reg == nil || provider == nil || store == nil {
		return nil, errors.NewConfigurationError("", "", "registry, cipher provider and store are required")
	}
	t := &EncryptedTable{
		registry:  reg,
		provider:  provider,
		store:     store,
		indexName: storagemodels.DefaultIndexName,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.observed {
		obs, err := observable.New(store,
			observable.WithName("cipherstash"),
			observable.WithRegisterer(t.registerer),
			observable.WithLogger(t.logger))
		if err != nil {
			return nil, err
		}
		t.store = obs
	}
	t.bind()
	return t, nil
}

func (t *EncryptedTable) bind() {
	t.composer = keys.NewComposer(t.provider, t.dataset)
	t.generator = terms.NewGenerator(t.provider, t.dataset)
	t.codec = codec.New(t.provider, t.dataset)
	t.planner = query.NewPlanner(t.composer, t.generator)
}

// WithDataset returns a copy of the table whose keys, terms and encryption
// contexts are bound to dataset. Records written under one dataset are
// invisible to every other.
func (t *EncryptedTable) WithDataset(dataset uuid.UUID) *EncryptedTable {
	c := *t
	c.dataset = dataset
	c.bind()
	return &c
}

// Dataset returns the dataset the table is scoped to.
func (t *EncryptedTable) Dataset() uuid.UUID {
	return t.dataset
}

// Registry returns the schema registry.
func (t *EncryptedTable) Registry() *registry.Registry {
	return t.registry
}

// Close closes the underlying store if it holds resources.
func (t *EncryptedTable) Close() error {
	if c, ok := t.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *EncryptedTable) recordType(name string) (*registry.RecordType, error) {
	rt, ok := t.registry.Lookup(name)
	if !ok {
		return nil, errors.NewConfigurationError(name, "", "record type not registered")
	}
	return rt, nil
}

// PreparePut builds the writes a put of values performs without sending them:
// the primary row, its term rows, and deletes for any term rows a previous
// version of the record produced that this one does not. Callers may apply
// the batch inside their own transaction (see ddb.TransactItems).
func (t *EncryptedTable) PreparePut(ctx context.Context, typeName string, values registry.Values) (storagemodels.WriteBatch, error) {
	rt, err := t.recordType(typeName)
	if err != nil {
		return storagemodels.WriteBatch{}, err
	}
	key, err := t.composer.Compose(ctx, rt, values)
	if err != nil {
		return storagemodels.WriteBatch{}, err
	}
	item, err := t.codec.Encode(ctx, rt, key, values)
	if err != nil {
		return storagemodels.WriteBatch{}, err
	}
	rows, err := t.generator.Terms(ctx, rt, key, values)
	if err != nil {
		return storagemodels.WriteBatch{}, err
	}

	batch := storagemodels.WriteBatch{Puts: make([]storagemodels.Item, 0, len(rows)+1)}
	batch.Puts = append(batch.Puts, item)
	written := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		batch.Puts = append(batch.Puts, storagemodels.TermItem(row.Key(), row.Term))
		written[row.Suffix] = struct{}{}
	}
	for _, suffix := range terms.Suffixes(rt) {
		if _, ok := written[suffix]; !ok {
			batch.Deletes = append(batch.Deletes, keys.Key{PK: key.PK, SK: keys.TermSK(key.SK, suffix)})
		}
	}
	return batch, nil
}

// Put writes a record as prepared by PreparePut.
func (t *EncryptedTable) Put(ctx context.Context, typeName string, values registry.Values) error {
	batch, err := t.PreparePut(ctx, typeName, values)
	if err != nil {
		return err
	}
	if err := t.store.Write(ctx, batch); err != nil {
		return pkgerrors.WithMessagef(err, "put %s", typeName)
	}
	t.logger.DebugContext(ctx, "record written",
		"type", typeName,
		"rows", len(batch.Puts),
		"stale_deletes", len(batch.Deletes))
	return nil
}

// Get reads the record addressed by its partition key value and, for types
// with a dynamic sort key, its sort value. A missing record is a NotFoundError.
func (t *EncryptedTable) Get(ctx context.Context, typeName string, pkValue, sortValue any) (registry.Values, error) {
	values, err := t.Find(ctx, typeName, pkValue, sortValue)
	if err != nil {
		return nil, err
	}
	if values == nil {
		rt, _ := t.recordType(typeName)
		key, _ := t.composer.ComposeFrom(ctx, rt, pkValue, sortValue)
		return nil, errors.NewNotFoundError(rt.Name(), key.SK)
	}
	return values, nil
}

// Find is Get that reports a missing record as nil values and a nil error.
func (t *EncryptedTable) Find(ctx context.Context, typeName string, pkValue, sortValue any) (registry.Values, error) {
	rt, err := t.recordType(typeName)
	if err != nil {
		return nil, err
	}
	key, err := t.composer.ComposeFrom(ctx, rt, pkValue, sortValue)
	if err != nil {
		return nil, err
	}
	item, err := t.store.GetItem(ctx, key)
	if err != nil {
		return nil, pkgerrors.WithMessagef(err, "get %s", rt.Name())
	}
	if item == nil {
		return nil, nil
	}
	return t.codec.Decode(ctx, rt, item)
}

// PrepareDelete builds the deletes for a record and every term row put could
// have written for it, without sending them.
func (t *EncryptedTable) PrepareDelete(ctx context.Context, typeName string, pkValue, sortValue any) (storagemodels.WriteBatch, error) {
	rt, err := t.recordType(typeName)
	if err != nil {
		return storagemodels.WriteBatch{}, err
	}
	key, err := t.composer.ComposeFrom(ctx, rt, pkValue, sortValue)
	if err != nil {
		return storagemodels.WriteBatch{}, err
	}

	suffixes := terms.Suffixes(rt)
	batch := storagemodels.WriteBatch{Deletes: make([]storagemodels.RowKey, 0, len(suffixes)+1)}
	batch.Deletes = append(batch.Deletes, key)
	for _, suffix := range suffixes {
		batch.Deletes = append(batch.Deletes, keys.Key{PK: key.PK, SK: keys.TermSK(key.SK, suffix)})
	}
	return batch, nil
}

// Delete removes a record as prepared by PrepareDelete. Deleting a missing
// record is not an error.
func (t *EncryptedTable) Delete(ctx context.Context, typeName string, pkValue, sortValue any) error {
	batch, err := t.PrepareDelete(ctx, typeName, pkValue, sortValue)
	if err != nil {
		return err
	}
	if err := t.store.Write(ctx, batch); err != nil {
		return pkgerrors.WithMessagef(err, "delete %s", typeName)
	}
	t.logger.DebugContext(ctx, "record deleted", "type", typeName, "rows", batch.Len())
	return nil
}

// DecodeItems decodes primary rows of typeName the caller read from the table
// itself. Term rows are skipped. Each row decodes independently; a failure is
// reported in that row's Result.
func (t *EncryptedTable) DecodeItems(ctx context.Context, typeName string, items []storagemodels.Item) ([]storagemodels.Result[registry.Values], error) {
	rt, err := t.recordType(typeName)
	if err != nil {
		return nil, err
	}
	out := make([]storagemodels.Result[registry.Values], 0, len(items))
	for _, item := range items {
		if _, isTerm := storagemodels.TermOf(item); isTerm {
			continue
		}
		values, err := t.codec.Decode(ctx, rt, item)
		out = append(out, storagemodels.Result[registry.Values]{Item: values, Raw: item, Error: err})
	}
	return out, nil
}
