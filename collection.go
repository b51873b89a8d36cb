/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipherstash

import (
	"context"

	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/query"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// Identifiable names the record type a Go value is stored as.
type Identifiable interface {
	RecordTypeName() string
}

// Encryptable values can be written to an encrypted table.
type Encryptable interface {
	Identifiable
	ToValues() registry.Values
}

// Decryptable values can be rebuilt from decoded record values. It is
// implemented on the pointer type.
type Decryptable interface {
	FromValues(registry.Values) error
}

// PutRecord writes a value implementing Encryptable.
func (t *EncryptedTable) PutRecord(ctx context.Context, record Encryptable) error {
	return t.Put(ctx, record.RecordTypeName(), record.ToValues())
}

// Collection is a typed view of one record type. T may implement Encryptable,
// Decryptable (on *T), or both; operations needing a missing capability fail
// with a ConfigurationError.
type Collection[T any] struct {
	table    *EncryptedTable
	typeName string
}

// NewCollection returns a collection over the registered type typeName.
func NewCollection[T any](table *EncryptedTable, typeName string) (*Collection[T], error) {
	if _, err := table.recordType(typeName); err != nil {
		return nil, err
	}
	return &Collection[T]{table: table, typeName: typeName}, nil
}

// TypeName returns the record type of the collection.
func (c *Collection[T]) TypeName() string {
	return c.typeName
}

// Put writes record.
func (c *Collection[T]) Put(ctx context.Context, record T) error {
	enc, ok := any(record).(Encryptable)
	if !ok {
		enc, ok = any(&record).(Encryptable)
	}
	if !ok {
		return errors.NewConfigurationError(c.typeName, "", "%T is not Encryptable", record)
	}
	if enc.RecordTypeName() != c.typeName {
		return errors.NewConfigurationError(c.typeName, "", "record is a %s", enc.RecordTypeName())
	}
	return c.table.Put(ctx, c.typeName, enc.ToValues())
}

// Get reads the record with the given key values.
func (c *Collection[T]) Get(ctx context.Context, pkValue, sortValue any) (*T, error) {
	values, err := c.table.Get(ctx, c.typeName, pkValue, sortValue)
	if err != nil {
		return nil, err
	}
	return c.decode(values)
}

// Find returns the record, or nil when it does not exist.
func (c *Collection[T]) Find(ctx context.Context, pkValue, sortValue any) (*T, error) {
	values, err := c.table.Find(ctx, c.typeName, pkValue, sortValue)
	if err != nil || values == nil {
		return nil, err
	}
	return c.decode(values)
}

// Delete removes the record with the given key values.
func (c *Collection[T]) Delete(ctx context.Context, pkValue, sortValue any) error {
	return c.table.Delete(ctx, c.typeName, pkValue, sortValue)
}

// Query returns one result per matched record. Decode failures appear as
// results carrying an Error.
func (c *Collection[T]) Query(ctx context.Context, preds []query.Predicate, opts ...storagemodels.QueryOption) ([]storagemodels.Result[T], error) {
	res, err := c.table.QueryWith(ctx, c.typeName, preds, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]storagemodels.Result[T], 0, len(res.Records)+len(res.Errors))
	for i, values := range res.Records {
		r := storagemodels.Result[T]{Raw: res.Raw[i]}
		v, err := c.decode(values)
		if err != nil {
			r.Error = err
		} else {
			r.Item = *v
		}
		out = append(out, r)
	}
	for _, err := range res.Errors {
		out = append(out, storagemodels.Result[T]{Error: err})
	}
	return out, nil
}

func (c *Collection[T]) decode(values registry.Values) (*T, error) {
	v := new(T)
	dec, ok := any(v).(Decryptable)
	if !ok {
		return nil, errors.NewConfigurationError(c.typeName, "", "%T is not Decryptable", v)
	}
	if err := dec.FromValues(values); err != nil {
		return nil, err
	}
	return v, nil
}
