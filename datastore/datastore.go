/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// Store is the storage backend of an encrypted table: rows addressed by
// (pk, sk) plus one secondary index on the term attribute.
type Store interface {
	// Write applies the puts and deletes of a batch. Backends with
	// multi-item transactions apply each chunk atomically.
	Write(ctx context.Context, batch storagemodels.WriteBatch) error

	// GetItem returns the row at key, or nil if there is none.
	GetItem(ctx context.Context, key storagemodels.RowKey) (storagemodels.Item, error)

	// QueryTerm returns the keys of the term rows holding the given token.
	QueryTerm(ctx context.Context, q storagemodels.TermQuery) ([]storagemodels.RowKey, error)

	// BatchGet returns the rows that exist among keys, in no particular order.
	BatchGet(ctx context.Context, keys []storagemodels.RowKey) ([]storagemodels.Item, error)
}

// Chunk splits n operations into consecutive [start, end) ranges of at most size.
func Chunk(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
