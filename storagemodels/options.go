/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package storagemodels

// Result is one hydrated record of a query, or the error decoding it.
type Result[T any] struct {
	Item  T    // The decoded record
	Raw   Item // The primary row it was decoded from
	Error error
}

// QueryOptions configures a query.
type QueryOptions struct {
	PageSize  int32 // Term rows per index page (default: 100)
	BatchSize int   // Keys per hydration read (default: 100)
	Limit     int   // Maximum records returned; zero means no limit
}

// QueryOption is a functional option for configuring queries
type QueryOption func(*QueryOptions)

// DefaultQueryOptions returns default query options
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		PageSize:  100,
		BatchSize: 100,
	}
}

// ApplyQueryOptions folds opts over the defaults. Out-of-range sizes left by
// custom options fall back to the defaults.
func ApplyQueryOptions(opts ...QueryOption) QueryOptions {
	o := DefaultQueryOptions()
	for _, opt := range opts {
		opt(&o)
	}
	def := DefaultQueryOptions()
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.BatchSize <= 0 || o.BatchSize > def.BatchSize {
		o.BatchSize = def.BatchSize
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	return o
}

// WithPageSize sets the index page size
func WithPageSize(size int32) QueryOption {
	return func(opts *QueryOptions) {
		if size > 0 {
			opts.PageSize = size
		}
	}
}

// WithBatchSize sets the number of keys per hydration read, capped at 100.
func WithBatchSize(size int) QueryOption {
	return func(opts *QueryOptions) {
		if size > 0 && size <= 100 {
			opts.BatchSize = size
		}
	}
}

// WithLimit caps the number of records returned
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		opts.Limit = limit
	}
}
