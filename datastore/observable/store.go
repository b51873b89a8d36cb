/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package observable

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cipherstash/cipherstash-dynamodb/datastore"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// Store wraps a datastore.Store and records metrics, spans and logs for
// every call. Results and errors of the wrapped store pass through unchanged.
type Store struct {
	store   datastore.Store
	name    string
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

var _ datastore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*options)

type options struct {
	name       string
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
}

// WithName sets the component name used as metric prefix and span attribute.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger enables logging of each operation.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer enables metrics, registered with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// New wraps store.
func New(store datastore.Store, opts ...Option) (*Store, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	o := options{name: "encrypted_table"}
	for _, opt := range opts {
		opt(&o)
	}

	obs := &Store{
		store:  store,
		name:   o.name,
		logger: o.logger,
		tracer: o.tracer,
	}
	if obs.tracer == nil {
		obs.tracer = otel.Tracer("datastore." + o.name)
	}
	if o.logger != nil {
		obs.logger = o.logger.WithGroup("observableStore")
	}
	if o.registerer != nil {
		m, err := NewMetrics(o.name, o.registerer)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to register metrics")
		}
		obs.metrics = m
	}
	return obs, nil
}

// observe runs fn inside a span and records its outcome. batchSize < 0 marks
// a single-row operation.
func (obs *Store) observe(ctx context.Context, operation string, batchSize int, fn func(context.Context) error) error {
	start := time.Now()

	attrs := []attribute.KeyValue{
		attribute.String("component", obs.name),
		attribute.String("operation", operation),
	}
	if batchSize >= 0 {
		attrs = append(attrs, attribute.Int("batch_size", batchSize))
	}
	ctx, span := obs.tracer.Start(ctx, "datastore."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	if obs.metrics != nil {
		if batchSize >= 0 {
			obs.metrics.batchSize.WithLabelValues(operation).Observe(float64(batchSize))
		}
		obs.metrics.active.WithLabelValues(operation).Inc()
		defer obs.metrics.active.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operations.WithLabelValues(operation, status).Inc()
		obs.metrics.duration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		args := []any{"component", obs.name, "operation", operation, "duration_ms", duration.Milliseconds()}
		if batchSize >= 0 {
			args = append(args, "batch_size", batchSize)
		}
		if err != nil {
			obs.logger.ErrorContext(ctx, "store operation failed", append(args, "error", err.Error())...)
		} else {
			obs.logger.DebugContext(ctx, "store operation completed", args...)
		}
	}
	return err
}

// Write implements datastore.Store.
func (obs *Store) Write(ctx context.Context, batch storagemodels.WriteBatch) error {
	return obs.observe(ctx, "write", batch.Len(), func(ctx context.Context) error {
		return obs.store.Write(ctx, batch)
	})
}

// GetItem implements datastore.Store.
func (obs *Store) GetItem(ctx context.Context, key storagemodels.RowKey) (storagemodels.Item, error) {
	var item storagemodels.Item
	err := obs.observe(ctx, "get_item", -1, func(ctx context.Context) error {
		var err error
		item, err = obs.store.GetItem(ctx, key)
		return err
	})
	return item, err
}

// QueryTerm implements datastore.Store.
func (obs *Store) QueryTerm(ctx context.Context, q storagemodels.TermQuery) ([]storagemodels.RowKey, error) {
	var keys []storagemodels.RowKey
	err := obs.observe(ctx, "query_term", -1, func(ctx context.Context) error {
		var err error
		keys, err = obs.store.QueryTerm(ctx, q)
		return err
	})
	return keys, err
}

// BatchGet implements datastore.Store.
func (obs *Store) BatchGet(ctx context.Context, keys []storagemodels.RowKey) ([]storagemodels.Item, error) {
	var items []storagemodels.Item
	err := obs.observe(ctx, "batch_get", len(keys), func(ctx context.Context) error {
		var err error
		items, err = obs.store.BatchGet(ctx, keys)
		return err
	})
	return items, err
}

// Close closes the wrapped store if it holds resources.
func (obs *Store) Close() error {
	if c, ok := obs.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
