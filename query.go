/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipherstash

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/query"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// QueryResult holds the records a query matched. A record that fails to
// decode is reported in Errors and does not abort the others.
type QueryResult struct {
	Plan    *query.Plan
	Records []registry.Values
	Raw     []storagemodels.Item
	Errors  []error
}

// Query finds records of typeName matching every predicate.
func (t *EncryptedTable) Query(ctx context.Context, typeName string, preds ...query.Predicate) (*QueryResult, error) {
	return t.QueryWith(ctx, typeName, preds)
}

// QueryWith is Query with per-call options.
func (t *EncryptedTable) QueryWith(ctx context.Context, typeName string, preds []query.Predicate, opts ...storagemodels.QueryOption) (*QueryResult, error) {
	rt, err := t.recordType(typeName)
	if err != nil {
		return nil, err
	}
	plan, err := t.planner.Plan(ctx, rt, preds...)
	if err != nil {
		return nil, err
	}
	t.logger.DebugContext(ctx, "query planned", "plan", plan.Explain())

	o := storagemodels.ApplyQueryOptions(append(append([]storagemodels.QueryOption{}, t.queryOpts...), opts...)...)

	var items []storagemodels.Item
	switch plan.Op {
	case query.DirectGet:
		item, err := t.store.GetItem(ctx, plan.Key)
		if err != nil {
			return nil, pkgerrors.WithMessagef(err, "query %s", rt.Name())
		}
		if item != nil {
			items = append(items, item)
		}
	default:
		items, err = t.hydrate(ctx, rt, plan, o)
		if err != nil {
			return nil, err
		}
	}

	result := &QueryResult{Plan: plan}
	for _, item := range items {
		if o.Limit > 0 && len(result.Records) >= o.Limit {
			break
		}
		values, err := t.codec.Decode(ctx, rt, item)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Records = append(result.Records, values)
		result.Raw = append(result.Raw, item)
	}
	return result, nil
}

// Explain returns the plan a query would run without touching the store.
func (t *EncryptedTable) Explain(ctx context.Context, typeName string, preds ...query.Predicate) (*query.Plan, error) {
	rt, err := t.recordType(typeName)
	if err != nil {
		return nil, err
	}
	return t.planner.Plan(ctx, rt, preds...)
}

// hydrate looks up the term rows of a plan and reads the primary rows they
// point at, in term-row order. Term rows whose primary row is gone are
// skipped.
func (t *EncryptedTable) hydrate(ctx context.Context, rt *registry.RecordType, plan *query.Plan, o storagemodels.QueryOptions) ([]storagemodels.Item, error) {
	termKeys, err := t.store.QueryTerm(ctx, storagemodels.TermQuery{
		IndexName: t.indexName,
		Term:      plan.Term,
		PageSize:  o.PageSize,
	})
	if err != nil {
		return nil, pkgerrors.WithMessagef(err, "query %s", rt.Name())
	}

	seen := make(map[keys.Key]struct{}, len(termKeys))
	primary := make([]keys.Key, 0, len(termKeys))
	for _, tk := range termKeys {
		key := keys.Key{PK: tk.PK, SK: keys.PrimarySK(rt, tk.SK)}
		if !keys.BelongsTo(rt, key.SK) {
			t.logger.WarnContext(ctx, "term row outside record type", "type", rt.Name(), "sk", tk.SK)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		primary = append(primary, key)
	}

	found := make(map[keys.Key]storagemodels.Item, len(primary))
	for start := 0; start < len(primary); start += o.BatchSize {
		end := min(start+o.BatchSize, len(primary))
		batch, err := t.store.BatchGet(ctx, primary[start:end])
		if err != nil {
			return nil, pkgerrors.WithMessagef(err, "hydrating %s", rt.Name())
		}
		for _, item := range batch {
			if key, ok := storagemodels.KeyOf(item); ok {
				found[key] = item
			}
		}
	}

	items := make([]storagemodels.Item, 0, len(found))
	for _, key := range primary {
		item, ok := found[key]
		if !ok {
			t.logger.WarnContext(ctx, "skipping orphaned term row", "type", rt.Name(), "key", key.String())
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
