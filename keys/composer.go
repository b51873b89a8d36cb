/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package keys

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// Separator joins sort-key segments.
const Separator = "#"

var (
	escaper   = strings.NewReplacer("%", "%25", "#", "%23")
	unescaper = strings.NewReplacer("%23", "#", "%25", "%")
)

// Key addresses a primary row.
type Key = storagemodels.RowKey

// Composer derives storage keys for records of a registered type.
type Composer struct {
	provider cipher.Provider
	dataset  uuid.UUID
}

// NewComposer returns a Composer blinding partition keys with provider.
func NewComposer(provider cipher.Provider, dataset uuid.UUID) *Composer {
	return &Composer{provider: provider, dataset: dataset}
}

// Dataset returns the dataset every key is scoped to.
func (c *Composer) Dataset() uuid.UUID {
	return c.dataset
}

// Compose derives the primary key of a record from its values.
func (c *Composer) Compose(ctx context.Context, rt *registry.RecordType, values registry.Values) (Key, error) {
	pkValue, ok := values[rt.PartitionKey()]
	if !ok || pkValue == nil {
		return Key{}, errors.NewConfigurationError(rt.Name(), rt.PartitionKey(), "record has no value for the partition key")
	}
	var sortValue any
	if sk := rt.SortKey(); sk.Dynamic() {
		sortValue, ok = values[sk.Field]
		if !ok || sortValue == nil {
			return Key{}, errors.NewConfigurationError(rt.Name(), sk.Field, "record has no value for the sort key")
		}
	}
	return c.ComposeFrom(ctx, rt, pkValue, sortValue)
}

// ComposeFrom derives a primary key from caller-supplied key values. sortValue
// is ignored for types with a static sort key.
func (c *Composer) ComposeFrom(ctx context.Context, rt *registry.RecordType, pkValue, sortValue any) (Key, error) {
	pk, err := c.PartitionKey(ctx, rt, pkValue)
	if err != nil {
		return Key{}, err
	}
	sk, err := SortKey(rt, sortValue)
	if err != nil {
		return Key{}, err
	}
	return Key{PK: pk, SK: sk}, nil
}

// PartitionKey blinds a partition-key value into its stored form.
func (c *Composer) PartitionKey(ctx context.Context, rt *registry.RecordType, pkValue any) (string, error) {
	f, _ := rt.Field(rt.PartitionKey())
	plain, err := f.Kind.Canonical(pkValue)
	if err != nil {
		return "", errors.NewValidationError(f.Name, err.Error())
	}
	token, err := c.provider.Blind(ctx, []byte(plain), cipher.PartitionKeyContext(c.dataset))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(token), nil
}

// SortKey renders the sort key of a primary row.
func SortKey(rt *registry.RecordType, sortValue any) (string, error) {
	spec := rt.SortKey()
	if !spec.Dynamic() {
		return spec.Prefix, nil
	}
	if sortValue == nil {
		return "", errors.NewConfigurationError(rt.Name(), spec.Field, "no value for the sort key")
	}
	f, _ := rt.Field(spec.Field)
	plain, err := f.Kind.Canonical(sortValue)
	if err != nil {
		return "", errors.NewValidationError(f.Name, err.Error())
	}
	return spec.Prefix + Separator + escaper.Replace(plain), nil
}

// SortValue recovers the dynamic sort value embedded in a primary or term
// sort key, typed by the sort field's kind.
func SortValue(rt *registry.RecordType, sk string) (any, error) {
	spec := rt.SortKey()
	if !spec.Dynamic() {
		return nil, errors.NewValidationError(spec.Field, "record type has a static sort key")
	}
	parts := strings.SplitN(sk, Separator, 3)
	if len(parts) < 2 || parts[0] != spec.Prefix {
		return nil, errors.NewValidationError(spec.Field, "sort key "+sk+" does not belong to "+rt.Name())
	}
	f, _ := rt.Field(spec.Field)
	return f.Kind.Parse(unescaper.Replace(parts[1]))
}

// PrimarySK strips any term suffix from a sort key.
func PrimarySK(rt *registry.RecordType, sk string) string {
	segments := 1
	if rt.SortKey().Dynamic() {
		segments = 2
	}
	parts := strings.SplitN(sk, Separator, segments+1)
	if len(parts) <= segments {
		return sk
	}
	return strings.Join(parts[:segments], Separator)
}

// TermSK appends a term suffix to a primary sort key.
func TermSK(primarySK, suffix string) string {
	return primarySK + suffix
}

// BelongsTo reports whether sk is the primary sort key of a record of type rt.
func BelongsTo(rt *registry.RecordType, sk string) bool {
	parts := strings.Split(sk, Separator)
	if rt.SortKey().Dynamic() {
		return len(parts) == 2 && parts[0] == rt.SortKey().Prefix
	}
	return len(parts) == 1 && parts[0] == rt.SortKey().Prefix
}
