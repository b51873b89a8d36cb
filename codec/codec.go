/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package codec

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/keys"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// Codec converts record values to primary rows and back.
type Codec struct {
	provider cipher.Provider
	dataset  uuid.UUID
}

// New returns a Codec encrypting with provider under dataset.
func New(provider cipher.Provider, dataset uuid.UUID) *Codec {
	return &Codec{provider: provider, dataset: dataset}
}

func (c *Codec) keyContext(rt *registry.RecordType, pk, field string) cipher.KeyContext {
	return cipher.KeyContext{Dataset: c.dataset, PartitionKey: pk, RecordType: rt.Name(), Field: field}
}

// Encode builds the primary row of a record stored at key. Values are
// validated against their field kinds; skipped and key-only fields are not
// written.
func (c *Codec) Encode(ctx context.Context, rt *registry.RecordType, key keys.Key, values registry.Values) (storagemodels.Item, error) {
	item := key.Attributes()
	item[storagemodels.AttrType] = &types.AttributeValueMemberS{Value: rt.Name()}

	for _, f := range rt.Fields() {
		if !f.Stored() {
			continue
		}
		v := values[f.Name]
		if v != nil {
			n, err := f.Kind.Normalize(v)
			if err != nil {
				return nil, errors.NewValidationError(f.Name, err.Error())
			}
			v = n
		}

		if f.Role == registry.RolePlaintext {
			av, err := plaintextAttribute(f.Kind, v)
			if err != nil {
				return nil, errors.NewValidationError(f.Name, err.Error())
			}
			item[f.Name] = av
			continue
		}

		plain, err := marshalValue(v)
		if err != nil {
			return nil, errors.NewValidationError(f.Name, err.Error())
		}
		ct, err := c.provider.Encrypt(ctx, plain, c.keyContext(rt, key.PK, f.Name))
		if err != nil {
			return nil, pkgerrors.WithMessagef(err, "encrypting %s.%s", rt.Name(), f.Name)
		}
		item[f.Name] = &types.AttributeValueMemberB{Value: ct}
	}
	return item, nil
}

// Decode rebuilds record values from a primary row. Failures are reported as
// DecodeError naming the offending field.
func (c *Codec) Decode(ctx context.Context, rt *registry.RecordType, item storagemodels.Item) (registry.Values, error) {
	key, ok := storagemodels.KeyOf(item)
	if !ok {
		return nil, errors.NewDecodeError(errors.MissingAttribute, rt.Name(), storagemodels.AttrPK, nil)
	}
	if name, ok := storagemodels.TypeOf(item); ok && name != rt.Name() {
		return nil, errors.NewDecodeError(errors.TypeMismatch, rt.Name(), storagemodels.AttrType,
			pkgerrors.Errorf("row holds a %s", name))
	}

	values := make(registry.Values, len(rt.Fields()))
	for _, f := range rt.Fields() {
		switch {
		case f.Role == registry.RoleSkipped:
			if !f.HasDefault {
				return nil, errors.NewDecodeError(errors.MissingDefault, rt.Name(), f.Name, nil)
			}
			v := f.Default
			if v != nil {
				v, _ = f.Kind.Normalize(v)
			}
			values[f.Name] = v

		case f.KeyOnly:
			v, err := keys.SortValue(rt, key.SK)
			if err != nil {
				return nil, errors.NewDecodeError(errors.TypeMismatch, rt.Name(), f.Name, err)
			}
			values[f.Name] = v

		default:
			av, ok := item[f.Name]
			if !ok {
				return nil, errors.NewDecodeError(errors.MissingAttribute, rt.Name(), f.Name, nil)
			}
			v, err := c.decodeField(ctx, rt, key.PK, f, av)
			if err != nil {
				return nil, err
			}
			values[f.Name] = v
		}
	}
	return values, nil
}

func (c *Codec) decodeField(ctx context.Context, rt *registry.RecordType, pk string, f registry.FieldSpec, av types.AttributeValue) (any, error) {
	if f.Role == registry.RolePlaintext {
		v, err := plaintextValue(f.Kind, av)
		if err != nil {
			return nil, errors.NewDecodeError(errors.TypeMismatch, rt.Name(), f.Name, err)
		}
		return v, nil
	}

	b, ok := av.(*types.AttributeValueMemberB)
	if !ok {
		return nil, errors.NewDecodeError(errors.TypeMismatch, rt.Name(), f.Name,
			pkgerrors.Errorf("encrypted attribute is %T, want binary", av))
	}
	plain, err := c.provider.Decrypt(ctx, b.Value, c.keyContext(rt, pk, f.Name))
	if err != nil {
		return nil, errors.NewDecodeError(errors.DecryptionFailed, rt.Name(), f.Name, err)
	}
	v, err := unmarshalValue(f.Kind, plain)
	if err != nil {
		return nil, errors.NewDecodeError(errors.TypeMismatch, rt.Name(), f.Name, err)
	}
	return v, nil
}
