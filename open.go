/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipherstash

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/cipherstash/cipherstash-dynamodb/cipher"
	"github.com/cipherstash/cipherstash-dynamodb/config"
	"github.com/cipherstash/cipherstash-dynamodb/datastore"
	"github.com/cipherstash/cipherstash-dynamodb/datastore/bolt"
	"github.com/cipherstash/cipherstash-dynamodb/datastore/ddb"
	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// Open builds a table from cfg: a registry holding types with cfg's default
// prefix cap, the local cipher provider keyed by cfg.RootKeyHex, and a bbolt
// store when cfg.BoltPath is set or DynamoDB otherwise.
func Open(ctx context.Context, cfg config.Config, types []*registry.RecordType, opts ...Option) (*EncryptedTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RootKeyHex == "" {
		return nil, errors.New("config has no root key")
	}

	reg := registry.New(registry.WithMaxPrefixLen(cfg.MaxPrefixLen))
	for _, rt := range types {
		if err := reg.Register(rt); err != nil {
			return nil, err
		}
	}
	reg.Freeze()

	provider, err := cipher.NewLocalFromHex(cfg.RootKeyHex)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid root key")
	}

	var store datastore.Store
	if cfg.BoltPath != "" {
		store, err = bolt.Open(cfg.BoltPath, bolt.Options{})
	} else {
		store, err = ddb.NewFromConfig(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	table, err := New(reg, provider, store, append([]Option{WithIndexName(cfg.IndexName)}, opts...)...)
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return table, nil
}
