/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/cipherstash/cipherstash-dynamodb/datastore"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

var (
	rowsBucket  = []byte("rows")
	termsBucket = []byte("terms")
)

// Store keeps an encrypted table in a single bbolt file. The terms bucket
// maps term||0x00||rowkey to nothing and plays the role of the term index.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ datastore.Store = (*Store)(nil)

// Options configures Open.
type Options struct {
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
	// NoSync skips fsync after each commit. Only for tests.
	NoSync bool
	Logger *slog.Logger
}

// Open opens or creates the database at path.
func Open(path string, opt Options) (*Store, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = 10 * time.Second
	}
	if opt.NoSync {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	}

	db, err := bbolt.Open(path, 0o600, &bopt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt database %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{rowsBucket, termsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.WithMessage(err, "failed to prepare buckets")
	}

	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bolt store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write applies the whole batch in one bbolt transaction.
func (s *Store) Write(ctx context.Context, batch storagemodels.WriteBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		rows := tx.Bucket(rowsBucket)
		terms := tx.Bucket(termsBucket)

		for _, item := range batch.Puts {
			key, ok := storagemodels.KeyOf(item)
			if !ok {
				return errors.New("item has no pk/sk attributes")
			}
			if err := dropTerm(rows, terms, key); err != nil {
				return err
			}
			data, err := encodeItem(item)
			if err != nil {
				return errors.WithMessagef(err, "encoding row %s", key)
			}
			rk := rowKey(key)
			if err := rows.Put(rk, data); err != nil {
				return err
			}
			if term, ok := storagemodels.TermOf(item); ok {
				if err := terms.Put(termKey(term, rk), nil); err != nil {
					return err
				}
			}
		}

		for _, key := range batch.Deletes {
			if err := dropTerm(rows, terms, key); err != nil {
				return err
			}
			if err := rows.Delete(rowKey(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetItem implements datastore.Store.
func (s *Store) GetItem(ctx context.Context, key storagemodels.RowKey) (storagemodels.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var item storagemodels.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(rowsBucket).Get(rowKey(key))
		if data == nil {
			return nil
		}
		var err error
		item, err = decodeItem(data)
		return err
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "reading row %s", key)
	}
	return item, nil
}

// QueryTerm scans the terms bucket for the token. Page size has no meaning
// here; every match is returned.
func (s *Store) QueryTerm(ctx context.Context, q storagemodels.TermQuery) ([]storagemodels.RowKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := termKey(q.Term, nil)
	var keys []storagemodels.RowKey
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(termsBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			key, err := parseRowKey(k[len(prefix):])
			if err != nil {
				s.logger.Warn("skipping malformed term entry", "term", q.Term, "error", err)
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})
	return keys, err
}

// BatchGet implements datastore.Store.
func (s *Store) BatchGet(ctx context.Context, keys []storagemodels.RowKey) ([]storagemodels.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var items []storagemodels.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		rows := tx.Bucket(rowsBucket)
		for _, key := range keys {
			data := rows.Get(rowKey(key))
			if data == nil {
				continue
			}
			item, err := decodeItem(data)
			if err != nil {
				return errors.WithMessagef(err, "reading row %s", key)
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// dropTerm removes the index entry of the row currently stored at key.
func dropTerm(rows, terms *bbolt.Bucket, key storagemodels.RowKey) error {
	rk := rowKey(key)
	data := rows.Get(rk)
	if data == nil {
		return nil
	}
	old, err := decodeItem(data)
	if err != nil {
		return err
	}
	if term, ok := storagemodels.TermOf(old); ok {
		return terms.Delete(termKey(term, rk))
	}
	return nil
}

// rowKey encodes (pk, sk) as uvarint(len(pk)) || pk || sk.
func rowKey(key storagemodels.RowKey) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(key.PK)+len(key.SK))
	buf = binary.AppendUvarint(buf, uint64(len(key.PK)))
	buf = append(buf, key.PK...)
	return append(buf, key.SK...)
}

func parseRowKey(b []byte) (storagemodels.RowKey, error) {
	n, w := binary.Uvarint(b)
	if w <= 0 || uint64(len(b)-w) < n {
		return storagemodels.RowKey{}, errors.New("truncated row key")
	}
	rest := b[w:]
	return storagemodels.RowKey{PK: string(rest[:n]), SK: string(rest[n:])}, nil
}

// termKey is term || 0x00 || rowkey. Terms are hex so the separator is unambiguous.
func termKey(term string, rk []byte) []byte {
	buf := make([]byte, 0, len(term)+1+len(rk))
	buf = append(buf, term...)
	buf = append(buf, 0)
	return append(buf, rk...)
}

func encodeItem(item storagemodels.Item) ([]byte, error) {
	m, err := toAttrMap(item)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(m)
}

func decodeItem(data []byte) (storagemodels.Item, error) {
	var m map[string]attr
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "corrupt row")
	}
	return fromAttrMap(m)
}
