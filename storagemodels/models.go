/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Attribute names shared by every row of an encrypted table.
const (
	AttrPK   = "pk"
	AttrSK   = "sk"
	AttrTerm = "term"
	AttrType = "__type"
)

// DefaultIndexName is the secondary index keyed on AttrTerm.
const DefaultIndexName = "TermIndex"

// Item is a stored row in DynamoDB attribute form.
type Item = map[string]types.AttributeValue

// RowKey addresses a single row.
type RowKey struct {
	PK string
	SK string
}

func (k RowKey) String() string {
	return k.PK + "/" + k.SK
}

// Attributes returns the key in DynamoDB attribute form.
func (k RowKey) Attributes() Item {
	return Item{
		AttrPK: &types.AttributeValueMemberS{Value: k.PK},
		AttrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

// KeyOf extracts the row key of an item. ok is false when either key
// attribute is missing or not a string.
func KeyOf(item Item) (RowKey, bool) {
	pk, ok := item[AttrPK].(*types.AttributeValueMemberS)
	if !ok {
		return RowKey{}, false
	}
	sk, ok := item[AttrSK].(*types.AttributeValueMemberS)
	if !ok {
		return RowKey{}, false
	}
	return RowKey{PK: pk.Value, SK: sk.Value}, true
}

// TermItem builds a term row: the key plus a single term attribute.
func TermItem(key RowKey, term string) Item {
	item := key.Attributes()
	item[AttrTerm] = &types.AttributeValueMemberS{Value: term}
	return item
}

// TermOf returns the term attribute of an item, if any.
func TermOf(item Item) (string, bool) {
	t, ok := item[AttrTerm].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return t.Value, true
}

// TypeOf returns the record type name stored on a primary row.
func TypeOf(item Item) (string, bool) {
	t, ok := item[AttrType].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return t.Value, true
}

// WriteBatch is one logical write: rows to put and rows to delete. Adapters
// that support multi-item transactions apply it in chunks of at most ChunkSize.
type WriteBatch struct {
	Puts    []Item
	Deletes []RowKey
}

// Len is the number of operations in the batch.
func (b WriteBatch) Len() int {
	return len(b.Puts) + len(b.Deletes)
}

// TermQuery selects term rows by token on the term index.
type TermQuery struct {
	// IndexName defaults to DefaultIndexName.
	IndexName string
	// Term is the hex blind token to look up.
	Term string
	// PageSize limits items per backend page; zero means backend default.
	PageSize int32
}
