/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// fakeClient is an in-memory Client recording the calls it receives.
type fakeClient struct {
	mu           sync.Mutex
	rows         map[storagemodels.RowKey]storagemodels.Item
	transactions [][]types.TransactWriteItem
	queries      int
	batchGets    int
	holdBack     int // keys left unprocessed on the first BatchGetItem call
	failWrites   error
	created      *sdk.CreateTableInput
}

func newFakeClient() *fakeClient {
	return &fakeClient{rows: map[storagemodels.RowKey]storagemodels.Item{}}
}

func keyOf(t *testing.T, item storagemodels.Item) storagemodels.RowKey {
	k, ok := storagemodels.KeyOf(item)
	require.True(t, ok)
	return k
}

func (f *fakeClient) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, _ := storagemodels.KeyOf(in.Key)
	return &sdk.GetItemOutput{Item: f.rows[k]}, nil
}

func (f *fakeClient) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	term := in.ExpressionAttributeValues[":term"].(*types.AttributeValueMemberS).Value
	var matches []storagemodels.RowKey
	for k, item := range f.rows {
		if t, ok := storagemodels.TermOf(item); ok && t == term {
			matches = append(matches, k)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].String() < matches[j].String() })

	start := 0
	if in.ExclusiveStartKey != nil {
		last, _ := storagemodels.KeyOf(in.ExclusiveStartKey)
		for i, m := range matches {
			if m == last {
				start = i + 1
			}
		}
	}
	end := len(matches)
	if in.Limit != nil && start+int(*in.Limit) < end {
		end = start + int(*in.Limit)
	}

	out := &sdk.QueryOutput{}
	for _, m := range matches[start:end] {
		out.Items = append(out.Items, f.rows[m])
	}
	if end < len(matches) {
		out.LastEvaluatedKey = matches[end-1].Attributes()
	}
	return out, nil
}

func (f *fakeClient) BatchGetItem(_ context.Context, in *sdk.BatchGetItemInput, _ ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchGets++

	out := &sdk.BatchGetItemOutput{
		Responses:       map[string][]map[string]types.AttributeValue{},
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}
	for table, ka := range in.RequestItems {
		keys := ka.Keys
		if f.holdBack > 0 && len(keys) > f.holdBack {
			out.UnprocessedKeys[table] = types.KeysAndAttributes{Keys: keys[len(keys)-f.holdBack:]}
			keys = keys[:len(keys)-f.holdBack]
			f.holdBack = 0
		}
		for _, key := range keys {
			k, _ := storagemodels.KeyOf(key)
			if item, ok := f.rows[k]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func (f *fakeClient) TransactWriteItems(_ context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return nil, f.failWrites
	}
	f.transactions = append(f.transactions, in.TransactItems)
	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			k, _ := storagemodels.KeyOf(ti.Put.Item)
			f.rows[k] = ti.Put.Item
		case ti.Delete != nil:
			k, _ := storagemodels.KeyOf(ti.Delete.Key)
			delete(f.rows, k)
		}
	}
	return &sdk.TransactWriteItemsOutput{}, nil
}

func (f *fakeClient) CreateTable(_ context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created != nil {
		return nil, &types.ResourceInUseException{}
	}
	f.created = in
	return &sdk.CreateTableOutput{}, nil
}

func termRows(n int, pk, term string) []storagemodels.Item {
	out := make([]storagemodels.Item, n)
	for i := range out {
		out[i] = storagemodels.TermItem(storagemodels.RowKey{PK: pk, SK: "user#name#" + string(rune('a'+i%26)) + string(rune('a'+i/26))}, term)
	}
	return out
}

func TestDynamodbStore_WriteChunks(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := New(client, "encrypted")

	rows := termRows(230, "p", "t1")
	require.NoError(t, store.Write(ctx, storagemodels.WriteBatch{Puts: rows}))

	require.Len(t, client.transactions, 3)
	assert.Len(t, client.transactions[0], 100)
	assert.Len(t, client.transactions[1], 100)
	assert.Len(t, client.transactions[2], 30)
	assert.Len(t, client.rows, 230)

	require.NoError(t, store.Write(ctx, storagemodels.WriteBatch{
		Deletes: []storagemodels.RowKey{keyOf(t, rows[0]), keyOf(t, rows[1])},
	}))
	assert.Len(t, client.rows, 228)
}

func TestDynamodbStore_WriteChunkSizeOption(t *testing.T) {
	client := newFakeClient()
	store := New(client, "encrypted", WithChunkSize(10))
	require.NoError(t, store.Write(context.Background(), storagemodels.WriteBatch{Puts: termRows(25, "p", "t")}))
	assert.Len(t, client.transactions, 3)
}

func TestDynamodbStore_WriteError(t *testing.T) {
	client := newFakeClient()
	client.failWrites = &types.TransactionCanceledException{
		Message: new(string),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("TransactionConflict")},
		},
	}
	store := New(client, "encrypted")

	err := store.Write(context.Background(), storagemodels.WriteBatch{Puts: termRows(1, "p", "t")})
	require.Error(t, err)
	var tce *types.TransactionCanceledException
	assert.True(t, errors.As(err, &tce))
	assert.True(t, storeerrors.IsConditionFailed(err))
	assert.Contains(t, err.Error(), "TransactionConflict")

	client.failWrites = errors.New("throttled")
	err = store.Write(context.Background(), storagemodels.WriteBatch{Puts: termRows(1, "p", "t")})
	assert.False(t, storeerrors.IsConditionFailed(err))
}

func TestTransactItems(t *testing.T) {
	rows := termRows(2, "p", "t")
	gone := storagemodels.RowKey{PK: "p", SK: "user#name#3"}
	items := TransactItems("encrypted", storagemodels.WriteBatch{Puts: rows, Deletes: []storagemodels.RowKey{gone}})

	require.Len(t, items, 3)
	for i, item := range items[:2] {
		require.NotNil(t, item.Put)
		assert.Equal(t, "encrypted", aws.ToString(item.Put.TableName))
		assert.Equal(t, rows[i], storagemodels.Item(item.Put.Item))
	}
	require.NotNil(t, items[2].Delete)
	assert.Equal(t, "encrypted", aws.ToString(items[2].Delete.TableName))
	assert.Equal(t, gone, keyOf(t, items[2].Delete.Key))

	assert.Empty(t, TransactItems("encrypted", storagemodels.WriteBatch{}))
}

func TestDynamodbStore_GetItem(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := New(client, "encrypted")
	rows := termRows(1, "p", "t")
	require.NoError(t, store.Write(ctx, storagemodels.WriteBatch{Puts: rows}))

	item, err := store.GetItem(ctx, keyOf(t, rows[0]))
	require.NoError(t, err)
	assert.Equal(t, rows[0], item)

	item, err = store.GetItem(ctx, storagemodels.RowKey{PK: "nope", SK: "user"})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestDynamodbStore_QueryTermPaginates(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := New(client, "encrypted")
	require.NoError(t, store.Write(ctx, storagemodels.WriteBatch{Puts: append(termRows(7, "p1", "wanted"), termRows(3, "p2", "other")...)}))

	keys, err := store.QueryTerm(ctx, storagemodels.TermQuery{Term: "wanted", PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, keys, 7)
	assert.Equal(t, 3, client.queries)
}

func TestDynamodbStore_BatchGet(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := New(client, "encrypted", WithBatchSize(50))
	rows := termRows(120, "p", "t")
	require.NoError(t, store.Write(ctx, storagemodels.WriteBatch{Puts: rows}))

	keys := make([]storagemodels.RowKey, 0, len(rows)+1)
	for _, r := range rows {
		keys = append(keys, keyOf(t, r))
	}
	keys = append(keys, storagemodels.RowKey{PK: "missing", SK: "user"})

	client.holdBack = 5
	items, err := store.BatchGet(ctx, keys)
	require.NoError(t, err)
	assert.Len(t, items, 120)
	assert.Equal(t, 4, client.batchGets)
}

func TestDynamodbStore_CreateTable(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := New(client, "encrypted")

	require.NoError(t, store.CreateTable(ctx))
	require.NotNil(t, client.created)
	require.Len(t, client.created.GlobalSecondaryIndexes, 1)
	gsi := client.created.GlobalSecondaryIndexes[0]
	assert.Equal(t, "TermIndex", *gsi.IndexName)
	assert.Equal(t, "term", *gsi.KeySchema[0].AttributeName)
	assert.Equal(t, types.ProjectionTypeAll, gsi.Projection.ProjectionType)

	// A second create finds the table in use and succeeds.
	assert.NoError(t, store.CreateTable(ctx))
}
