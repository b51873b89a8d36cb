/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/cipherstash/cipherstash-dynamodb/config"
	"github.com/cipherstash/cipherstash-dynamodb/datastore"
	storeerrors "github.com/cipherstash/cipherstash-dynamodb/errors"
	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	BatchGetItem(ctx context.Context, params *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
}

var _ Client = (*sdk.Client)(nil)

// maxBatchGetRounds bounds how often unprocessed keys are resubmitted.
const maxBatchGetRounds = 8

// DynamodbStore implements datastore.Store on a DynamoDB table.
type DynamodbStore struct {
	client    Client
	tableName string
	index     IndexConfig
	chunkSize int
	batchSize int
	logger    *slog.Logger
}

var _ datastore.Store = (*DynamodbStore)(nil)

// Option configures a DynamodbStore.
type Option func(*DynamodbStore)

// WithIndex overrides the term index configuration.
func WithIndex(index IndexConfig) Option {
	return func(s *DynamodbStore) { s.index = index }
}

// WithChunkSize sets the number of rows per TransactWriteItems call.
func WithChunkSize(n int) Option {
	return func(s *DynamodbStore) {
		if n > 0 && n <= 100 {
			s.chunkSize = n
		}
	}
}

// WithBatchSize sets the number of keys per BatchGetItem call.
func WithBatchSize(n int) Option {
	return func(s *DynamodbStore) {
		if n > 0 && n <= 100 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *DynamodbStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are used
// when the config carries them; otherwise the default AWS chain applies.
func NewDynamoDBClient(ctx context.Context, cfg config.Config) (*sdk.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	slog.Info("dynamodb client initialized", "table", cfg.TableName, "region", awsCfg.Region)
	return client, nil
}

// New returns a store over tableName.
func New(client Client, tableName string, opts ...Option) *DynamodbStore {
	s := &DynamodbStore{
		client:    client,
		tableName: tableName,
		index:     DefaultIndexConfig(),
		chunkSize: 100,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig builds a client from cfg and returns a store on its table.
func NewFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (*DynamodbStore, error) {
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create DynamoDB client")
	}
	base := []Option{
		WithIndex(IndexConfig{IndexName: cfg.IndexName, KeyAttribute: storagemodels.AttrTerm}),
		WithChunkSize(cfg.TransactChunkSize),
		WithBatchSize(cfg.BatchGetSize),
	}
	return New(client, cfg.TableName, append(base, opts...)...), nil
}

// TableName returns the table the store writes to.
func (s *DynamodbStore) TableName() string {
	return s.tableName
}

// GetItem implements datastore.Store.
func (s *DynamodbStore) GetItem(ctx context.Context, key storagemodels.RowKey) (storagemodels.Item, error) {
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key.Attributes(),
	})
	if err != nil {
		return nil, errors.WithMessage(err, "GetItem error")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// Write implements datastore.Store. Each chunk of at most chunkSize rows is
// one TransactWriteItems call; chunks are not atomic with each other.
func (s *DynamodbStore) Write(ctx context.Context, batch storagemodels.WriteBatch) error {
	items := TransactItems(s.tableName, batch)
	for _, r := range datastore.Chunk(len(items), s.chunkSize) {
		_, err := s.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
			TransactItems: items[r[0]:r[1]],
		})
		if err != nil {
			var tce *types.TransactionCanceledException
			if errors.As(err, &tce) {
				cfe := storeerrors.NewConditionFailedError("TransactWriteItems", cancellationReasons(tce))
				return errors.WithMessagef(stderrors.Join(cfe, err), "transaction cancelled writing rows %d-%d", r[0], r[1])
			}
			return errors.WithMessage(err, "TransactWriteItems failed")
		}
		s.logger.Debug("wrote rows", "table", s.tableName, "count", r[1]-r[0])
	}
	return nil
}

// TransactItems converts a write batch into TransactWriteItems entries for
// tableName, puts first. Callers can add the result to their own transaction
// alongside other writes; DynamoDB caps a transaction at 100 items.
func TransactItems(tableName string, batch storagemodels.WriteBatch) []types.TransactWriteItem {
	items := make([]types.TransactWriteItem, 0, batch.Len())
	for _, item := range batch.Puts {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(tableName), Item: item},
		})
	}
	for _, key := range batch.Deletes {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(tableName), Key: key.Attributes()},
		})
	}
	return items
}

// cancellationReasons lists the distinct non-None reason codes of a
// cancelled transaction, e.g. "TransactionConflict".
func cancellationReasons(tce *types.TransactionCanceledException) string {
	seen := map[string]bool{}
	var codes []string
	for _, r := range tce.CancellationReasons {
		code := aws.ToString(r.Code)
		if code == "" || code == "None" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return "unknown"
	}
	return strings.Join(codes, ",")
}

// BatchGet implements datastore.Store. Unprocessed keys are resubmitted
// without delay a bounded number of times.
func (s *DynamodbStore) BatchGet(ctx context.Context, keys []storagemodels.RowKey) ([]storagemodels.Item, error) {
	var out []storagemodels.Item
	for _, r := range datastore.Chunk(len(keys), s.batchSize) {
		pending := make([]map[string]types.AttributeValue, 0, r[1]-r[0])
		for _, key := range keys[r[0]:r[1]] {
			pending = append(pending, key.Attributes())
		}

		for round := 0; len(pending) > 0; round++ {
			if round == maxBatchGetRounds {
				return nil, errors.Errorf("BatchGetItem left %d keys unprocessed", len(pending))
			}
			resp, err := s.client.BatchGetItem(ctx, &sdk.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					s.tableName: {Keys: pending},
				},
			})
			if err != nil {
				return nil, errors.WithMessage(err, "BatchGetItem failed")
			}
			out = append(out, resp.Responses[s.tableName]...)
			pending = resp.UnprocessedKeys[s.tableName].Keys
		}
	}
	return out, nil
}
