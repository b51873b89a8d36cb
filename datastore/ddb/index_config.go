/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// IndexConfig holds the configuration of the term index
type IndexConfig struct {
	// IndexName is the GSI name in DynamoDB (e.g., "TermIndex")
	IndexName string
	// KeyAttribute is the partition key attribute of the GSI (e.g., "term")
	KeyAttribute string
}

// DefaultIndexConfig returns the standard term index layout.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		IndexName:    storagemodels.DefaultIndexName,
		KeyAttribute: storagemodels.AttrTerm,
	}
}

// TableDefinition returns the CreateTable input for an encrypted table:
// pk/sk primary key and one GSI on the term attribute projecting all attributes.
func (s *DynamodbStore) TableDefinition() *sdk.CreateTableInput {
	return &sdk.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(storagemodels.AttrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(storagemodels.AttrSK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(s.index.KeyAttribute), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(storagemodels.AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(storagemodels.AttrSK), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(s.index.IndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(s.index.KeyAttribute), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}

// CreateTable creates the table. An existing table is not an error.
func (s *DynamodbStore) CreateTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, s.TableDefinition())
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			s.logger.Info("table already exists", "table", s.tableName)
			return nil
		}
		return errors.WithMessage(err, "CreateTable failed")
	}
	s.logger.Info("table created", "table", s.tableName, "index", s.index.IndexName)
	return nil
}
