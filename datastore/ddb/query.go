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

// QueryTerm implements datastore.Store by paging through the term index.
func (s *DynamodbStore) QueryTerm(ctx context.Context, q storagemodels.TermQuery) ([]storagemodels.RowKey, error) {
	indexName := q.IndexName
	if indexName == "" {
		indexName = s.index.IndexName
	}
	input := &sdk.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(indexName),
		KeyConditionExpression: aws.String("#term = :term"),
		ExpressionAttributeNames: map[string]string{
			"#term": s.index.KeyAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":term": &types.AttributeValueMemberS{Value: q.Term},
		},
		ProjectionExpression: aws.String("#pk, #sk"),
	}
	input.ExpressionAttributeNames["#pk"] = storagemodels.AttrPK
	input.ExpressionAttributeNames["#sk"] = storagemodels.AttrSK
	if q.PageSize > 0 {
		input.Limit = aws.Int32(q.PageSize)
	}

	var keys []storagemodels.RowKey
	paginator := sdk.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.WithMessage(err, "query error")
		}
		for _, item := range page.Items {
			key, ok := storagemodels.KeyOf(item)
			if !ok {
				s.logger.Warn("term row without key attributes", "index", indexName)
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
