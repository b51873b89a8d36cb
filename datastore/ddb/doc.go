/*
Package ddb provides a DynamoDB implementation of the datastore.Store interface.

The DynamodbStore supports:
  - Single-table layout with string pk and sk attributes
  - Transactional writes in chunks of up to 100 rows
  - Term lookups on the TermIndex GSI with automatic pagination
  - Batched reads that resubmit unprocessed keys
  - Table creation with the expected key schema and index

Clients:
Any value implementing Client can back the store, which keeps tests free of AWS:

	client, err := ddb.NewDynamoDBClient(ctx, cfg)
	store := ddb.New(client, "encrypted",
	    ddb.WithChunkSize(100),
	    ddb.WithLogger(logger),
	)
	err = store.CreateTable(ctx)

For usage examples, see the integration tests.
*/
package ddb
