/*
Package datastore defines the storage interface of an encrypted table.

The main interface is Store, which provides row-level operations over items
addressed by partition key and sort key:

	type Store interface {
	    Write(ctx context.Context, batch storagemodels.WriteBatch) error
	    GetItem(ctx context.Context, key storagemodels.RowKey) (storagemodels.Item, error)
	    QueryTerm(ctx context.Context, q storagemodels.TermQuery) ([]storagemodels.RowKey, error)
	    BatchGet(ctx context.Context, keys []storagemodels.RowKey) ([]storagemodels.Item, error)
	}

Implementations:
  - ddb: DynamoDB, with transactional writes and the TermIndex secondary index
  - bolt: embedded bbolt database with a term bucket standing in for the index
  - mock: in-memory store with error injection for testing
  - observable: decorator adding metrics, traces and logs to any Store

Backend errors are passed through to the caller wrapped with context; retries
are the caller's responsibility.
*/
package datastore
