/*
Package bolt stores an encrypted table in an embedded bbolt database.

Rows are msgpack-encoded and live in the "rows" bucket. Term rows additionally
get an entry in the "terms" bucket so QueryTerm is a prefix scan. Each Write is
a single bbolt transaction, so a whole batch is atomic regardless of size.

	store, err := bolt.Open("table.db", bolt.Options{})
	if err != nil {
	    return err
	}
	defer store.Close()

The store is meant for local development and tests that need persistence
without a DynamoDB endpoint.
*/
package bolt
