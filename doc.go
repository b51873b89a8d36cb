/*
Package cipherstash stores encrypted records in DynamoDB while keeping them
queryable.

Every field value is encrypted before it leaves the process. Alongside each
record's primary row the table keeps term rows: blinded tokens of exact
values, string prefixes and compound combinations of fields, looked up through
a single secondary index on the term attribute. Several record types share one
table, kept apart by per-type sort-key prefixes.

Basic Usage:

	users := registry.NewRecordType("User").
	    PartitionKey("email").
	    Field("email", registry.String, registry.Exact()).
	    Field("name", registry.String, registry.Prefix(), registry.Cap(4)).
	    MustBuild()

	reg := registry.New().MustRegister(users).Freeze()
	provider, _ := cipher.NewLocalFromHex(rootKeyHex)
	store, _ := ddb.NewFromConfig(ctx, cfg)

	table, _ := cipherstash.New(reg, provider, store)
	err := table.Put(ctx, "User", registry.Values{"email": "dan@x.co", "name": "Dan"})
	res, err := table.Query(ctx, "User", query.StartsWith("name", "Da"))

Typed access goes through Collection, for Go types that implement Encryptable
and Decryptable. WithDataset scopes a table to one tenant dataset; records of
other datasets are invisible to it.
*/
package cipherstash
