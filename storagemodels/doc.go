/*
Package storagemodels defines the row-level data structures shared by the
encrypted table and its storage adapters.

Rows:
Every row carries string attributes pk and sk. Term rows add a single term
attribute; primary rows add __type plus one attribute per stored field.

	key := RowKey{PK: "c2VjcmV0", SK: "user"}
	row := TermItem(RowKey{PK: key.PK, SK: key.SK + "#email"}, "9f86d0...")

WriteBatch:
The puts and deletes of one logical operation:

	batch := WriteBatch{
	    Puts:    []Item{primary, term1, term2},
	    Deletes: []RowKey{staleTerm},
	}

QueryOptions:
Functional options for queries:

	opts := []QueryOption{
	    WithPageSize(50),
	    WithLimit(10),
	}
*/
package storagemodels
