/*
Package registry holds the schema of every record type stored in an encrypted table.

A RecordType is declared once at startup through a builder and validated eagerly:

	user := registry.NewRecordType("user").
	    PartitionKey("email").
	    Field("email", registry.String, registry.Exact(), registry.ExactIn("email#name")).
	    Field("name", registry.String, registry.Prefix(), registry.Cap(4), registry.PrefixIn("email#name")).
	    Field("age", registry.Int, registry.Plaintext()).
	    MustBuild()

Each field has a Kind, a Role (encrypted by default, plaintext or skipped) and zero
or more query modes. A mode tagged with a group name makes the field a member of a
compound group; the group name lists its members in order, joined with '#'.

Types are collected in a Registry, which rejects duplicate names and sort-key
prefixes so several types can share one table. Call Freeze once registration is
done; lookups are safe for concurrent use.
*/
package registry
