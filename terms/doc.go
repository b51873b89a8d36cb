// Package terms derives the index rows of a record.
//
// Every index annotation of a record type produces term rows whose only
// attribute is a blind token. Exact indexes produce one row, prefix indexes one
// row per prefix length up to the field's cap, and compound groups one row per
// combination of member values. Term sort keys are the primary sort key plus a
// deterministic suffix, which is what lets delete enumerate them without
// reading anything.
package terms
