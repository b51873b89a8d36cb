// Package query plans encrypted-table reads.
//
// A predicate set is resolved to exactly one storage operation: a direct read
// of a primary row, or a lookup of a single blind token on the term index
// followed by hydration. Predicate sets no index can serve are rejected with a
// QueryError; there is no scan fallback.
//
//	plan, err := planner.Plan(ctx, userType, query.StartsWith("name", "Da"))
package query
