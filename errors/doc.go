/*
Package errors provides semantic error types for cipherstash-dynamodb.

The taxonomy follows how failures are handled by callers:

	ConfigurationError  schema or registration inconsistency, detected eagerly
	QueryError          unsatisfiable predicate set or prefix over the cap
	DecodeError         decryption failure, type mismatch, missing default (per record)

Backend I/O errors are passed through from the storage adapter untouched.

Every struct error maps onto a sentinel through its Is method, so callers can
use errors.Is or the provided helpers:

	recs, err := users.Query(ctx, query.StartsWith("name", prefix))
	if errors.QueryKind(err) == errors.PrefixTooLong {
	    // reject the request
	}

	for _, err := range recs.Errors {
	    if errors.IsDecodeError(err) {
	        // one record failed, the others are usable
	    }
	}
*/
package errors
