// Package keys composes the partition and sort keys that address rows of an
// encrypted table.
//
// The partition key is the URL-safe base64 form of a blind token of the
// partition-key value. The sort key is the type's prefix, optionally followed by
// '#' and the escaped value of a dynamic sort field. Term rows reuse the primary
// sort key and append a suffix.
package keys
