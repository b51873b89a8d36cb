// Package codec converts record values into primary rows and back.
//
// Plaintext fields are stored as native DynamoDB attributes. Encrypted fields
// are serialised with msgpack, sealed by the cipher provider under a key
// context bound to the record's partition key, and stored as binary
// attributes. Decoding is pure apart from calls to the provider.
package codec
