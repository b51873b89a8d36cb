/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipher

import (
	"context"
	"encoding/binary"

	"github.com/google/uuid"
)

// Purpose names used in blind contexts.
const (
	PurposePartitionKey = "pk"
	PurposeExact        = "exact"
	PurposePrefix       = "prefix"
	PurposeCompound     = "compound"
)

// KeyContext identifies the key material an encrypted value is bound to.
// PartitionKey is the stored (blinded) partition key, so every record is
// encrypted under its own derived key.
type KeyContext struct {
	Dataset      uuid.UUID
	PartitionKey string
	RecordType   string
	Field        string
}

// Info returns an unambiguous byte encoding of the context.
func (k KeyContext) Info() []byte {
	return encodeParts("enc", k.Dataset.String(), k.PartitionKey, k.RecordType, k.Field)
}

// BlindContext scopes a blind token. Equal plaintexts under equal contexts
// produce equal tokens.
type BlindContext struct {
	Dataset    uuid.UUID
	RecordType string
	Source     string
	Purpose    string
}

// PartitionKeyContext returns the context for partition-key tokens. It is not
// bound to a record type so several types can share a partition.
func PartitionKeyContext(dataset uuid.UUID) BlindContext {
	return BlindContext{Dataset: dataset, Purpose: PurposePartitionKey}
}

// TermContext returns the context for an index term on a field or compound group.
func TermContext(dataset uuid.UUID, recordType, source, purpose string) BlindContext {
	return BlindContext{Dataset: dataset, RecordType: recordType, Source: source, Purpose: purpose}
}

// Info returns an unambiguous byte encoding of the context.
func (b BlindContext) Info() []byte {
	return encodeParts("blind", b.Dataset.String(), b.RecordType, b.Source, b.Purpose)
}

func (b BlindContext) String() string {
	if b.RecordType == "" {
		return b.Purpose
	}
	return b.RecordType + "#" + b.Source + "#" + b.Purpose
}

// Provider is the cryptographic collaborator of an encrypted table.
type Provider interface {
	// Encrypt returns an opaque ciphertext of plaintext bound to kc.
	Encrypt(ctx context.Context, plaintext []byte, kc KeyContext) ([]byte, error)

	// Decrypt reverses Encrypt under the same key context. It fails if the
	// ciphertext was produced under another context or was modified.
	Decrypt(ctx context.Context, ciphertext []byte, kc KeyContext) ([]byte, error)

	// Blind returns a deterministic one-way token of plaintext under bc.
	Blind(ctx context.Context, plaintext []byte, bc BlindContext) ([]byte, error)
}

// JoinParts length-prefixes each part so concatenations cannot collide.
func JoinParts(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += binary.MaxVarintLen64 + len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = binary.AppendUvarint(out, uint64(len(p)))
		out = append(out, p...)
	}
	return out
}

func encodeParts(parts ...string) []byte {
	bs := make([][]byte, len(parts))
	for i, p := range parts {
		bs[i] = []byte(p)
	}
	return JoinParts(bs...)
}
