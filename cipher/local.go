/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package cipher

import (
	"context"
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// RootKeySize is the length of a Local root key in bytes.
const RootKeySize = 32

// ErrDecryption is returned by Local.Decrypt for any ciphertext it cannot open.
var ErrDecryption = errors.New("cipher: message authentication failed")

var randomSource = rand.Reader

// SetRandSource replaces the nonce source. Intended for tests.
func SetRandSource(r io.Reader) {
	randomSource = r
}

// Local is a Provider that derives every key from a single root key with
// HKDF-SHA256. Values are sealed with AES-256-GCM and blind tokens are
// HMAC-SHA256 tags.
type Local struct {
	root []byte
}

var _ Provider = (*Local)(nil)

// NewLocal returns a Local provider for a 32-byte root key.
func NewLocal(rootKey []byte) (*Local, error) {
	if len(rootKey) != RootKeySize {
		return nil, errors.Errorf("cipher: root key must be %d bytes, got %d", RootKeySize, len(rootKey))
	}
	root := make([]byte, RootKeySize)
	copy(root, rootKey)
	return &Local{root: root}, nil
}

// NewLocalFromHex parses a hex-encoded root key.
func NewLocalFromHex(s string) (*Local, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "cipher: decoding root key")
	}
	return NewLocal(key)
}

// GenerateKey returns a fresh random root key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, RootKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(err, "cipher: generating root key")
	}
	return key, nil
}

func (l *Local) derive(info []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, l.root, nil, info), key); err != nil {
		return nil, errors.Wrap(err, "cipher: deriving key")
	}
	return key, nil
}

func (l *Local) aead(kc KeyContext) (gocipher.AEAD, []byte, error) {
	info := kc.Info()
	key, err := l.derive(info)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cipher: creating block")
	}
	gcm, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cipher: creating gcm")
	}
	return gcm, info, nil
}

// Encrypt implements Provider. The output is nonce || sealed box.
func (l *Local) Encrypt(ctx context.Context, plaintext []byte, kc KeyContext) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gcm, aad, err := l.aead(kc)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	if _, err := io.ReadFull(randomSource, nonce); err != nil {
		return nil, errors.Wrap(err, "cipher: reading nonce")
	}
	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

// Decrypt implements Provider.
func (l *Local) Decrypt(ctx context.Context, ciphertext []byte, kc KeyContext) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gcm, aad, err := l.aead(kc)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrDecryption
	}
	nonce, box := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, box, aad)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// Blind implements Provider.
func (l *Local) Blind(ctx context.Context, plaintext []byte, bc BlindContext) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := l.derive(bc.Info())
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(plaintext)
	return mac.Sum(nil), nil
}
