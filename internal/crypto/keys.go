// Package crypto implements the per-chunk authenticated encryption scheme
// used to move file bytes between sender and receiver: a random session key
// and nonce base, combined with an explicit per-chunk counter, feed
// AES-256-GCM so that chunks can be encrypted and decrypted out of order.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeySize is the length in bytes of an AES-256 key.
const KeySize = 32

// NonceBaseSize is the length in bytes of the random nonce base. Combined
// with a 4-byte big-endian counter and a 1-byte trailing flag, it forms the
// 12-byte AES-GCM nonce (see DeriveNonce).
const NonceBaseSize = 7

// Key is a 32-byte AES-256-GCM key, generated once per session and never
// reused across sessions.
type Key [KeySize]byte

// NewKey returns a fresh random key.
func NewKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

// Base64 encodes the key as URL-safe base64 without padding, suitable for the
// URL fragment.
func (k Key) Base64() string {
	return base64.RawURLEncoding.EncodeToString(k[:])
}

// KeyFromBase64 decodes a key previously produced by Key.Base64. It fails if
// the decoded length is not exactly KeySize bytes.
func KeyFromBase64(s string) (Key, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("decode key: %w", err)
	}
	if len(b) != KeySize {
		return Key{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(b), KeySize)
	}
	var k Key
	copy(k[:], b)
	return k, nil
}

// NonceBase is the 7-byte random prefix shared by every chunk of one file (or
// by the session, for the URL-only "session nonce"). It is never itself used
// as an AEAD nonce; DeriveNonce combines it with a counter first.
type NonceBase [NonceBaseSize]byte

// NewNonceBase returns a fresh random nonce base.
func NewNonceBase() (NonceBase, error) {
	var n NonceBase
	if _, err := rand.Read(n[:]); err != nil {
		return NonceBase{}, fmt.Errorf("generate nonce base: %w", err)
	}
	return n, nil
}

// Base64 encodes the nonce base as URL-safe base64 without padding.
func (n NonceBase) Base64() string {
	return base64.RawURLEncoding.EncodeToString(n[:])
}

// NonceBaseFromBase64 decodes a nonce base previously produced by
// NonceBase.Base64. It fails if the decoded length is not exactly
// NonceBaseSize bytes.
func NonceBaseFromBase64(s string) (NonceBase, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return NonceBase{}, fmt.Errorf("decode nonce base: %w", err)
	}
	if len(b) != NonceBaseSize {
		return NonceBase{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonceSize, len(b), NonceBaseSize)
	}
	var n NonceBase
	copy(n[:], b)
	return n, nil
}
