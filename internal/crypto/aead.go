package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AEAD wraps an AES-256-GCM cipher bound to a single session key. It is safe
// for concurrent use: cipher.AEAD implementations from crypto/aes are
// stateless across calls.
type AEAD struct {
	gcm cipher.AEAD
}

// NewAEAD builds an AEAD from a session key.
func NewAEAD(key Key) (*AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &AEAD{gcm: gcm}, nil
}

// Overhead is the number of bytes GCM appends for its authentication tag.
func (a *AEAD) Overhead() int {
	return a.gcm.Overhead()
}

// NonceSize is the number of bytes GCM expects as a nonce.
func (a *AEAD) NonceSize() int {
	return a.gcm.NonceSize()
}

// Seal encrypts plaintext under nonce, appending the GCM tag. dst, if
// non-nil, is the buffer the ciphertext is appended to.
func (a *AEAD) Seal(dst, nonce, plaintext, aad []byte) []byte {
	return a.gcm.Seal(dst, nonce, plaintext, aad)
}

// Open decrypts and authenticates ciphertext sealed under nonce. It returns
// ErrAuthenticationFailed (not the underlying crypto/cipher error) on any tag
// mismatch, so callers never have to inspect the specific failure mode.
func (a *AEAD) Open(dst, nonce, ciphertext, aad []byte) ([]byte, error) {
	pt, err := a.gcm.Open(dst, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return pt, nil
}
