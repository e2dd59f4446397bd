package crypto

import "errors"

var (
	// ErrInvalidKeySize is returned when a decoded key is not KeySize bytes.
	ErrInvalidKeySize = errors.New("crypto: invalid key size")

	// ErrInvalidNonceSize is returned when a decoded nonce base is not
	// NonceBaseSize bytes.
	ErrInvalidNonceSize = errors.New("crypto: invalid nonce size")

	// ErrAuthenticationFailed is returned by Open when the GCM tag does not
	// verify, or by DecryptChunk for the same reason. It never distinguishes
	// a corrupted ciphertext from a tampered one.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")

	// ErrCounterOverflow is returned by EncryptChunk for chunk index
	// 1<<32-1, the top of the 32-bit counter field; every lower index is
	// accepted.
	ErrCounterOverflow = errors.New("crypto: chunk counter overflow")

	// ErrShortCiphertext is returned when a sealed chunk is too short to
	// contain even the GCM tag.
	ErrShortCiphertext = errors.New("crypto: ciphertext too short")

	// ErrFrameTooLarge is returned by ReadFrame for a declared frame length
	// exceeding the largest legal sealed chunk.
	ErrFrameTooLarge = errors.New("crypto: frame exceeds maximum size")
)
