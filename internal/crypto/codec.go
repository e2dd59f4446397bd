package crypto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/archdrop/archdrop/internal/config"
)

// NonceSize is the AES-GCM nonce length this codec always produces: a 7-byte
// random base, a 4-byte big-endian counter, and a trailing zero flag byte.
const NonceSize = NonceBaseSize + 4 + 1

// DeriveNonce composes the 12-byte AES-GCM nonce for chunk index counter from
// a per-file nonce base. The layout is fixed: base occupies bytes [0:7], the
// counter occupies bytes [7:11] big-endian, and byte 11 is always zero
// (reserved).
func DeriveNonce(base NonceBase, counter uint32) [NonceSize]byte {
	var nonce [NonceSize]byte
	copy(nonce[0:NonceBaseSize], base[:])
	binary.BigEndian.PutUint32(nonce[NonceBaseSize:NonceBaseSize+4], counter)
	nonce[NonceSize-1] = 0
	return nonce
}

// EncryptChunk seals one chunk's plaintext at the given index. The chunk
// index doubles as the AEAD nonce counter, which is what makes concurrent,
// out-of-order chunk delivery safe: two chunks from the same file never
// reuse a nonce, and a chunk's ciphertext is independent of every other
// chunk's.
func EncryptChunk(aead *AEAD, base NonceBase, index uint32, plaintext []byte) ([]byte, error) {
	if uint64(index) >= 1<<32-1 {
		return nil, ErrCounterOverflow
	}
	nonce := DeriveNonce(base, index)
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// DecryptChunk opens one chunk's ciphertext at the given index.
func DecryptChunk(aead *AEAD, base NonceBase, index uint32, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	nonce := DeriveNonce(base, index)
	return aead.Open(nil, nonce[:], ciphertext, nil)
}

// WriteFrame writes one length-prefixed ciphertext frame: a 4-byte
// big-endian length followed by the ciphertext itself. Frames are the wire
// form for stream deliveries, where the reader has no other way to know
// where one record ends; the per-chunk REST endpoints carry bare ciphertext
// bodies and never frame.
func WriteFrame(w io.Writer, ciphertext []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ciphertext)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(ciphertext); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed ciphertext frame written by
// WriteFrame. A declared length beyond the largest legal sealed chunk is
// rejected before any allocation.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if uint64(n) > config.MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return buf, nil
}

// SessionFragment is the key/nonce pair a session process embeds in the
// URL fragment it advertises (FragmentString gives the fragment form). A
// browser never sends the fragment to the server, so no handler parses one.
type SessionFragment struct {
	Key       string `json:"key"`
	NonceBase string `json:"nonce"`
}

// FragmentString renders the URL fragment form "key=...&nonce=...".
func (f SessionFragment) FragmentString() string {
	return "key=" + f.Key + "&nonce=" + f.NonceBase
}

// MarshalJSON is provided so SessionFragment can also travel inside
// diagnostic logs/tests without hand-building the query string.
func (f SessionFragment) MarshalJSON() ([]byte, error) {
	type alias SessionFragment
	return json.Marshal(alias(f))
}
