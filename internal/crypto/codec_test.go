package crypto

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/archdrop/archdrop/internal/config"
)

func mustAEAD(t *testing.T) (*AEAD, Key) {
	t.Helper()
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	aead, err := NewAEAD(key)
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	return aead, key
}

func TestEncryptDecryptChunkRoundTrip(t *testing.T) {
	aead, _ := mustAEAD(t)
	base, err := NewNonceBase()
	if err != nil {
		t.Fatalf("NewNonceBase: %v", err)
	}

	plaintext := []byte("hello, archdrop")
	ct, err := EncryptChunk(aead, base, 3, plaintext)
	if err != nil {
		t.Fatalf("EncryptChunk: %v", err)
	}
	if bytes.Equal(ct, plaintext) {
		t.Fatalf("ciphertext must not equal plaintext")
	}

	pt, err := DecryptChunk(aead, base, 3, ct)
	if err != nil {
		t.Fatalf("DecryptChunk: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", pt, plaintext)
	}
}

func TestDecryptChunkWrongIndexFails(t *testing.T) {
	aead, _ := mustAEAD(t)
	base, _ := NewNonceBase()

	ct, err := EncryptChunk(aead, base, 0, []byte("chunk zero"))
	if err != nil {
		t.Fatalf("EncryptChunk: %v", err)
	}
	if _, err := DecryptChunk(aead, base, 1, ct); err == nil {
		t.Fatalf("expected authentication failure decrypting with wrong counter")
	}
}

func TestDecryptChunkWrongKeyFails(t *testing.T) {
	aead1, _ := mustAEAD(t)
	aead2, _ := mustAEAD(t)
	base, _ := NewNonceBase()

	ct, err := EncryptChunk(aead1, base, 0, []byte("chunk zero"))
	if err != nil {
		t.Fatalf("EncryptChunk: %v", err)
	}
	if _, err := DecryptChunk(aead2, base, 0, ct); err == nil {
		t.Fatalf("expected authentication failure decrypting with wrong key")
	}
}

func TestOutOfOrderChunksAreIndependent(t *testing.T) {
	aead, _ := mustAEAD(t)
	base, _ := NewNonceBase()

	plains := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	cts := make([][]byte, len(plains))
	for i, p := range plains {
		ct, err := EncryptChunk(aead, base, uint32(i), p)
		if err != nil {
			t.Fatalf("EncryptChunk(%d): %v", i, err)
		}
		cts[i] = ct
	}

	order := []int{2, 0, 1}
	for _, i := range order {
		pt, err := DecryptChunk(aead, base, uint32(i), cts[i])
		if err != nil {
			t.Fatalf("DecryptChunk(%d) out of order: %v", i, err)
		}
		if !bytes.Equal(pt, plains[i]) {
			t.Fatalf("chunk %d mismatch: got %q want %q", i, pt, plains[i])
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("framed ciphertext body")
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("frame round trip mismatch: got %q want %q", got, payload)
	}
}

func TestReadFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(config.MaxFrameSize)+1)
	buf.Write(lenBuf[:])
	if _, err := ReadFrame(&buf); err != ErrFrameTooLarge {
		t.Fatalf("ReadFrame oversize = %v, want ErrFrameTooLarge", err)
	}
}

func TestKeyBase64RoundTrip(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	enc := key.Base64()
	got, err := KeyFromBase64(enc)
	if err != nil {
		t.Fatalf("KeyFromBase64: %v", err)
	}
	if got != key {
		t.Fatalf("key round trip mismatch")
	}
}

func TestKeyFromBase64RejectsWrongLength(t *testing.T) {
	if _, err := KeyFromBase64("dG9vc2hvcnQ"); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestNonceBaseBase64RoundTrip(t *testing.T) {
	base, err := NewNonceBase()
	if err != nil {
		t.Fatalf("NewNonceBase: %v", err)
	}
	got, err := NonceBaseFromBase64(base.Base64())
	if err != nil {
		t.Fatalf("NonceBaseFromBase64: %v", err)
	}
	if got != base {
		t.Fatalf("nonce base round trip mismatch")
	}
}
