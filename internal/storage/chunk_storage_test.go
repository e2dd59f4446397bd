package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/archdrop/archdrop/internal/config"
	archdropcrypto "github.com/archdrop/archdrop/internal/crypto"
)

func newTestAEAD(t *testing.T) (*archdropcrypto.AEAD, archdropcrypto.NonceBase) {
	t.Helper()
	key, err := archdropcrypto.NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	aead, err := archdropcrypto.NewAEAD(key)
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	base, err := archdropcrypto.NewNonceBase()
	if err != nil {
		t.Fatalf("NewNonceBase: %v", err)
	}
	return aead, base
}

func TestStoreChunkOutOfOrderAssemblesCorrectly(t *testing.T) {
	aead, base := newTestAEAD(t)
	dest := filepath.Join(t.TempDir(), "out.bin")

	cs, err := Open(dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	chunkSize := int(config.ChunkSize)
	plains := [][]byte{
		make([]byte, chunkSize),
		make([]byte, chunkSize),
		make([]byte, chunkSize/2),
	}
	for i := range plains {
		for j := range plains[i] {
			plains[i][j] = byte(i + 1)
		}
	}

	order := []int{2, 0, 1}
	for _, i := range order {
		ct, err := archdropcrypto.EncryptChunk(aead, base, uint32(i), plains[i])
		if err != nil {
			t.Fatalf("EncryptChunk(%d): %v", i, err)
		}
		if err := cs.StoreChunk(aead, base, uint64(i), ct); err != nil {
			t.Fatalf("StoreChunk(%d): %v", i, err)
		}
	}

	if got, want := cs.ChunkCount(), 3; got != want {
		t.Fatalf("ChunkCount() = %d, want %d", got, want)
	}

	hash, err := cs.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := sha256.New()
	want.Write(plains[0])
	want.Write(plains[1])
	want.Write(plains[2])
	if hash != hex.EncodeToString(want.Sum(nil)) {
		t.Fatalf("Finalize hash mismatch: got %s", hash)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat dest: %v", err)
	}
	if got, want := info.Size(), int64(2*chunkSize+chunkSize/2); got != want {
		t.Fatalf("dest size = %d, want %d", got, want)
	}
}

func TestHasChunkDetectsDuplicates(t *testing.T) {
	aead, base := newTestAEAD(t)
	dest := filepath.Join(t.TempDir(), "out.bin")

	cs, err := Open(dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cs.Abort()

	ct, err := archdropcrypto.EncryptChunk(aead, base, 0, []byte("hello"))
	if err != nil {
		t.Fatalf("EncryptChunk: %v", err)
	}
	if cs.HasChunk(0) {
		t.Fatalf("HasChunk(0) = true before any write")
	}
	if err := cs.StoreChunk(aead, base, 0, ct); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if !cs.HasChunk(0) {
		t.Fatalf("HasChunk(0) = false after write")
	}
}

func TestAbortRemovesPartialFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "partial.bin")

	cs, err := Open(dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected file to exist before abort: %v", err)
	}

	cs.Abort()

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected file removed after Abort, stat err = %v", err)
	}
}

func TestAbortAfterFinalizeIsNoop(t *testing.T) {
	aead, base := newTestAEAD(t)
	dest := filepath.Join(t.TempDir(), "out.bin")

	cs, err := Open(dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ct, err := archdropcrypto.EncryptChunk(aead, base, 0, []byte("data"))
	if err != nil {
		t.Fatalf("EncryptChunk: %v", err)
	}
	if err := cs.StoreChunk(aead, base, 0, ct); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if _, err := cs.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	cs.Abort()

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected file to survive Abort after Finalize: %v", err)
	}
}
