// Package storage writes decrypted chunks directly to their final offset in
// the destination file, so chunks may arrive in any order, and streams a
// SHA-256 digest over the assembled file once every chunk has landed.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/archdrop/archdrop/internal/config"
	archdropcrypto "github.com/archdrop/archdrop/internal/crypto"
)

// ChunkStorage owns one destination file during a receive. Go has no
// destructors, so the cleanup-on-abandon behavior the design calls for is
// explicit: every code path that obtains a ChunkStorage must eventually call
// either Finalize (success) or Abort (failure/shutdown). A finalizer is
// registered as a backstop that logs loudly if neither was called before the
// ChunkStorage was garbage collected — a bug, not a normal cleanup path.
type ChunkStorage struct {
	mu             sync.Mutex
	file           *os.File
	path           string
	chunksReceived map[uint64]struct{}
	disarmed       bool
}

// Open creates destPath if it does not exist (an existing file is opened
// without truncation), creating parent directories as needed, and returns a
// ChunkStorage ready to accept chunks in any order.
func Open(destPath string) (*ChunkStorage, error) {
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create parent dir: %w", err)
		}
	}
	f, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", destPath, err)
	}
	cs := &ChunkStorage{
		file:           f,
		path:           destPath,
		chunksReceived: make(map[uint64]struct{}),
	}
	runtime.SetFinalizer(cs, func(cs *ChunkStorage) {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		if !cs.disarmed {
			fmt.Fprintf(os.Stderr, "storage: %s garbage collected without Finalize/Abort\n", cs.path)
		}
	})
	return cs, nil
}

// HasChunk reports whether chunkIndex has already been written, letting
// callers treat a repeated chunk as an idempotent no-op.
func (cs *ChunkStorage) HasChunk(chunkIndex uint64) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, ok := cs.chunksReceived[chunkIndex]
	return ok
}

// ChunkCount returns how many distinct chunk indices have been written.
func (cs *ChunkStorage) ChunkCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.chunksReceived)
}

// StoreChunk decrypts ciphertext at chunkIndex and writes the plaintext at
// its position-addressed offset, so a chunk arriving out of order never
// needs to wait for its predecessors.
func (cs *ChunkStorage) StoreChunk(aead *archdropcrypto.AEAD, base archdropcrypto.NonceBase, chunkIndex uint64, ciphertext []byte) error {
	plaintext, err := archdropcrypto.DecryptChunk(aead, base, uint32(chunkIndex), ciphertext)
	if err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	offset := int64(chunkIndex * config.ChunkSize)
	if _, err := cs.file.WriteAt(plaintext, offset); err != nil {
		return fmt.Errorf("storage: write chunk %d at offset %d: %w", chunkIndex, offset, err)
	}
	cs.chunksReceived[chunkIndex] = struct{}{}
	return nil
}

// Finalize streams a SHA-256 digest of the assembled file and disarms
// cleanup: after Finalize returns successfully, the file is kept regardless
// of what happens to the ChunkStorage value afterward. The hash is computed
// last, since chunks may have arrived out of order, so no partial hash is
// meaningful until every chunk has landed.
func (cs *ChunkStorage) Finalize() (string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.file.Sync(); err != nil {
		return "", fmt.Errorf("storage: sync: %w", err)
	}
	if _, err := cs.file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("storage: seek: %w", err)
	}

	hasher := sha256.New()
	buf := make([]byte, 16*1024)
	if _, err := io.CopyBuffer(hasher, cs.file, buf); err != nil {
		return "", fmt.Errorf("storage: hash: %w", err)
	}

	cs.disarmed = true
	if err := cs.file.Close(); err != nil {
		return "", fmt.Errorf("storage: close: %w", err)
	}
	runtime.SetFinalizer(cs, nil)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Abort closes the destination file and deletes it unless Finalize already
// disarmed cleanup. Every handler path that creates a ChunkStorage but does
// not reach Finalize (a validation failure, a chunk-count mismatch at
// finalize time, or shutdown sweeping the registry) must call Abort.
func (cs *ChunkStorage) Abort() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.disarmed {
		return
	}
	cs.disarmed = true
	_ = cs.file.Close()
	if err := os.Remove(cs.path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "storage: cleanup %s: %v\n", cs.path, err)
	}
	runtime.SetFinalizer(cs, nil)
}
