package session

import (
	"hash/fnv"
	"sync"

	"github.com/archdrop/archdrop/internal/crypto"
	"github.com/archdrop/archdrop/internal/storage"
)

// bucketCount is the number of independent lock-striped buckets backing a
// Registry. Sized for a few dozen concurrently-open files per transfer, far
// more than any single transfer is expected to need.
const bucketCount = 16

// FileReceiveState tracks one file's in-progress upload: its chunk storage,
// the nonce base declared with the file's first-arriving chunk, and the
// total chunk count the client announced for it. All fields are set once at
// creation and never mutated, so concurrent chunk handlers read them
// without a lock; per-file write serialization lives inside ChunkStorage.
type FileReceiveState struct {
	Storage      *storage.ChunkStorage
	RelativePath string
	FileSize     uint64
	TotalChunks  uint64
	NonceBase    crypto.NonceBase
}

type bucket struct {
	mu    sync.RWMutex
	files map[string]*FileReceiveState
}

// Registry is a lock-striped concurrent map from a receive-side file
// identifier (the hash of the file's relative path) to its
// FileReceiveState; send sessions do not use it. Striping across independent buckets means two unrelated
// files never contend on the same mutex, generalizing the single-mutex map
// a smaller transfer tool could get away with.
type Registry struct {
	buckets [bucketCount]*bucket
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.buckets {
		r.buckets[i] = &bucket{files: make(map[string]*FileReceiveState)}
	}
	return r
}

func (r *Registry) bucketFor(key string) *bucket {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return r.buckets[h.Sum32()%bucketCount]
}

// Get returns the state for key, if present.
func (r *Registry) Get(key string) (*FileReceiveState, bool) {
	b := r.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.files[key]
	return st, ok
}

// GetOrCreate returns the existing state for key, or atomically creates one
// via create and inserts it. create is only invoked when no entry exists
// yet, and is called while holding the bucket's write lock so two
// concurrent first-chunk requests for the same file never both create
// storage.
func (r *Registry) GetOrCreate(key string, create func() (*FileReceiveState, error)) (*FileReceiveState, bool, error) {
	b := r.bucketFor(key)

	b.mu.RLock()
	if st, ok := b.files[key]; ok {
		b.mu.RUnlock()
		return st, false, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.files[key]; ok {
		return st, false, nil
	}
	st, err := create()
	if err != nil {
		return nil, false, err
	}
	b.files[key] = st
	return st, true, nil
}

// Remove deletes and returns the entry for key, if present. Used by
// finalize, which takes exclusive ownership of the FileReceiveState out of
// the registry before verifying and finalizing its storage.
func (r *Registry) Remove(key string) (*FileReceiveState, bool) {
	b := r.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.files[key]
	if ok {
		delete(b.files, key)
	}
	return st, ok
}

// Len returns the total number of tracked files across all buckets, used by
// the shutdown coordinator's drain loop to sample the active transfer count.
func (r *Registry) Len() int {
	total := 0
	for _, b := range r.buckets {
		b.mu.RLock()
		total += len(b.files)
		b.mu.RUnlock()
	}
	return total
}

// Each calls fn for every currently-tracked state, used by shutdown cleanup
// to abort any still-partial file. fn is called without the bucket lock
// held, so it may itself call back into the registry.
func (r *Registry) Each(fn func(key string, st *FileReceiveState)) {
	for _, b := range r.buckets {
		b.mu.RLock()
		snapshot := make(map[string]*FileReceiveState, len(b.files))
		for k, v := range b.files {
			snapshot[k] = v
		}
		b.mu.RUnlock()
		for k, v := range snapshot {
			fn(k, v)
		}
	}
}
