// Package manifest enumerates the files offered in a send session: their
// names, sizes, relative paths, and per-file encryption nonces.
package manifest

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/archdrop/archdrop/internal/config"
	archdropcrypto "github.com/archdrop/archdrop/internal/crypto"
	"github.com/archdrop/archdrop/internal/security"
)

// FileEntry describes one file offered for transfer. FullPath is never
// serialized: it is server-local and would leak the sender's filesystem
// layout to the receiver.
type FileEntry struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	FullPath     string `json:"-"`
	RelativePath string `json:"relative_path"`
	Size         uint64 `json:"size"`
	Nonce        string `json:"nonce"`

	nonceBase archdropcrypto.NonceBase
}

// NonceBase returns the decoded per-file nonce base, for callers that
// already hold the FileEntry built by Build (it caches the decoded form so
// handlers don't re-parse base64 on every chunk).
func (f FileEntry) NonceBase() archdropcrypto.NonceBase {
	return f.nonceBase
}

// Manifest is the ordered file list offered in one send session.
type Manifest struct {
	Files  []FileEntry `json:"files"`
	Digest string      `json:"manifest_digest"`
}

// Build constructs a Manifest from the given file paths, in the order
// supplied. When base is empty, the parent directory of the first path is
// used, matching how a user invoking `archdrop send a/b.txt a/c.txt` expects
// relative paths rooted at `a/`.
func Build(paths []string, base string) (Manifest, error) {
	if len(paths) == 0 {
		return Manifest{}, fmt.Errorf("manifest: no files given")
	}
	if base == "" {
		base = filepath.Dir(paths[0])
	}

	files := make([]FileEntry, 0, len(paths))
	for index, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest: stat %s: %w", path, err)
		}
		if info.IsDir() {
			return Manifest{}, fmt.Errorf("manifest: %s is a directory", path)
		}

		rel, err := filepath.Rel(base, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		name := filepath.Base(path)
		if err := security.ValidateFilename(name); err != nil {
			return Manifest{}, fmt.Errorf("manifest: %s: %w", path, err)
		}

		nonceBase, err := archdropcrypto.NewNonceBase()
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest: generate nonce: %w", err)
		}

		files = append(files, FileEntry{
			Index:        index,
			Name:         name,
			FullPath:     path,
			RelativePath: rel,
			Size:         uint64(info.Size()),
			Nonce:        nonceBase.Base64(),
			nonceBase:    nonceBase,
		})
	}

	m := Manifest{Files: files}
	m.Digest = digest(files)
	return m, nil
}

// TotalChunks returns the sum of ceil(size/ChunkSize) across every entry;
// an empty file contributes zero chunks.
func (m Manifest) TotalChunks() uint64 {
	var total uint64
	for _, f := range m.Files {
		if f.Size == 0 {
			continue
		}
		total += (f.Size + config.ChunkSize - 1) / config.ChunkSize
	}
	return total
}

// digest computes an advisory BLAKE3 manifest fingerprint: a hash over each
// file's relative path, size, and nonce, in manifest order. It lets a client
// notice a manifest was altered in transit but never substitutes for
// per-chunk or per-file authentication.
func digest(files []FileEntry) string {
	h := blake3.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%d\x00%s\x00", f.RelativePath, f.Size, f.Nonce)
	}
	return hex.EncodeToString(h.Sum(nil))
}
