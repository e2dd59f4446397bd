package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/archdrop/archdrop/internal/config"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, size), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestBuildAssignsIndicesAndDistinctNonces(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.bin", 10)
	b := writeFile(t, dir, "b.bin", 20)

	m, err := Build([]string{a, b}, dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(m.Files))
	}
	for i, f := range m.Files {
		if f.Index != i {
			t.Errorf("file %d has index %d", i, f.Index)
		}
	}
	if m.Files[0].Nonce == m.Files[1].Nonce {
		t.Errorf("expected distinct per-file nonces")
	}
	if m.Digest == "" {
		t.Errorf("expected non-empty manifest digest")
	}
}

func TestTotalChunksCountsEmptyFilesAsZero(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.bin", int(config.ChunkSize)+1)
	b := writeFile(t, dir, "b.bin", 0)

	m, err := Build([]string{a, b}, dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := m.TotalChunks(), uint64(2); got != want {
		t.Fatalf("TotalChunks() = %d, want %d", got, want)
	}
}

func TestBuildRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Build([]string{dir}, dir); err == nil {
		t.Fatalf("expected error building manifest over a directory")
	}
}
