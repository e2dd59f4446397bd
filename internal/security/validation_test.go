package security

import (
	"errors"
	"testing"
)

func TestValidatePathAcceptsOrdinaryRelativePaths(t *testing.T) {
	cases := []string{"a.txt", "dir/a.txt", "./a.txt", "a/./b.txt"}
	for _, c := range cases {
		if err := ValidatePath(c); err != nil {
			t.Errorf("ValidatePath(%q) = %v, want nil", c, err)
		}
	}
}

func TestValidatePathRejectsTraversal(t *testing.T) {
	cases := map[string]error{
		"":              ErrEmpty,
		"../etc/passwd": ErrParentDir,
		"a/../../b":     ErrParentDir,
		"/etc/passwd":   ErrAbsolutePath,
		"a\x00b":        ErrNullByte,
	}
	for input, wantErr := range cases {
		err := ValidatePath(input)
		if err == nil {
			t.Errorf("ValidatePath(%q) = nil, want error", input)
			continue
		}
		if !errors.Is(err, wantErr) {
			t.Errorf("ValidatePath(%q) = %v, want wrapping %v", input, err, wantErr)
		}
	}
}

func TestValidateFilenameRejectsSeparators(t *testing.T) {
	for _, name := range []string{"a/b", `a\b`, "..", "", "a\x00"} {
		if err := ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q) = nil, want error", name)
		}
	}
}

func TestValidateFilenameAcceptsOrdinaryNames(t *testing.T) {
	for _, name := range []string{"a.txt", "archive.tar.gz", "."} {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v, want nil", name, err)
		}
	}
}

func TestHashPathIsStableAndShort(t *testing.T) {
	h1 := HashPath("dir/a.txt")
	h2 := HashPath("dir/a.txt")
	if h1 != h2 {
		t.Fatalf("HashPath not stable: %q != %q", h1, h2)
	}
	if len(h1) != 16 {
		t.Fatalf("HashPath length = %d, want 16", len(h1))
	}
	if HashPath("dir/b.txt") == h1 {
		t.Fatalf("HashPath collided for distinct inputs")
	}
}
