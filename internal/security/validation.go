// Package security implements the path and filename checks that stand
// between a multipart upload field and the filesystem.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrEmpty is returned for an empty path or filename.
	ErrEmpty = errors.New("security: path is empty")
	// ErrNullByte is returned when a path or filename contains a NUL byte.
	ErrNullByte = errors.New("security: path contains a null byte")
	// ErrAbsolutePath is returned for a path that starts at the filesystem
	// root.
	ErrAbsolutePath = errors.New("security: path is absolute")
	// ErrParentDir is returned when a path contains a ".." component.
	ErrParentDir = errors.New("security: path contains a parent-directory component")
	// ErrInvalidComponent is returned for any other disallowed path shape
	// (e.g. a bare drive/prefix component).
	ErrInvalidComponent = errors.New("security: path contains an invalid component")
)

// HashPath returns a stable 64-bit identifier for relativePath: the first 16
// lowercase hex characters of its SHA-256 digest. It is used as a
// directory-free key in the registry, not as a security boundary.
func HashPath(relativePath string) string {
	sum := sha256.Sum256([]byte(relativePath))
	return hex.EncodeToString(sum[:])[:16]
}

// ValidatePath rejects anything that could let a relative path escape the
// destination directory: empty paths, NUL bytes, absolute paths, and any
// ".." component. A "." component is permitted as a no-op.
func ValidatePath(relativePath string) error {
	if relativePath == "" {
		return ErrEmpty
	}
	if strings.ContainsRune(relativePath, 0) {
		return ErrNullByte
	}
	if path.IsAbs(relativePath) || strings.HasPrefix(relativePath, "/") || strings.HasPrefix(relativePath, `\`) {
		return ErrAbsolutePath
	}

	cleaned := strings.ReplaceAll(relativePath, `\`, "/")
	for _, part := range strings.Split(cleaned, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return ErrParentDir
		}
		if strings.Contains(part, ":") {
			return ErrInvalidComponent
		}
	}
	return nil
}

// ValidateFilename applies the same rules as ValidatePath to a single path
// component: a filename must not itself smuggle a traversal or separator.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrEmpty
	}
	if strings.ContainsRune(name, 0) {
		return ErrNullByte
	}
	if name == ".." {
		return ErrParentDir
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidComponent, name)
	}
	return nil
}
