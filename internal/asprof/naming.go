package asprof

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coral-mesh/coral-asprof/internal/platform"
)

const (
	// LibraryPrefix is the base name of every shipped profiler library.
	LibraryPrefix = "libasyncProfiler"
	// LibraryExt is the extension used for every platform, macOS included.
	LibraryExt = ".so"
	// ChecksumExt is appended to a library resource name to find its digest.
	ChecksumExt = ".sha1"

	muslMarker = "musl-"
)

// Naming formats resource and staged file names.
type Naming struct {
	Prefix string
	Ext    string
}

// DefaultNaming matches the files in the embedded binaries directory.
var DefaultNaming = Naming{Prefix: LibraryPrefix, Ext: LibraryExt}

// ResourceName returns the embedded resource name for id, e.g.
// "libasyncProfiler-linux-x64.so" or "libasyncProfiler-linux-musl-x86.so".
func (n Naming) ResourceName(id platform.BinaryIdentifier) string {
	marker := ""
	if id.IsMusl() {
		marker = muslMarker
	}
	return fmt.Sprintf("%s-%s-%s%s%s", n.Prefix, id.OS, marker, id.Arch, n.Ext)
}

// ChecksumName returns the companion digest resource for a library resource.
func ChecksumName(resource string) string {
	return resource + ChecksumExt
}

// StagedFileName inserts checksum between the base name and the extension:
// "libfoo-linux-x64.so" + "abc123" -> "libfoo-linux-x64-abc123.so".
func StagedFileName(resource, checksum string) (string, error) {
	ext := filepath.Ext(resource)
	if ext == "" || ext == resource {
		return "", fmt.Errorf("incorrect library file name: %q", resource)
	}
	if checksum == "" {
		return "", fmt.Errorf("empty checksum for %q", resource)
	}
	return strings.TrimSuffix(resource, ext) + "-" + checksum + ext, nil
}
