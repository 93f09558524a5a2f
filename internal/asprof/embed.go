package asprof

import (
	"embed"
	"io/fs"
)

// binaries holds the prebuilt libraries and their .sha1 companions. They are
// populated by `go generate` before release builds; see binaries/README.md.
//
//go:generate ./scripts/fetch-binaries.sh binaries
//go:embed binaries
var binaries embed.FS

// Binaries returns the embedded library resources, rooted at the binaries directory.
func Binaries() fs.FS {
	sub, err := fs.Sub(binaries, "binaries")
	if err != nil {
		// fs.Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}
