// Package platform detects the host operating system, CPU architecture and libc
// flavour, and maps them onto the prebuilt async-profiler binary that can run there.
package platform

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnsupportedPlatform is returned when no prebuilt binary exists for the host.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// OS is an operating system with a prebuilt profiler binary.
type OS string

const (
	OSLinux OS = "linux"
	OSMacOS OS = "macos"
)

// Arch is a CPU architecture with a prebuilt profiler binary.
type Arch string

const (
	ArchX86     Arch = "x86"
	ArchX64     Arch = "x64"
	ArchARM     Arch = "arm"
	ArchAArch64 Arch = "aarch64"
)

// Libc identifies the C library a Linux binary was linked against.
type Libc string

const (
	LibcGlibc Libc = "glibc"
	LibcMusl  Libc = "musl"
	LibcNone  Libc = "none"
)

// BinaryIdentifier names exactly one prebuilt profiler binary.
type BinaryIdentifier struct {
	OS   OS
	Arch Arch
	Libc Libc
}

// String returns the identifier in os/arch/libc form, e.g. "linux/x64/glibc".
func (id BinaryIdentifier) String() string {
	return fmt.Sprintf("%s/%s/%s", id.OS, id.Arch, id.Libc)
}

// IsMusl reports whether the identifier selects the musl build.
func (id BinaryIdentifier) IsMusl() bool {
	return id.Libc == LibcMusl
}

// supported is the fixed matrix of (os, arch) pairs we ship binaries for.
var supported = map[OS][]Arch{
	OSLinux: {ArchX86, ArchX64, ArchARM, ArchAArch64},
	OSMacOS: {ArchX64},
}

// Supported returns every identifier the resolver can produce, including the
// musl variant for linux/x86.
func Supported() []BinaryIdentifier {
	ids := make([]BinaryIdentifier, 0, 6)
	for _, hostOS := range []OS{OSLinux, OSMacOS} {
		for _, arch := range supported[hostOS] {
			id, err := NewBinaryIdentifier(hostOS, arch, defaultLibc(hostOS))
			if err != nil {
				continue
			}
			ids = append(ids, id)
			if hostOS == OSLinux && arch == ArchX86 {
				ids = append(ids, BinaryIdentifier{OS: hostOS, Arch: arch, Libc: LibcMusl})
			}
		}
	}
	return ids
}

// NewBinaryIdentifier validates an (os, arch, libc) triple against the supported matrix.
func NewBinaryIdentifier(hostOS OS, arch Arch, libc Libc) (BinaryIdentifier, error) {
	arches, ok := supported[hostOS]
	if !ok {
		return BinaryIdentifier{}, fmt.Errorf("%w: os %q", ErrUnsupportedPlatform, hostOS)
	}

	if !slices.Contains(arches, arch) {
		return BinaryIdentifier{}, fmt.Errorf("%w: architecture %q on %s", ErrUnsupportedPlatform, arch, hostOS)
	}

	switch {
	case hostOS == OSMacOS && libc != LibcNone:
		return BinaryIdentifier{}, fmt.Errorf("%w: libc %q on %s", ErrUnsupportedPlatform, libc, hostOS)
	case hostOS == OSLinux && libc == LibcMusl && arch != ArchX86:
		// Only the 32-bit x86 build ships a musl variant.
		return BinaryIdentifier{}, fmt.Errorf("%w: musl build for %s", ErrUnsupportedPlatform, arch)
	case hostOS == OSLinux && libc != LibcGlibc && libc != LibcMusl:
		return BinaryIdentifier{}, fmt.Errorf("%w: libc %q on %s", ErrUnsupportedPlatform, libc, hostOS)
	}

	return BinaryIdentifier{OS: hostOS, Arch: arch, Libc: libc}, nil
}

func defaultLibc(hostOS OS) Libc {
	if hostOS == OSLinux {
		return LibcGlibc
	}
	return LibcNone
}
