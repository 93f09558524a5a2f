package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// osNames maps raw OS names to the OS values we ship binaries for.
var osNames = map[string]OS{
	"linux":    OSLinux,
	"darwin":   OSMacOS,
	"macos":    OSMacOS,
	"mac os x": OSMacOS,
}

// linuxArches maps uname machine names and GOARCH values to Linux builds.
var linuxArches = map[string]Arch{
	"x86":     ArchX86,
	"386":     ArchX86,
	"i386":    ArchX86,
	"i486":    ArchX86,
	"i586":    ArchX86,
	"i686":    ArchX86,
	"x86_64":  ArchX64,
	"amd64":   ArchX64,
	"arm":     ArchARM,
	"armv6l":  ArchARM,
	"armv7":   ArchARM,
	"armv7l":  ArchARM,
	"aarch64": ArchAArch64,
	"arm64":   ArchAArch64,
}

// ResolverConfig configures a Resolver. Zero fields get defaults.
type ResolverConfig struct {
	Host         Host
	Probe        LibcProbe
	ProbeTimeout time.Duration
}

// Resolver turns host information into a BinaryIdentifier.
type Resolver struct {
	host         Host
	probe        LibcProbe
	probeTimeout time.Duration
	logger       zerolog.Logger
}

// NewResolver creates a new platform resolver.
func NewResolver(logger zerolog.Logger, cfg ResolverConfig) *Resolver {
	if cfg.Host == nil {
		cfg.Host = SystemHost{}
	}
	if cfg.Probe == nil {
		cfg.Probe = UnameProbe{}
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}

	return &Resolver{
		host:         cfg.Host,
		probe:        cfg.Probe,
		probeTimeout: cfg.ProbeTimeout,
		logger:       logger.With().Str("component", "platform_resolver").Logger(),
	}
}

// Resolve detects the host platform. It fails with ErrUnsupportedPlatform when
// no prebuilt binary matches.
func (r *Resolver) Resolve(ctx context.Context) (BinaryIdentifier, error) {
	info, err := r.host.Info(ctx)
	if err != nil {
		return BinaryIdentifier{}, fmt.Errorf("failed to read host info: %w", err)
	}

	r.logger.Debug().
		Str("raw_os", info.OS).
		Str("raw_arch", info.Arch).
		Msg("Host detected")

	hostOS, ok := osNames[strings.ToLower(strings.TrimSpace(info.OS))]
	if !ok {
		return BinaryIdentifier{}, fmt.Errorf("%w: os %q", ErrUnsupportedPlatform, info.OS)
	}

	rawArch := strings.ToLower(strings.TrimSpace(info.Arch))

	var id BinaryIdentifier
	switch hostOS {
	case OSLinux:
		arch, ok := linuxArches[rawArch]
		if !ok {
			return BinaryIdentifier{}, fmt.Errorf("%w: architecture %q on %s", ErrUnsupportedPlatform, info.Arch, hostOS)
		}
		libc := LibcGlibc
		if arch == ArchX86 {
			libc = DetectLibc(ctx, r.probe, r.probeTimeout, r.logger)
		}
		id, err = NewBinaryIdentifier(hostOS, arch, libc)

	case OSMacOS:
		// Only Intel macOS binaries are shipped.
		if rawArch != "x86_64" && rawArch != "amd64" {
			return BinaryIdentifier{}, fmt.Errorf("%w: architecture %q on %s", ErrUnsupportedPlatform, info.Arch, hostOS)
		}
		id, err = NewBinaryIdentifier(hostOS, ArchX64, LibcNone)
	}
	if err != nil {
		return BinaryIdentifier{}, err
	}

	r.logger.Info().Str("binary", id.String()).Msg("Platform resolved")

	return id, nil
}
