package asprof

import (
	"crypto/sha1" //nolint:gosec // G505: digest format is fixed by the .sha1 companion files
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/coral-asprof/internal/constants"
	"github.com/coral-mesh/coral-asprof/internal/platform"
	"github.com/coral-mesh/coral-asprof/internal/safe"
)

var (
	// ErrResourceMissing means the library or its checksum companion is not embedded.
	ErrResourceMissing = errors.New("profiler resource missing")
	// ErrIntegrityUnavailable means the checksum companion could not be read or parsed.
	ErrIntegrityUnavailable = errors.New("profiler checksum unavailable")
	// ErrIntegrityMismatch means the library content does not match its checksum.
	ErrIntegrityMismatch = errors.New("profiler checksum mismatch")
	// ErrIOFailure wraps filesystem errors raised while staging.
	ErrIOFailure = errors.New("profiler staging I/O failure")
)

// maxChecksumSize caps how much of a companion file is read.
const maxChecksumSize = 4 << 10

// StagedLibrary is a profiler library written to local disk.
type StagedLibrary struct {
	ResourceName string
	Checksum     string
	Path         string
}

// StagerConfig configures a Stager. Zero fields get defaults.
type StagerConfig struct {
	// Resources holds the libraries and their .sha1 companions.
	Resources fs.FS
	Naming    Naming
	// TempDir is the staging root. Empty means os.TempDir().
	TempDir string
	// UserName namespaces the staging directory. Empty means the current user.
	UserName string
	// Namespace is appended to the user name to form the directory name.
	Namespace string
	// Verify checks the library content against its checksum before staging.
	Verify bool
}

// Stager copies embedded profiler libraries to a checksum-addressed path.
type Stager struct {
	resources fs.FS
	naming    Naming
	dir       string
	verify    bool
	logger    zerolog.Logger
}

// NewStager creates a new library stager.
func NewStager(logger zerolog.Logger, cfg StagerConfig) *Stager {
	if cfg.Resources == nil {
		cfg.Resources = Binaries()
	}
	if cfg.Naming == (Naming{}) {
		cfg.Naming = DefaultNaming
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.UserName == "" {
		cfg.UserName = currentUserName()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = constants.DefaultStagingNamespace
	}

	return &Stager{
		resources: cfg.Resources,
		naming:    cfg.Naming,
		dir:       filepath.Join(cfg.TempDir, sanitizePathElement(cfg.UserName)+"-"+cfg.Namespace),
		verify:    cfg.Verify,
		logger:    logger.With().Str("component", "library_stager").Logger(),
	}
}

// Dir returns the per-user staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage writes the library for id to the staging directory and returns its
// location. Staging the same content twice yields the same path.
func (s *Stager) Stage(id platform.BinaryIdentifier) (*StagedLibrary, error) {
	resource := s.naming.ResourceName(id)

	s.logger.Info().
		Str("binary", id.String()).
		Str("resource", resource).
		Msg("Staging profiler library")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging directory %s: %w", ErrIOFailure, s.dir, err)
	}

	checksum, err := s.readChecksum(resource)
	if err != nil {
		return nil, err
	}

	fileName, err := StagedFileName(resource, checksum)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceMissing, err)
	}

	payload, err := fs.ReadFile(s.resources, resource)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceMissing, resource)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, resource, err)
	}

	if s.verify {
		sum := sha1.Sum(payload) //nolint:gosec // G401: see import
		if got := hex.EncodeToString(sum[:]); got != checksum {
			return nil, fmt.Errorf("%w: %s: expected %s, got %s", ErrIntegrityMismatch, resource, checksum, got)
		}
	}

	target, err := filepath.Abs(filepath.Join(s.dir, fileName))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrIOFailure, fileName, err)
	}

	// The path encodes the content, so overwriting is always safe.
	//nolint:gosec // G306: shared library must be loadable
	if err := safe.WriteFileAtomic(target, payload, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	s.logger.Info().
		Str("path", target).
		Str("checksum", checksum).
		Int("size", len(payload)).
		Msg("Profiler library staged")

	return &StagedLibrary{
		ResourceName: resource,
		Checksum:     checksum,
		Path:         target,
	}, nil
}

// readChecksum loads the companion digest. It accepts both a bare digest and
// sha1sum output ("<digest>  <file>").
func (s *Stager) readChecksum(resource string) (string, error) {
	name := ChecksumName(resource)

	f, err := s.resources.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrResourceMissing, name)
		}
		return "", fmt.Errorf("%w: open %s: %w", ErrIntegrityUnavailable, name, err)
	}
	defer safe.Close(f, s.logger, "failed to close checksum resource")

	data, err := io.ReadAll(io.LimitReader(f, maxChecksumSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrIntegrityUnavailable, name, err)
	}
	if len(data) > maxChecksumSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrIntegrityUnavailable, name, maxChecksumSize)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrIntegrityUnavailable, name)
	}

	checksum := strings.ToLower(fields[0])
	if _, err := hex.DecodeString(checksum); err != nil {
		return "", fmt.Errorf("%w: %s is not a hex digest", ErrIntegrityUnavailable, name)
	}

	return checksum, nil
}

// currentUserName returns the login name of the running user.
func currentUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, env := range []string{"USER", "USERNAME", "LOGNAME"} {
		if name := os.Getenv(env); name != "" {
			return name
		}
	}
	return fmt.Sprintf("uid%d", os.Getuid())
}

// sanitizePathElement keeps domain-qualified user names ("CORP\\alice") in one
// path element.
func sanitizePathElement(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}
