package asprof

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/coral-asprof/internal/platform"
)

// IdentifierResolver picks the binary for the running host.
type IdentifierResolver interface {
	Resolve(ctx context.Context) (platform.BinaryIdentifier, error)
}

// LibraryStager writes a binary to disk.
type LibraryStager interface {
	Stage(id platform.BinaryIdentifier) (*StagedLibrary, error)
}

// EngineLoader opens a staged library.
type EngineLoader func(path string) (Engine, error)

// LoadNative is the EngineLoader backed by the dynamic loader.
func LoadNative(path string) (Engine, error) {
	e, err := Load(path)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Deployer runs the resolve, stage and load pipeline at most once. Results,
// including failures, are cached for the lifetime of the Deployer.
type Deployer struct {
	resolver IdentifierResolver
	stager   LibraryStager
	loader   EngineLoader
	native   bool
	logger   zerolog.Logger

	deployOnce sync.Once
	id         platform.BinaryIdentifier
	staged     *StagedLibrary
	deployErr  error

	loadOnce sync.Once
	engine   Engine
	loadErr  error
}

// NewDeployer creates a new Deployer. A nil loader means LoadNative.
func NewDeployer(logger zerolog.Logger, resolver IdentifierResolver, stager LibraryStager, loader EngineLoader) *Deployer {
	native := loader == nil
	if native {
		loader = LoadNative
	}
	return &Deployer{
		resolver: resolver,
		stager:   stager,
		loader:   loader,
		native:   native,
		logger:   logger.With().Str("component", "library_deployer").Logger(),
	}
}

// Deploy resolves the host platform and stages the matching library.
func (d *Deployer) Deploy(ctx context.Context) (*StagedLibrary, error) {
	d.deployOnce.Do(func() {
		id, err := d.resolver.Resolve(ctx)
		if err != nil {
			d.deployErr = fmt.Errorf("failed to resolve platform: %w", err)
			return
		}
		d.id = id

		staged, err := d.stager.Stage(id)
		if err != nil {
			d.deployErr = fmt.Errorf("failed to stage profiler library: %w", err)
			return
		}
		d.staged = staged

		d.logger.Info().
			Str("binary", id.String()).
			Str("path", staged.Path).
			Msg("Profiler library deployed")
	})

	return d.staged, d.deployErr
}

// Identifier returns the resolved binary identifier. It is the zero value
// until Deploy has succeeded in resolving the platform.
func (d *Deployer) Identifier() platform.BinaryIdentifier {
	return d.id
}

// Engine deploys the library if needed and loads it. With the native loader,
// a staged library this build has no binding for fails here with
// ErrEngineUnavailable.
func (d *Deployer) Engine(ctx context.Context) (Engine, error) {
	staged, err := d.Deploy(ctx)
	if err != nil {
		return nil, err
	}

	d.loadOnce.Do(func() {
		if d.native && !NativeSupported(d.id) {
			d.loadErr = fmt.Errorf("failed to load profiler library: %w: no native binding for %s", ErrEngineUnavailable, d.id)
			return
		}

		engine, err := d.loader(staged.Path)
		if err != nil {
			d.loadErr = fmt.Errorf("failed to load profiler library: %w", err)
			return
		}
		d.engine = engine
		d.logger.Debug().Str("path", staged.Path).Msg("Profiler engine loaded")
	})

	return d.engine, d.loadErr
}

// Options configures the process-wide Deployer created by Init.
type Options struct {
	Resolver platform.ResolverConfig
	Stager   StagerConfig
	Loader   EngineLoader
}

var (
	processOnce     sync.Once
	processDeployer *Deployer
)

// Init creates the process-wide Deployer on first use and deploys the library.
// Options passed to later calls are ignored; they get the cached result.
func Init(ctx context.Context, logger zerolog.Logger, opts Options) (*Deployer, error) {
	processOnce.Do(func() {
		processDeployer = NewDeployer(
			logger,
			platform.NewResolver(logger, opts.Resolver),
			NewStager(logger, opts.Stager),
			opts.Loader,
		)
	})

	if _, err := processDeployer.Deploy(ctx); err != nil {
		return nil, err
	}
	return processDeployer, nil
}
