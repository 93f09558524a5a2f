package deploy

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/config"
	"github.com/coral-mesh/coral-asprof/internal/platform"
)

// StageResult is printed by the stage command.
type StageResult struct {
	Identifier string `json:"identifier" header:"IDENTIFIER"`
	Checksum   string `json:"checksum" header:"CHECKSUM"`
	Path       string `json:"path" header:"PATH"`
}

type stageFlags struct {
	tempDir   string
	namespace string
	noVerify  bool
}

// apply overrides cfg with flags the user set explicitly.
func (f *stageFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("temp-dir") {
		cfg.Staging.TempDir = f.tempDir
	}
	if cmd.Flags().Changed("namespace") {
		cfg.Staging.Namespace = f.namespace
	}
	if f.noVerify {
		cfg.Staging.Verify = false
	}
}

// NewStageCmd creates the stage command.
func NewStageCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var (
		flags  stageFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Write the profiler library for this host to disk",
		Long: `Resolves the host platform and writes the matching bundled profiler
library into the per-user staging directory. The file name carries the
library's SHA-1, so repeated runs reuse the same path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := helpers.Logger(cfg)
			deployOpts := helpers.DeployOptions(cfg)
			deployer := asprof.NewDeployer(
				logger,
				platform.NewResolver(logger, deployOpts.Resolver),
				asprof.NewStager(logger, deployOpts.Stager),
				nil,
			)

			staged, err := deployer.Deploy(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to stage profiler library: %w", err)
			}

			return helpers.WriteResult(cmd, format, supportedFormats, []StageResult{{
				Identifier: deployer.Identifier().String(),
				Checksum:   staged.Checksum,
				Path:       staged.Path,
			}})
		},
	}

	cmd.Flags().StringVar(&flags.tempDir, "temp-dir", "", "Root directory for the staging directory")
	cmd.Flags().StringVar(&flags.namespace, "namespace", "", "Suffix of the per-user staging directory")
	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "Skip SHA-1 verification of the bundled library")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, supportedFormats)

	return cmd
}
