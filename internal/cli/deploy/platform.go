// Package deploy implements the platform and stage commands.
package deploy

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/platform"
)

var supportedFormats = []helpers.OutputFormat{helpers.FormatTable, helpers.FormatJSON}

// PlatformInfo describes one binary identifier and its bundled resource.
type PlatformInfo struct {
	Identifier string `json:"identifier" header:"IDENTIFIER"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Libc       string `json:"libc"`
	Resource   string `json:"resource" header:"RESOURCE"`
	Bundled    bool   `json:"bundled" header:"BUNDLED"`
}

// NewPlatformCmd creates the platform command.
func NewPlatformCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var (
		all    bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show which profiler library this host needs",
		Long: `Detects the host OS, CPU architecture and C library and prints the
matching profiler library resource. With --all, lists every supported
platform and whether its library is bundled in this binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return helpers.WriteResult(cmd, format, supportedFormats, describe(asprof.Binaries(), platform.Supported()...))
			}

			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			logger := helpers.Logger(cfg)

			resolver := platform.NewResolver(logger, helpers.DeployOptions(cfg).Resolver)
			id, err := resolver.Resolve(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to resolve platform: %w", err)
			}

			return helpers.WriteResult(cmd, format, supportedFormats, describe(asprof.Binaries(), id))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every supported platform")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, supportedFormats)

	return cmd
}

func describe(resources fs.FS, ids ...platform.BinaryIdentifier) []PlatformInfo {
	infos := make([]PlatformInfo, len(ids))
	for i, id := range ids {
		resource := asprof.DefaultNaming.ResourceName(id)
		_, err := fs.Stat(resources, resource)
		infos[i] = PlatformInfo{
			Identifier: id.String(),
			OS:         string(id.OS),
			Arch:       string(id.Arch),
			Libc:       string(id.Libc),
			Resource:   resource,
			Bundled:    err == nil,
		}
	}
	return infos
}
