// Package cli assembles the coral-asprof command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/coral-asprof/internal/cli/deploy"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/cli/record"
	"github.com/coral-mesh/coral-asprof/internal/cli/snapshots"
	"github.com/coral-mesh/coral-asprof/pkg/version"
)

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	opts := &helpers.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "coral-asprof",
		Short: "Continuous in-process sampling with async-profiler",
		Long: `Ships async-profiler for every supported platform, stages the matching
native library on first use and records gapless sampling windows into a
local DuckDB database.

Supported platforms: linux x64/arm64 (glibc and musl), macOS x64.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(deploy.NewPlatformCmd(opts))
	rootCmd.AddCommand(deploy.NewStageCmd(opts))
	rootCmd.AddCommand(record.NewRecordCmd(opts))
	rootCmd.AddCommand(snapshots.NewSnapshotsCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("coral-asprof version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
