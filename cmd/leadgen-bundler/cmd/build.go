package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/builder"
)

var (
	// buildManifestPath to the bundle manifest YAML file.
	buildManifestPath string
	// buildPlatform selects the bundle format, defaulting to the host.
	buildPlatform string
	// buildRoot is the project directory override.
	buildRoot string
	// buildSkipPrebuild skips the manifest's prebuild script.
	buildSkipPrebuild bool
	// buildStrict promotes asset scan misses to build failures.
	buildStrict bool

	// buildCmd assembles a platform bundle from the manifest.
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Assemble a platform bundle into dist/",
		Long: `Assembles the bundle described by the manifest: removes previous build/
and dist/ trees, runs the optional prebuild script, stages the entry
executable with every declared data tree and forced include, scans staged
templates for dangling asset references, and lays out the platform bundle.

The exit code reflects the real outcome: any failing stage aborts the build.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &builder.Options{
				ManifestPath: buildManifestPath,
				Platform:     buildPlatform,
				Root:         buildRoot,
				SkipPrebuild: buildSkipPrebuild,
				Strict:       buildStrict,
			}

			return builder.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	buildCmd.Flags().
		StringVarP(&buildManifestPath, "manifest", "m", manifest.DefaultManifestFilename, "path to bundle manifest")
	buildCmd.Flags().
		StringVarP(&buildPlatform, "platform", "p", "", "target platform: darwin or windows (default: host)")
	buildCmd.Flags().StringVar(&buildRoot, "root", "", "project directory (default: manifest directory)")
	buildCmd.Flags().BoolVar(&buildSkipPrebuild, "skip-prebuild", false, "skip the manifest's prebuild script")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "fail the build on missing asset references")

	rootCmd.AddCommand(buildCmd)
}
