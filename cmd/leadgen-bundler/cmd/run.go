package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/runner"
)

var (
	// runManifestPath to the bundle manifest YAML file.
	runManifestPath string
	// runPlatform selects which built bundle to launch.
	runPlatform string
	// runRoot is the project directory override.
	runRoot string
	// runWait blocks until a running update finishes.
	runWait bool

	// runCmd launches the built bundle.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Launch the built bundle",
		Long: `Launches the bundle built for this machine: opens the .app on macOS,
starts the .exe on Windows. Fails when no bundle was built or when an
update is currently being applied (pass --wait to wait for it instead),
and warns when an instance already appears to be running.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &runner.Options{
				ManifestPath: runManifestPath,
				Platform:     runPlatform,
				Root:         runRoot,
				Wait:         runWait,
			}

			return runner.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	runCmd.Flags().
		StringVarP(&runManifestPath, "manifest", "m", manifest.DefaultManifestFilename, "path to bundle manifest")
	runCmd.Flags().
		StringVarP(&runPlatform, "platform", "p", "", "bundle platform to launch (default: host)")
	runCmd.Flags().StringVar(&runRoot, "root", "", "project directory (default: manifest directory)")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "wait for a running update to finish")

	rootCmd.AddCommand(runCmd)
}
