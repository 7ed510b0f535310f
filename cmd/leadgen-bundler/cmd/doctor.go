package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/doctor"
)

var (
	// doctorManifestPath to the bundle manifest YAML file.
	doctorManifestPath string
	// doctorRoot is the project directory override.
	doctorRoot string

	// doctorCmd reports on build inputs and the host environment.
	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Report on build inputs and the host environment",
		Long: `Checks that the manifest's entry, icon, and payload sources exist and
looks up declared runtime requirements, including a local browser
installation for the packaged scrapers.

Findings are informational and never fail the command; only an unreadable
manifest yields a non-zero exit code.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &doctor.Options{
				ManifestPath: doctorManifestPath,
				Root:         doctorRoot,
			}

			return doctor.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	doctorCmd.Flags().
		StringVarP(&doctorManifestPath, "manifest", "m", manifest.DefaultManifestFilename, "path to bundle manifest")
	doctorCmd.Flags().StringVar(&doctorRoot, "root", "", "project directory (default: manifest directory)")

	rootCmd.AddCommand(doctorCmd)
}
