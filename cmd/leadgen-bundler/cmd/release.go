package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/releaser"
)

var (
	// releaseManifestPath to the bundle manifest YAML file.
	releaseManifestPath string
	// releaseRoot is the project directory override.
	releaseRoot string
	// releaseSignKeyPath points at an armored PGP private key.
	releaseSignKeyPath string
	// releasePushURL names the feed to upload the release to.
	releasePushURL string

	// releaseCmd prepares built bundles for distribution.
	releaseCmd = &cobra.Command{
		Use:   "release",
		Short: "Prepare release metadata for the built bundles",
		Long: `Checksums every file of the built bundles under dist/, packs per-platform
archives, and writes the release manifest updaters consume.

With --sign the manifest gets a detached armored PGP signature. With --push
the manifest and artifacts are uploaded to the feed; the bearer token is
read from the ` + releaser.FeedTokenEnvVar + ` environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &releaser.Options{
				ManifestPath: releaseManifestPath,
				Root:         releaseRoot,
				SignKeyPath:  releaseSignKeyPath,
				PushURL:      releasePushURL,
			}

			return releaser.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	releaseCmd.Flags().
		StringVarP(&releaseManifestPath, "manifest", "m", manifest.DefaultManifestFilename, "path to bundle manifest")
	releaseCmd.Flags().StringVar(&releaseRoot, "root", "", "project directory (default: manifest directory)")
	releaseCmd.Flags().StringVar(&releaseSignKeyPath, "sign", "", "path to armored PGP private key for signing")
	releaseCmd.Flags().StringVar(&releasePushURL, "push", "", "feed URL to upload the release to")

	rootCmd.AddCommand(releaseCmd)
}
