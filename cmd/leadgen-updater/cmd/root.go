package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
	"github.com/arkhalid89/leadgen-bundler/internal/version"
)

var (
	// settingsPath to the updater settings YAML file.
	settingsPath string
	// feedURL bootstraps settings on a machine that has none yet.
	feedURL string
	// logLevel names the minimum level for log output.
	logLevel string

	// rootCmd represents the base command for downloading and applying updates.
	rootCmd = &cobra.Command{
		Use:   "leadgen-updater",
		Short: "Download and apply bundle updates from the feed",
		Long: `Fetches the release manifest from the update feed, compares it with the
installed bundle, downloads changed files, and applies them with checksum
verification. Running instances of the bundle are terminated before files
are replaced; the bundle can be relaunched afterwards via settings.

On a machine without a settings file yet, pass --feed once to create it.`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				SettingsPath: settingsPath,
				FeedURL:      feedURL,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the leadgen-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().
		StringVarP(&settingsPath, "settings", "s", updater.DefaultSettingsFilename, "path to updater settings file")
	rootCmd.Flags().StringVarP(&feedURL, "feed", "f", "", "feed URL to bootstrap settings with")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
