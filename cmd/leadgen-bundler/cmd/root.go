package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/version"
)

var (
	// logLevel names the minimum level for log output.
	logLevel string

	// rootCmd represents the base command for the bundler CLI.
	rootCmd = &cobra.Command{
		Use:   "leadgen-bundler",
		Short: "Assemble, release, and distribute LeadGen desktop bundles",
		Long: `leadgen-bundler turns a prebuilt application into a desktop distributable:
a macOS application bundle (dist/LeadGen.app) or a Windows folder
(dist/LeadGen/LeadGen.exe), driven by a bundle manifest.

Beyond building, it prepares releases (checksums, archives, optional PGP
signature), verifies built trees, serves an update feed, launches the
bundle, and reports on build inputs and the host environment.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}
)

// Execute runs the leadgen-bundler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
