package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/service/builder"
)

var (
	// cleanRoot is the project directory override.
	cleanRoot string

	// cleanCmd removes everything a build leaves behind.
	cleanCmd = &cobra.Command{
		Use:   "clean",
		Short: "Remove the build/ and dist/ trees",
		Long: `Removes the build/ and dist/ trees plus any stray update marker.
Cleaning a tree that was never built succeeds and reports nothing to do.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return builder.Clean(ctx, &builder.CleanOptions{Root: cleanRoot})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	cleanCmd.Flags().StringVar(&cleanRoot, "root", "", "project directory (default: current directory)")

	rootCmd.AddCommand(cleanCmd)
}
