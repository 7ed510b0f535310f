package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/service/verifier"
)

var (
	// verifyDir is the directory holding the release manifest and bundle files.
	verifyDir string
	// verifyKeyPath points at an armored PGP public key.
	verifyKeyPath string

	// verifyCmd checks a tree against its release manifest.
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify a tree against its release manifest",
		Long: `Recomputes the checksum of every file the release manifest names and
compares it with the recorded value. With --key the manifest's detached
PGP signature is validated first.

The exit code is non-zero when the signature or any file fails.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &verifier.Options{
				Dir:     verifyDir,
				KeyPath: verifyKeyPath,
			}

			return verifier.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	verifyCmd.Flags().StringVarP(&verifyDir, "dir", "d", "", "directory to verify (default: dist)")
	verifyCmd.Flags().StringVarP(&verifyKeyPath, "key", "k", "", "path to armored PGP public key")

	rootCmd.AddCommand(verifyCmd)
}
