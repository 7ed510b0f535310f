package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arkhalid89/leadgen-bundler/internal/service/server"
)

var (
	// serveDir is the feed directory to serve.
	serveDir string
	// serveListenAddress is the TCP address to listen on.
	serveListenAddress string
	// serveRequestsPerSecond caps each client's sustained request rate.
	serveRequestsPerSecond float64
	// serveBurst is the momentary burst allowance per client.
	serveBurst int

	// serveCmd runs the update feed server.
	serveCmd = &cobra.Command{
		Use:   "serve [listen-address]",
		Short: "Serve dist/ as an update feed over HTTP",
		Long: `Serves a feed directory over HTTP so updaters and installers can fetch the
release manifest and artifacts: GET /api/v1/release returns the parsed
manifest as JSON, GET /healthz reports liveness, and every other path
resolves against the feed directory.

The listen address can be provided as an argument to override the flag
(e.g. :9090, 0.0.0.0:8080). The server runs until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on the flag.
			listenAddress := serveListenAddress
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				Dir:               serveDir,
				ListenAddress:     listenAddress,
				RequestsPerSecond: serveRequestsPerSecond,
				Burst:             serveBurst,
			}

			return server.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", "", "feed directory to serve (default: dist)")
	serveCmd.Flags().
		StringVarP(&serveListenAddress, "listen", "l", server.DefaultListenAddress, "TCP address to listen on")
	serveCmd.Flags().
		Float64Var(&serveRequestsPerSecond, "rps", server.DefaultRequestsPerSecond, "per-client requests per second")
	serveCmd.Flags().IntVar(&serveBurst, "burst", server.DefaultBurst, "per-client burst allowance")

	rootCmd.AddCommand(serveCmd)
}
