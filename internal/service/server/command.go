package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
)

// Options controls the feed server process.
type Options struct {
	// Dir is the directory to serve. Defaults to dist.
	Dir string
	// ListenAddress is the TCP address to listen on.
	ListenAddress string
	// RequestsPerSecond caps each client's request rate.
	RequestsPerSecond float64
	// Burst is the momentary burst allowance per client.
	Burst int
}

const (
	// DefaultListenAddress is used when no listen address is configured.
	DefaultListenAddress = ":8080"
	// DefaultRequestsPerSecond is the per-client rate limit.
	DefaultRequestsPerSecond = 50
	// DefaultBurst is the per-client burst allowance.
	DefaultBurst = 100
	// shutdownTimeout bounds the graceful shutdown on context cancel.
	shutdownTimeout = 10 * time.Second
	// readHeaderTimeout bounds slow request headers.
	readHeaderTimeout = 10 * time.Second
)

// Run starts the feed server and blocks until the context is canceled or
// the server stops. The served directory is a feed: a release manifest
// plus the bundle files and archives it names.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	dir := opts.Dir
	if dir == "" {
		dir = bundle.DistDirName
	}

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = DefaultListenAddress
	}

	requestsPerSecond := opts.RequestsPerSecond
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}

	burst := opts.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	if _, err := os.Stat(filepath.Join(dir, releaserepo.DefaultFilename)); errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "No release manifest in feed directory yet",
			"dir", dir, "manifest", releaserepo.DefaultFilename)
	}

	router := NewRouter(dir, requestsPerSecond, burst)

	// Setup TCP listener for the HTTP server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Feed server listening", "listen_address", listenAddress, "dir", dir)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down feed server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.WarnKV(ctx, "Feed server shutdown", "error", shutdownErr)
		}

		close(done)
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}

	<-done
	logger.Info(ctx, "Feed server stopped")

	return nil
}
