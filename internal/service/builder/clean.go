package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

// CleanOptions contains inputs for the clean entry point.
type CleanOptions struct {
	// Root is the project directory holding the build/ and dist/ trees.
	// Defaults to the current directory.
	Root string
}

// Clean removes the build/ and dist/ trees plus any stray update marker.
// A tree that does not exist is skipped, not an error, so clean is idempotent.
func Clean(ctx context.Context, opts *CleanOptions) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	root := opts.Root
	if root == "" {
		root = "."
	}

	targets := []string{
		filepath.Join(root, bundle.BuildDirName),
		filepath.Join(root, bundle.DistDirName),
		filepath.Join(root, updater.MarkerFilename),
	}

	removed := 0

	for _, target := range targets {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", target, err)
		}

		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}

		logger.InfoKV(ctx, "Removed", "path", target)

		removed++
	}

	if removed == 0 {
		logger.Info(ctx, "Nothing to clean")
	}

	return nil
}
