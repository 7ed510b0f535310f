package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
)

// errIconNotFile indicates the manifest's icon does not point at a regular file.
var errIconNotFile = errors.New("icon must be a regular file")

// assemble turns the staged payload into the final platform bundle under dist/
// and records the produced files in the report.
func (b *builder) assemble(ctx context.Context) error {
	var err error

	switch b.resolved.Platform {
	case bundle.PlatformDarwin:
		err = b.assembleDarwin(ctx)
	case bundle.PlatformWindows:
		err = b.assembleWindows(ctx)
	default:
		err = fmt.Errorf("%w: %q", bundle.ErrUnsupportedPlatform, b.resolved.Platform)
	}

	if err != nil {
		return err
	}

	return b.report.collectOutputs(b.layout.DistDir())
}

// stageIcon copies the manifest icon into the given bundle directory
// and returns its base name. An unset icon is not an error.
func (b *builder) stageIcon(destDir string) (string, error) {
	if b.resolved.Icon == "" {
		return "", nil
	}

	source := b.resolvePath(b.resolved.Icon)

	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("icon: %w", err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", errIconNotFile, source)
	}

	name := filepath.Base(source)

	return name, copyFile(source, filepath.Join(destDir, name), 0o644)
}

// copyPayload copies the staged payload into destDir,
// skipping the root-level names listed in skip.
func copyPayload(sourceDir, destDir string, skip ...string) error {
	skipSet := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		skipSet[name] = struct{}{}
	}

	return filepath.WalkDir(sourceDir, func(sourcePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(sourceDir, sourcePath)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", sourcePath, err)
		}

		if relativePath == "." {
			return nil
		}

		if _, skipped := skipSet[relativePath]; skipped {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		destPath := filepath.Join(destDir, relativePath)

		if entry.IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", destPath, err)
			}

			return nil
		}

		info, err := os.Stat(sourcePath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", sourcePath, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return copyFile(sourcePath, destPath, info.Mode().Perm())
	})
}
