package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/common"
)

// errEntryNotFile indicates the manifest's entry does not point at a regular file.
var errEntryNotFile = errors.New("entry must be a regular file")

// stagePayload copies the entry executable, the data mappings, and the
// forced includes into build/<platform>/payload/.
func (b *builder) stagePayload(ctx context.Context) error {
	stageDir := b.layout.StageDir()

	if err := b.stageEntry(ctx, stageDir); err != nil {
		return err
	}

	for _, mapping := range b.resolved.Data {
		if err := b.stageMapping(ctx, stageDir, mapping, "data"); err != nil {
			return err
		}
	}

	for _, mapping := range b.resolved.Include {
		if err := b.stageMapping(ctx, stageDir, mapping, "include"); err != nil {
			return err
		}
	}

	return b.report.collectInputs(stageDir)
}

// stageEntry places the entry executable at the payload root
// under the artifact name.
func (b *builder) stageEntry(ctx context.Context, stageDir string) error {
	source := b.resolvePath(b.resolved.Entry)

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("entry executable: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", errEntryNotFile, source)
	}

	stagedName := b.resolved.Name + b.resolved.Platform.ExecutableSuffix()
	dest := filepath.Join(stageDir, stagedName)

	logger.DebugKV(ctx, "Staging entry", "source", source, "dest", dest)

	return copyFile(source, dest, common.DefaultExecutableMode)
}

// stageMapping copies one data or include mapping into the payload.
func (b *builder) stageMapping(ctx context.Context, stageDir string, mapping manifest.Mapping, kind string) error {
	source := b.resolvePath(mapping.Source)
	dest := filepath.Join(stageDir, filepath.FromSlash(mapping.Dest))

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%s mapping %s: %w", kind, mapping.Source, err)
	}

	logger.DebugKV(ctx, "Staging mapping",
		"kind", kind, "source", source, "dest", dest)

	if info.IsDir() {
		return copyTree(source, dest)
	}

	return copyFile(source, dest, info.Mode().Perm())
}

// resolvePath turns a manifest-relative path into an absolute or
// root-joined one. Absolute paths pass through untouched.
func (b *builder) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(b.root, path)
}

// copyTree copies a directory tree, following symlinks and
// preserving file permission bits.
func copyTree(sourceDir, destDir string) error {
	return filepath.WalkDir(sourceDir, func(sourcePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(sourceDir, sourcePath)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", sourcePath, err)
		}

		destPath := filepath.Join(destDir, relativePath)

		if entry.IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", destPath, err)
			}

			return nil
		}

		// os.Stat follows symlinks, so linked files are copied as content.
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

// copyFile copies one file, creating parent directories and forcing the mode.
func copyFile(sourcePath, destPath string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(destPath), err)
	}

	sourceFile, err := os.Open(filepath.Clean(sourcePath))
	if err != nil {
		return fmt.Errorf("open %s: %w", sourcePath, err)
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(filepath.Clean(destPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err = io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()

		return fmt.Errorf("copy %s: %w", sourcePath, err)
	}

	if err = destFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destPath, err)
	}

	// The mode passed to OpenFile is filtered by the umask on creation.
	if err = os.Chmod(destPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", destPath, err)
	}

	return nil
}
