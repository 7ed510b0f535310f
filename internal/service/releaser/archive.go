package releaser

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

// buildArchive packages one bundle tree into its platform archive format
// and returns the archive metadata for the release manifest.
func (r *releaser) buildArchive(ctx context.Context, layout bundle.Layout) (*bundle.Archive, error) {
	archiveName := layout.ArchiveName(r.m.Version)
	archivePath := filepath.Join(r.distDir, archiveName)

	var err error

	switch layout.Platform {
	case bundle.PlatformDarwin:
		err = createTarGz(r.distDir, layout.BundlePath(), archivePath)
	case bundle.PlatformWindows:
		err = createZip(r.distDir, layout.BundlePath(), archivePath)
	default:
		return nil, fmt.Errorf("%w: %s", bundle.ErrUnsupportedPlatform, layout.Platform)
	}

	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", archiveName, err)
	}

	checksum, err := updater.GetFileChecksum(archivePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Created archive", "path", archivePath, "bytes", info.Size())

	return &bundle.Archive{
		Name:     archiveName,
		Checksum: base64.StdEncoding.EncodeToString(checksum),
		Size:     info.Size(),
	}, nil
}

// createTarGz writes a gzipped tarball of sourceDir. Entries stay rooted at
// the bundle folder name so extraction reproduces the dist layout.
func createTarGz(baseDir, sourceDir, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	defer func() {
		_ = out.Close()
	}()

	gzipWriter := gzip.NewWriter(out)

	defer func() {
		_ = gzipWriter.Close()
	}()

	tarWriter := tar.NewWriter(gzipWriter)

	defer func() {
		_ = tarWriter.Close()
	}()

	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Symlink targets ride along in the header.
		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}

		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}

		if err = tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}

		defer func() {
			_ = file.Close()
		}()

		if _, err = io.Copy(tarWriter, file); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	// Flush in order so the archive trailer is complete before checksumming.
	if err = tarWriter.Close(); err != nil {
		return err
	}

	if err = gzipWriter.Close(); err != nil {
		return err
	}

	return out.Close()
}

// createZip writes a zip of sourceDir. Entries stay rooted at the bundle
// folder name so extraction reproduces the dist layout.
func createZip(baseDir, sourceDir, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	defer func() {
		_ = out.Close()
	}()

	zipWriter := zip.NewWriter(out)

	defer func() {
		_ = zipWriter.Close()
	}()

	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}

		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}

		defer func() {
			_ = file.Close()
		}()

		if _, err = io.Copy(writer, file); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err = zipWriter.Close(); err != nil {
		return err
	}

	return out.Close()
}
