package releaser

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
)

// writeBundleManifest drops a minimal bundle manifest into root.
func writeBundleManifest(t *testing.T, root string) string {
	t.Helper()

	path := filepath.Join(root, "leadgen-bundle.yaml")
	contents := `name: LeadGen
identifier: com.example.leadgen
version: 1.2.3
entry: ./leadgen-app
`

	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// writeDistFile places a file into the dist tree by its slash-separated name.
func writeDistFile(t *testing.T, distDir, name string, content []byte) {
	t.Helper()

	path := filepath.Join(distDir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

// checksumOf returns the base64 SHA-512 checksum used in release manifests.
func checksumOf(content []byte) string {
	sum := sha512.Sum512(content)

	return base64.StdEncoding.EncodeToString(sum[:])
}

// readTarGz returns regular-file entries of a gzipped tarball by name.
func readTarGz(t *testing.T, path string) map[string][]byte {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)

	defer func() {
		_ = file.Close()
	}()

	gzipReader, err := gzip.NewReader(file)
	require.NoError(t, err)

	entries := make(map[string][]byte)
	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		if header.Typeflag != tar.TypeReg {
			continue
		}

		content, err := io.ReadAll(tarReader)
		require.NoError(t, err)

		entries[header.Name] = content
	}

	return entries
}

// readZip returns file entries of a zip archive by name.
func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	entries := make(map[string][]byte)

	for _, entry := range reader.File {
		rc, err := entry.Open()
		require.NoError(t, err)

		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		entries[entry.Name] = content
	}

	return entries
}

// TestReleaseWritesManifestAndArchives runs a release over fabricated dist
// trees and checks the manifest, checksums and archives it produces.
func TestReleaseWritesManifestAndArchives(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	distDir := filepath.Join(root, "dist")

	manifestPath := writeBundleManifest(t, root)

	darwinFiles := map[string][]byte{
		"LeadGen.app/Contents/MacOS/LeadGen":        []byte("darwin binary"),
		"LeadGen.app/Contents/Info.plist":           []byte("<plist/>"),
		"LeadGen.app/Contents/Resources/index.html": []byte("<html></html>"),
	}
	windowsFiles := map[string][]byte{
		"LeadGen/LeadGen.exe":      []byte("windows binary"),
		"LeadGen/assets/style.css": []byte("body {}"),
	}

	for name, content := range darwinFiles {
		writeDistFile(t, distDir, name, content)
	}

	for name, content := range windowsFiles {
		writeDistFile(t, distDir, name, content)
	}

	require.NoError(t, Run(ctx, &Options{ManifestPath: manifestPath, Root: root}))

	repo := releaserepo.NewFileRepository(filepath.Join(distDir, releaserepo.DefaultFilename))

	release, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "LeadGen", release.Name)
	require.Equal(t, "1.2.3", release.Version)
	require.NotNil(t, release.Builder)
	require.Len(t, release.Platforms, 2)

	// Darwin section: checksums, executable and archive.
	darwin := release.Platforms[bundle.PlatformDarwin]
	require.NotNil(t, darwin)
	require.Equal(t, "LeadGen.app/Contents/MacOS/LeadGen", darwin.Executable)
	require.Len(t, darwin.Files, len(darwinFiles))

	for name, content := range darwinFiles {
		require.Equal(t, checksumOf(content), darwin.Files[name])
	}

	require.NotNil(t, darwin.Archive)
	require.Equal(t, "LeadGen-1.2.3-darwin.tar.gz", darwin.Archive.Name)

	archivePath := filepath.Join(distDir, darwin.Archive.Name)

	info, err := os.Stat(archivePath)
	require.NoError(t, err)
	require.Equal(t, info.Size(), darwin.Archive.Size)

	archiveContent, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	require.Equal(t, checksumOf(archiveContent), darwin.Archive.Checksum)

	tarEntries := readTarGz(t, archivePath)
	for name, content := range darwinFiles {
		require.Equal(t, content, tarEntries[name])
	}

	// Windows section mirrors the darwin one with a zip archive.
	windows := release.Platforms[bundle.PlatformWindows]
	require.NotNil(t, windows)
	require.Equal(t, "LeadGen/LeadGen.exe", windows.Executable)

	for name, content := range windowsFiles {
		require.Equal(t, checksumOf(content), windows.Files[name])
	}

	require.NotNil(t, windows.Archive)
	require.Equal(t, "LeadGen-1.2.3-windows.zip", windows.Archive.Name)

	zipEntries := readZip(t, filepath.Join(distDir, windows.Archive.Name))
	for name, content := range windowsFiles {
		require.Equal(t, content, zipEntries[name])
	}

	// The archive and manifest themselves never show up as bundle files.
	require.NotContains(t, darwin.Files, darwin.Archive.Name)
	require.NotContains(t, darwin.Files, releaserepo.DefaultFilename)
}

// TestReleaseSinglePlatform releases only the tree that was built.
func TestReleaseSinglePlatform(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	distDir := filepath.Join(root, "dist")

	manifestPath := writeBundleManifest(t, root)
	writeDistFile(t, distDir, "LeadGen/LeadGen.exe", []byte("windows binary"))

	require.NoError(t, Run(ctx, &Options{ManifestPath: manifestPath, Root: root}))

	release, err := releaserepo.NewFileRepository(
		filepath.Join(distDir, releaserepo.DefaultFilename)).Load(ctx)
	require.NoError(t, err)
	require.Len(t, release.Platforms, 1)
	require.Contains(t, release.Platforms, bundle.PlatformWindows)
}

// TestReleaseNoBundles fails when nothing was built yet.
func TestReleaseNoBundles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()

	manifestPath := writeBundleManifest(t, root)

	err := Run(ctx, &Options{ManifestPath: manifestPath, Root: root})
	require.ErrorIs(t, err, errNoBundles)
}
