package verifier

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
)

// writeTree places files into dir by their slash-separated names.
func writeTree(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}
}

// checksumOf returns the base64 SHA-512 checksum used in release manifests.
func checksumOf(content []byte) string {
	sum := sha512.Sum512(content)

	return base64.StdEncoding.EncodeToString(sum[:])
}

// saveRelease writes a release manifest whose checksums match the given files.
func saveRelease(t *testing.T, ctx context.Context, dir string, platform bundle.Platform,
	executable string, files map[string][]byte, archive *bundle.Archive,
) {
	t.Helper()

	checksums := make(map[string]string, len(files))
	for name, content := range files {
		checksums[name] = checksumOf(content)
	}

	release := &bundle.Release{
		Name:      "LeadGen",
		Version:   "1.2.3",
		CreatedAt: time.Now().UTC(),
		Platforms: map[bundle.Platform]*bundle.PlatformRelease{
			platform: {
				Executable: executable,
				Files:      checksums,
				Archive:    archive,
			},
		},
	}

	repo := releaserepo.NewFileRepository(filepath.Join(dir, releaserepo.DefaultFilename))
	require.NoError(t, repo.Save(ctx, release))
}

// TestVerifyCleanTree passes when every checksum matches.
func TestVerifyCleanTree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	files := map[string][]byte{
		"LeadGen.app/Contents/MacOS/LeadGen": []byte("binary"),
		"LeadGen.app/Contents/Info.plist":    []byte("<plist/>"),
	}
	writeTree(t, dir, files)
	saveRelease(t, ctx, dir, bundle.PlatformDarwin, "LeadGen.app/Contents/MacOS/LeadGen", files, nil)

	require.NoError(t, Run(ctx, &Options{Dir: dir}))
}

// TestVerifyDetectsTamperAndMissing reports modified and absent files.
func TestVerifyDetectsTamperAndMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	files := map[string][]byte{
		"LeadGen/LeadGen.exe":      []byte("binary"),
		"LeadGen/assets/style.css": []byte("body {}"),
		"LeadGen/assets/app.js":    []byte("let x = 1;"),
	}
	writeTree(t, dir, files)
	saveRelease(t, ctx, dir, bundle.PlatformWindows, "LeadGen/LeadGen.exe", files, nil)

	// Tamper with one file and remove another.
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "LeadGen", "assets", "style.css"), []byte("body { color: red }"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "LeadGen", "assets", "app.js")))

	v, err := newVerifier(ctx, &Options{Dir: dir})
	require.NoError(t, err)

	report, err := v.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Verified)
	require.Len(t, report.Mismatches, 2)

	reasons := make(map[string]string, len(report.Mismatches))
	for _, mismatch := range report.Mismatches {
		reasons[mismatch.Path] = mismatch.Reason
	}

	require.Equal(t, "missing", reasons["LeadGen/assets/app.js"])
	require.Equal(t, "checksum mismatch", reasons["LeadGen/assets/style.css"])

	// The exported entry point turns mismatches into an error.
	err = Run(ctx, &Options{Dir: dir})
	require.ErrorIs(t, err, errVerificationFailed)
}

// TestVerifyArchive checks the archive when present and skips it when absent.
func TestVerifyArchive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	files := map[string][]byte{
		"LeadGen/LeadGen.exe": []byte("binary"),
	}
	archiveContent := []byte("zip bytes")
	archive := &bundle.Archive{
		Name:     "LeadGen-1.2.3-windows.zip",
		Checksum: checksumOf(archiveContent),
		Size:     int64(len(archiveContent)),
	}

	writeTree(t, dir, files)
	saveRelease(t, ctx, dir, bundle.PlatformWindows, "LeadGen/LeadGen.exe", files, archive)

	// Absent archive is not a failure.
	require.NoError(t, Run(ctx, &Options{Dir: dir}))

	// Present and intact archive counts as verified.
	require.NoError(t, os.WriteFile(filepath.Join(dir, archive.Name), archiveContent, 0o644))

	v, err := newVerifier(ctx, &Options{Dir: dir})
	require.NoError(t, err)

	report, err := v.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Verified)
	require.Empty(t, report.Mismatches)

	// A truncated archive fails on size before checksums.
	require.NoError(t, os.WriteFile(filepath.Join(dir, archive.Name), archiveContent[:3], 0o644))

	v, err = newVerifier(ctx, &Options{Dir: dir})
	require.NoError(t, err)

	report, err = v.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	require.Equal(t, "size mismatch", report.Mismatches[0].Reason)
}

// TestVerifyMissingManifest fails fast when the directory has no manifest.
func TestVerifyMissingManifest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	err := Run(ctx, &Options{Dir: t.TempDir()})
	require.ErrorIs(t, err, releaserepo.ErrNotFound)
}
