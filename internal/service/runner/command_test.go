package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

// writeProjectManifest drops a minimal manifest into dir and returns its path.
func writeProjectManifest(t *testing.T, dir string) string {
	t.Helper()

	manifestPath := filepath.Join(dir, manifest.DefaultManifestFilename)
	m := &manifest.Manifest{
		Name:       "LeadGen",
		Identifier: "com.example.leadgen",
		Version:    "1.0.0",
		Entry:      "bin/leadgen",
	}
	require.NoError(t, manifest.Save(manifestPath, m))

	return manifestPath
}

// TestLocateBundle checks bundle discovery against a built and an empty tree.
func TestLocateBundle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := writeProjectManifest(t, dir)

	opts := &Options{ManifestPath: manifestPath, Platform: "darwin"}

	// Nothing built yet.
	_, err := locateBundle(opts)
	require.ErrorIs(t, err, errBundleMissing)

	// A built darwin bundle is found by its executable.
	layout := bundle.Layout{Root: dir, Name: "LeadGen", Platform: bundle.PlatformDarwin}
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.ExecutablePath()), 0o755))
	require.NoError(t, os.WriteFile(layout.ExecutablePath(), []byte("#!/bin/sh\n"), 0o755))

	located, err := locateBundle(opts)
	require.NoError(t, err)
	require.Equal(t, layout.ExecutablePath(), located.ExecutablePath())

	// Unknown platform names are rejected.
	_, err = locateBundle(&Options{ManifestPath: manifestPath, Platform: "solaris"})
	require.ErrorIs(t, err, bundle.ErrUnsupportedPlatform)

	// A missing manifest fails before any bundle lookup.
	_, err = locateBundle(&Options{ManifestPath: filepath.Join(dir, "missing.yaml"), Platform: "darwin"})
	require.Error(t, err)
}

// TestAwaitUpdater covers the marker states: absent, fresh, and stale.
func TestAwaitUpdater(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// No marker: nothing to wait for.
	dir := t.TempDir()
	require.NoError(t, awaitUpdater(ctx, dir, false))

	// Fresh marker without waiting fails immediately.
	markerPath := filepath.Join(dir, updater.MarkerFilename)
	require.NoError(t, os.WriteFile(markerPath, nil, 0o600))
	require.ErrorIs(t, awaitUpdater(ctx, dir, false), errUpdateInProgress)

	// Fresh marker with waiting blocks until the context gives up.
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := awaitUpdater(waitCtx, dir, true)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// A stale marker is recovered instead of blocking the launch.
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(markerPath, stale, stale))
	require.NoError(t, awaitUpdater(ctx, dir, false))
	require.NoFileExists(t, markerPath)
}

// TestIsProcessRunning verifies the scan ignores absent executables and itself.
func TestIsProcessRunning(t *testing.T) {
	t.Parallel()

	running, err := isProcessRunning("definitely-not-a-real-process-zzz")
	require.NoError(t, err)
	require.False(t, running)
}

// TestLaunchCommand checks the platform launch invocations. At most one
// platform can match the host, every other one must be refused.
func TestLaunchCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	host, hostErr := bundle.HostPlatform()

	for _, platform := range bundle.Platforms() {
		layout := bundle.Layout{Root: "proj", Name: "LeadGen", Platform: platform}

		cmd, err := launchCommand(ctx, layout)
		if hostErr != nil || host != platform {
			require.Error(t, err)

			continue
		}

		require.NoError(t, err)

		switch platform {
		case bundle.PlatformDarwin:
			require.Equal(t, []string{"open", layout.BundlePath()}, cmd.Args)
		case bundle.PlatformWindows:
			require.Equal(t, []string{"cmd.exe", "/C", "start", layout.ExecutablePath()}, cmd.Args)
		}
	}
}
