package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

// TestClean removes build output and the update marker, and stays quiet
// when there is nothing left.
func TestClean(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, path := range []string{
		filepath.Join(dir, bundle.BuildDirName, "darwin", "payload", "LeadGen"),
		filepath.Join(dir, bundle.DistDirName, "LeadGen.app", "Contents", "Info.plist"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	require.NoError(t,
		os.WriteFile(filepath.Join(dir, updater.MarkerFilename), nil, 0o600))

	require.NoError(t, Clean(context.Background(), &CleanOptions{Root: dir}))

	require.NoDirExists(t, filepath.Join(dir, bundle.BuildDirName))
	require.NoDirExists(t, filepath.Join(dir, bundle.DistDirName))
	require.NoFileExists(t, filepath.Join(dir, updater.MarkerFilename))

	// A second clean has nothing to do and still succeeds.
	require.NoError(t, Clean(context.Background(), &CleanOptions{Root: dir}))
}
