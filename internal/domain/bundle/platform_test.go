package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParsePlatform verifies normalization of valid names and rejection of unknown ones.
func TestParsePlatform(t *testing.T) {
	t.Parallel()

	cases := map[string]Platform{
		"darwin":   PlatformDarwin,
		"windows":  PlatformWindows,
		" Darwin ": PlatformDarwin,
		"WINDOWS":  PlatformWindows,
	}
	for s, want := range cases {
		got, err := ParsePlatform(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParsePlatform("linux")
	require.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = ParsePlatform("")
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

// TestPlatformProperties checks the per-platform suffix and archive format.
func TestPlatformProperties(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", PlatformDarwin.ExecutableSuffix())
	require.Equal(t, ".exe", PlatformWindows.ExecutableSuffix())
	require.Equal(t, "tar.gz", PlatformDarwin.ArchiveExtension())
	require.Equal(t, "zip", PlatformWindows.ArchiveExtension())

	require.True(t, PlatformDarwin.Valid())
	require.True(t, PlatformWindows.Valid())
	require.False(t, Platform("linux").Valid())

	require.Equal(t, []Platform{PlatformDarwin, PlatformWindows}, Platforms())
}
