package bundle

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Platform is the operating system a bundle is assembled for.
type Platform string

const (
	// PlatformDarwin produces a macOS application bundle (<Name>.app).
	PlatformDarwin Platform = "darwin"
	// PlatformWindows produces a flat folder with <Name>.exe inside.
	PlatformWindows Platform = "windows"
)

// ErrUnsupportedPlatform is returned when a platform string
// names an operating system the bundler cannot target.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platforms returns all supported platforms in stable order.
func Platforms() []Platform {
	return []Platform{PlatformDarwin, PlatformWindows}
}

// ParsePlatform converts a string such as "darwin" or "windows" into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformDarwin, PlatformWindows:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
	}
}

// HostPlatform returns the platform matching the operating system
// the tool itself is running on.
func HostPlatform() (Platform, error) {
	return ParsePlatform(runtime.GOOS)
}

// String returns the platform name as used in manifests and archive names.
func (p Platform) String() string {
	return string(p)
}

// Valid reports whether the platform is one of the supported targets.
func (p Platform) Valid() bool {
	return p == PlatformDarwin || p == PlatformWindows
}

// ExecutableSuffix returns the file extension of executables on the platform.
func (p Platform) ExecutableSuffix() string {
	if p == PlatformWindows {
		return ".exe"
	}

	return ""
}

// ArchiveExtension returns the archive format used when publishing
// bundles for the platform.
func (p Platform) ArchiveExtension() string {
	if p == PlatformWindows {
		return "zip"
	}

	return "tar.gz"
}
