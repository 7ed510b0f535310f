package bundle

import (
	"fmt"
	"path"
	"path/filepath"
)

const (
	// BuildDirName is the scratch directory recreated on every build.
	BuildDirName = "build"
	// DistDirName is the directory that receives finished bundles.
	DistDirName = "dist"
	// StageDirName is the per-platform payload directory under build/.
	StageDirName = "payload"
	// ReportFileName is the machine-readable build report written under dist/.
	ReportFileName = "build-report.json"
)

// Layout computes every path the build pipeline touches for one artifact
// on one platform. All methods are pure so callers can reason about the
// tree before anything is created on disk.
type Layout struct {
	// Root is the project directory that contains the bundle manifest.
	Root string
	// Name is the artifact name, for example "LeadGen".
	Name string
	// Platform selects the bundle format.
	Platform Platform
}

// BuildDir returns the scratch directory shared by all platforms.
func (l Layout) BuildDir() string {
	return filepath.Join(l.Root, BuildDirName)
}

// PlatformBuildDir returns the scratch directory for this layout's platform.
func (l Layout) PlatformBuildDir() string {
	return filepath.Join(l.BuildDir(), l.Platform.String())
}

// StageDir returns the directory where the payload is staged
// before being assembled into a bundle.
func (l Layout) StageDir() string {
	return filepath.Join(l.PlatformBuildDir(), StageDirName)
}

// DistDir returns the directory that receives the finished bundle.
func (l Layout) DistDir() string {
	return filepath.Join(l.Root, DistDirName)
}

// BundlePath returns the root of the finished bundle:
// dist/<Name>.app on macOS, dist/<Name> on Windows.
func (l Layout) BundlePath() string {
	if l.Platform == PlatformDarwin {
		return filepath.Join(l.DistDir(), l.Name+".app")
	}

	return filepath.Join(l.DistDir(), l.Name)
}

// ContentsDir returns the directory holding bundle internals.
// On macOS that is <Name>.app/Contents, on Windows the bundle root itself.
func (l Layout) ContentsDir() string {
	if l.Platform == PlatformDarwin {
		return filepath.Join(l.BundlePath(), "Contents")
	}

	return l.BundlePath()
}

// ExecutablePath returns the absolute path of the bundled executable.
func (l Layout) ExecutablePath() string {
	if l.Platform == PlatformDarwin {
		return filepath.Join(l.ContentsDir(), "MacOS", l.Name)
	}

	return filepath.Join(l.BundlePath(), l.Name+l.Platform.ExecutableSuffix())
}

// ResourcesDir returns the directory that receives the staged payload:
// Contents/Resources on macOS, the bundle root on Windows.
func (l Layout) ResourcesDir() string {
	if l.Platform == PlatformDarwin {
		return filepath.Join(l.ContentsDir(), "Resources")
	}

	return l.BundlePath()
}

// InfoPlistPath returns the path of the Info.plist file on macOS
// and an empty string on platforms that have no property list.
func (l Layout) InfoPlistPath() string {
	if l.Platform != PlatformDarwin {
		return ""
	}

	return filepath.Join(l.ContentsDir(), "Info.plist")
}

// ReportPath returns the location of the build report.
func (l Layout) ReportPath() string {
	return filepath.Join(l.DistDir(), ReportFileName)
}

// ArchiveName returns the file name bundles are published under,
// for example "LeadGen-1.4.0-darwin.tar.gz".
func (l Layout) ArchiveName(version string) string {
	return fmt.Sprintf("%s-%s-%s.%s", l.Name, version, l.Platform, l.Platform.ArchiveExtension())
}

// RelativeExecutable returns the executable path relative to dist/
// with forward slashes, the form stored in release manifests.
func (l Layout) RelativeExecutable() string {
	if l.Platform == PlatformDarwin {
		return path.Join(l.Name+".app", "Contents", "MacOS", l.Name)
	}

	return path.Join(l.Name, l.Name+l.Platform.ExecutableSuffix())
}
