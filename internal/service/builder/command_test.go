package builder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
)

// scaffold creates a buildable project tree: entry executables for both
// platforms, template and static trees whose references all resolve, icons,
// and a forced include. It returns the project dir and the manifest path.
func scaffold(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()

	files := map[string]string{
		"bin/leadgen":          "#!/bin/sh\necho leadgen\n",
		"bin/leadgen.exe":      "MZ fake windows binary",
		"templates/index.html": `<html><head><link href="../static/css/app.css" rel="stylesheet"></head></html>`,
		"static/css/app.css":   "body { margin: 0 }",
		"assets/leadgen.icns":  "icns bytes",
		"assets/leadgen.ico":   "ico bytes",
		"settings.yaml":        "scrape_depth: 2\n",
	}

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}

	manifestPath := filepath.Join(dir, manifest.DefaultManifestFilename)
	m := &manifest.Manifest{
		Name:       "LeadGen",
		Identifier: "com.example.leadgen",
		Version:    "2.4.0",
		Data: []manifest.Mapping{
			{Source: "templates"},
			{Source: "static"},
		},
		Include: []manifest.Mapping{{Source: "settings.yaml"}},
		Runtime: manifest.RuntimeSpec{Requires: []string{"chromium"}},
		Platforms: map[bundle.Platform]manifest.PlatformSpec{
			bundle.PlatformDarwin:  {Entry: "bin/leadgen", Icon: "assets/leadgen.icns"},
			bundle.PlatformWindows: {Entry: "bin/leadgen.exe", Icon: "assets/leadgen.ico"},
		},
	}
	require.NoError(t, manifest.Save(manifestPath, m))

	return dir, manifestPath
}

// readReport decodes dist/build-report.json.
func readReport(t *testing.T, dir string) *Report {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, bundle.DistDirName, bundle.ReportFileName))
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(data, &report))

	return &report
}

// TestRunDarwin builds a macOS bundle and checks its layout.
func TestRunDarwin(t *testing.T) {
	t.Parallel()

	dir, manifestPath := scaffold(t)

	err := Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "darwin"})
	require.NoError(t, err)

	layout := bundle.Layout{Root: dir, Name: "LeadGen", Platform: bundle.PlatformDarwin}

	// The executable sits under Contents/MacOS with the executable bit set.
	info, err := os.Stat(layout.ExecutablePath())
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())

	if runtime.GOOS != "windows" {
		require.NotZero(t, info.Mode().Perm()&0o111)
	}

	// Info.plist carries the manifest identity.
	plist, err := os.ReadFile(layout.InfoPlistPath())
	require.NoError(t, err)
	require.Contains(t, string(plist), "<string>com.example.leadgen</string>")
	require.Contains(t, string(plist), "<string>2.4.0</string>")
	require.Contains(t, string(plist), "<string>LeadGen</string>")
	require.Contains(t, string(plist), "<string>leadgen.icns</string>")

	// The payload and icon land under Contents/Resources.
	for _, name := range []string{
		"templates/index.html",
		"static/css/app.css",
		"settings.yaml",
		"leadgen.icns",
	} {
		require.FileExists(t, filepath.Join(layout.ResourcesDir(), filepath.FromSlash(name)))
	}

	// The report records staged inputs and produced outputs.
	report := readReport(t, dir)
	require.Equal(t, "LeadGen", report.Name)
	require.Equal(t, "2.4.0", report.Version)
	require.Equal(t, "darwin", report.Platform)
	require.Contains(t, report.Inputs, "LeadGen")
	require.Contains(t, report.Inputs, "templates/index.html")
	require.Contains(t, report.Outputs, "LeadGen.app/Contents/MacOS/LeadGen")
	require.Contains(t, report.Outputs, "LeadGen.app/Contents/Info.plist")
	require.Empty(t, report.Warnings)
}

// TestRunWindows builds a Windows folder bundle and checks its layout.
func TestRunWindows(t *testing.T) {
	t.Parallel()

	dir, manifestPath := scaffold(t)

	err := Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "windows"})
	require.NoError(t, err)

	layout := bundle.Layout{Root: dir, Name: "LeadGen", Platform: bundle.PlatformWindows}

	require.FileExists(t, layout.ExecutablePath())
	require.Equal(t, filepath.Join(dir, "dist", "LeadGen", "LeadGen.exe"), layout.ExecutablePath())

	for _, name := range []string{
		"templates/index.html",
		"static/css/app.css",
		"settings.yaml",
		"leadgen.ico",
	} {
		require.FileExists(t, filepath.Join(layout.BundlePath(), filepath.FromSlash(name)))
	}

	report := readReport(t, dir)
	require.Equal(t, "windows", report.Platform)
	require.Contains(t, report.Outputs, "LeadGen/LeadGen.exe")
}

// TestRunRemovesPreviousOutput checks the idempotent re-run contract:
// stale build/ and dist/ contents disappear.
func TestRunRemovesPreviousOutput(t *testing.T) {
	t.Parallel()

	dir, manifestPath := scaffold(t)

	for _, stale := range []string{
		filepath.Join(dir, bundle.BuildDirName, "stale.txt"),
		filepath.Join(dir, bundle.DistDirName, "stale.txt"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	}

	err := Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "darwin"})
	require.NoError(t, err)

	require.NoFileExists(t, filepath.Join(dir, bundle.BuildDirName, "stale.txt"))
	require.NoFileExists(t, filepath.Join(dir, bundle.DistDirName, "stale.txt"))

	layout := bundle.Layout{Root: dir, Name: "LeadGen", Platform: bundle.PlatformDarwin}
	require.FileExists(t, layout.ExecutablePath())
}

// TestRunFailsOnMissingEntry aborts when the entry executable is absent.
func TestRunFailsOnMissingEntry(t *testing.T) {
	t.Parallel()

	dir, manifestPath := scaffold(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "bin", "leadgen")))

	err := Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "darwin"})
	require.Error(t, err)
	require.ErrorContains(t, err, "entry")
}

// TestRunAssetScan covers both scan modes: misses warn by default
// and fail the build in strict mode.
func TestRunAssetScan(t *testing.T) {
	t.Parallel()

	dir, manifestPath := scaffold(t)

	dangling := filepath.Join(dir, "templates", "broken.html")
	require.NoError(t,
		os.WriteFile(dangling, []byte(`<img src="../static/missing.png">`), 0o644))

	// Default mode: the build succeeds and records the miss as a warning.
	err := Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "darwin"})
	require.NoError(t, err)

	report := readReport(t, dir)
	require.Len(t, report.Warnings, 1)
	require.Contains(t, report.Warnings[0], "static/missing.png")

	// Strict mode: the same miss aborts the build.
	err = Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "darwin", Strict: true})
	require.ErrorIs(t, err, errMissingAssets)
}

// TestRunUnknownPlatform rejects platforms the bundler cannot target.
func TestRunUnknownPlatform(t *testing.T) {
	t.Parallel()

	_, manifestPath := scaffold(t)

	err := Run(context.Background(), &Options{ManifestPath: manifestPath, Platform: "solaris"})
	require.ErrorIs(t, err, bundle.ErrUnsupportedPlatform)
}
