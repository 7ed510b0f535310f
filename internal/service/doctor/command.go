package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
)

// Options contains inputs for the doctor entry point.
type Options struct {
	// ManifestPath is the bundle manifest location (defaults to leadgen-bundle.yaml).
	ManifestPath string
	// Root is the project directory the manifest's paths are relative to.
	// Defaults to the manifest's directory.
	Root string
}

// Check is one line of the environment report.
type Check struct {
	// Subject is what was examined, for example "entry (darwin)".
	Subject string
	// OK reports whether the subject is usable as-is.
	OK bool
	// Detail says where the subject was found or why it is not usable.
	Detail string
}

// Run inspects the build inputs and the host environment and reports what it
// finds. Findings never fail the command: the only error is an unreadable
// manifest. Runtime requirements are reported informationally, the build
// itself never enforces them.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.DefaultManifestFilename
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	root := opts.Root
	if root == "" {
		root = filepath.Dir(manifestPath)
	}

	logger.InfoKV(ctx, "Examining build inputs",
		"name", m.Name, "version", m.Version, "manifest", manifestPath)

	checks := examine(m, root)

	passed := 0

	for _, check := range checks {
		if check.OK {
			passed++

			logger.InfoKV(ctx, "Check passed", "subject", check.Subject, "detail", check.Detail)

			continue
		}

		logger.WarnKV(ctx, "Check failed", "subject", check.Subject, "detail", check.Detail)
	}

	logger.InfoKV(ctx, "Doctor finished",
		"passed", passed, "failed", len(checks)-passed)

	return nil
}

// examine collects every check for the manifest: per-platform entry and
// icon, shared payload mappings, and runtime requirements.
func examine(m *manifest.Manifest, root string) []Check {
	var checks []Check

	for _, platform := range bundle.Platforms() {
		resolved, err := m.Resolved(platform)
		if err != nil {
			checks = append(checks, Check{
				Subject: fmt.Sprintf("platform %s", platform),
				Detail:  err.Error(),
			})

			continue
		}

		checks = append(checks, checkFile(fmt.Sprintf("entry (%s)", platform), root, resolved.Entry))

		if resolved.Icon != "" {
			checks = append(checks, checkFile(fmt.Sprintf("icon (%s)", platform), root, resolved.Icon))
		}
	}

	// Data and include mappings are shared across platforms, check them once.
	for _, mapping := range m.Data {
		checks = append(checks, checkPath("data "+mapping.Source, root, mapping.Source))
	}

	for _, mapping := range m.Include {
		checks = append(checks, checkPath("include "+mapping.Source, root, mapping.Source))
	}

	for _, requirement := range m.Runtime.Requires {
		checks = append(checks, checkRequirement(requirement))
	}

	return checks
}

// checkFile verifies a manifest path points at a regular file.
func checkFile(subject, root, path string) Check {
	resolved := resolvePath(root, path)

	info, err := os.Stat(resolved)
	if err != nil {
		return Check{Subject: subject, Detail: err.Error()}
	}

	if !info.Mode().IsRegular() {
		return Check{Subject: subject, Detail: resolved + " is not a regular file"}
	}

	return Check{Subject: subject, OK: true, Detail: resolved}
}

// checkPath verifies a manifest path exists, file or directory.
func checkPath(subject, root, path string) Check {
	resolved := resolvePath(root, path)

	if _, err := os.Stat(resolved); err != nil {
		return Check{Subject: subject, Detail: err.Error()}
	}

	return Check{Subject: subject, OK: true, Detail: resolved}
}

// checkRequirement looks up one declared runtime requirement on this host.
// Browser requirements search the OS-specific install locations, everything
// else is looked up on PATH.
func checkRequirement(name string) Check {
	subject := "runtime requirement " + name

	if isBrowserRequirement(name) {
		if path, has := launcher.LookPath(); has {
			return Check{Subject: subject, OK: true, Detail: path}
		}

		return Check{Subject: subject, Detail: "no local browser installation found"}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return Check{Subject: subject, Detail: err.Error()}
	}

	return Check{Subject: subject, OK: true, Detail: path}
}

// isBrowserRequirement reports whether a requirement names the
// Chromium-family browser the packaged scrapers drive.
func isBrowserRequirement(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "browser", "chrome", "chromium", "google-chrome":
		return true
	default:
		return false
	}
}

// resolvePath turns a manifest-relative path into a root-joined one.
// Absolute paths pass through untouched.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(root, path)
}
