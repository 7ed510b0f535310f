package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkhalid89/leadgen-bundler/internal/assets"
	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
)

// Options contains inputs for the build entry point.
type Options struct {
	// ManifestPath is the bundle manifest location (defaults to leadgen-bundle.yaml).
	ManifestPath string
	// Platform is the target platform name. Defaults to the host platform.
	Platform string
	// Root is the project directory the build/ and dist/ trees live under.
	// Defaults to the manifest's directory.
	Root string
	// SkipPrebuild skips the manifest's prebuild script.
	SkipPrebuild bool
	// Strict promotes asset scan misses to build failures
	// even when the manifest does not.
	Strict bool
}

// builder assembles one platform bundle from a resolved manifest.
// It is unexported—callers should use Run, which encapsulates setup and validation.
type builder struct {
	// resolved is the per-platform manifest view driving the build.
	resolved *manifest.Resolved
	// layout computes every path the pipeline touches.
	layout bundle.Layout
	// root is the project directory mapping sources are relative to.
	root string
	// skipPrebuild disables the prebuild script for this run.
	skipPrebuild bool
	// strict promotes asset scan misses to failures.
	strict bool
	// report collects inputs, outputs, and warnings for build-report.json.
	report *Report
}

// errMissingAssets indicates that a strict asset scan found dangling references.
var errMissingAssets = errors.New("templates reference missing assets")

// Run executes the build workflow: resolve the manifest for the target
// platform, recreate build/ and dist/, run the prebuild script, stage the
// payload, scan it, and assemble the platform bundle.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	b, err := newBuilder(opts)
	if err != nil {
		return fmt.Errorf("initialize build: %w", err)
	}

	if err = b.Run(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	// The completion banner is only logged when every stage succeeded.
	logger.InfoKV(ctx, "Build complete",
		"artifact", b.layout.BundlePath(),
		"report", b.layout.ReportPath())

	return nil
}

// newBuilder loads and resolves the manifest and prepares the pipeline state.
func newBuilder(opts *Options) (*builder, error) {
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.DefaultManifestFilename
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	platform, err := targetPlatform(opts.Platform)
	if err != nil {
		return nil, err
	}

	resolved, err := m.Resolved(platform)
	if err != nil {
		return nil, err
	}

	root := opts.Root
	if root == "" {
		root = filepath.Dir(manifestPath)
	}

	return &builder{
		resolved:     resolved,
		layout:       resolved.Layout(root),
		root:         root,
		skipPrebuild: opts.SkipPrebuild,
		strict:       opts.Strict || resolved.Assets.Strict,
		report:       newReport(resolved),
	}, nil
}

// targetPlatform parses the requested platform, falling back to the host.
func targetPlatform(name string) (bundle.Platform, error) {
	if name == "" {
		return bundle.HostPlatform()
	}

	return bundle.ParsePlatform(name)
}

// Run drives the pipeline stages in order. Every stage is fail-fast:
// the first error aborts the build and the exit code reflects it.
func (b *builder) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Building bundle",
		"name", b.resolved.Name,
		"version", b.resolved.Version,
		"platform", b.resolved.Platform.String())

	for _, requirement := range b.resolved.Runtime.Requires {
		logger.Infof(ctx, "Runtime requirement (not enforced at build time): %s", requirement)
	}

	if err := b.cleanTrees(ctx); err != nil {
		return err
	}

	if err := b.runPrebuild(ctx); err != nil {
		return err
	}

	if err := b.stagePayload(ctx); err != nil {
		return err
	}

	if err := b.scanAssets(ctx); err != nil {
		return err
	}

	if err := b.assemble(ctx); err != nil {
		return err
	}

	if err := b.writeReport(ctx); err != nil {
		return err
	}

	return nil
}

// cleanTrees removes any pre-existing build/ and dist/ trees so that
// re-running the build never mixes old and new output, then recreates
// the directories the pipeline needs. It runs before the prebuild script
// so entries the script drops under build/ survive until staging.
func (b *builder) cleanTrees(ctx context.Context) error {
	for _, dir := range []string{b.layout.BuildDir(), b.layout.DistDir()} {
		logger.DebugKV(ctx, "Removing tree", "path", dir)

		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	for _, dir := range []string{b.layout.StageDir(), b.layout.DistDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}

// scanAssets validates template references inside the staged payload.
// Misses are warnings unless strict mode promotes them to a failure.
func (b *builder) scanAssets(ctx context.Context) error {
	if !b.resolved.Assets.Scan {
		logger.Debug(ctx, "Asset scan disabled by manifest")

		return nil
	}

	report, err := assets.Scan(ctx, b.layout.StageDir())
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Asset scan finished",
		"templates", report.Templates,
		"references", report.References,
		"missing", len(report.Missing))

	if len(report.Missing) == 0 {
		return nil
	}

	descriptions := make([]string, 0, len(report.Missing))
	for _, missing := range report.Missing {
		descriptions = append(descriptions,
			fmt.Sprintf("%s: %q resolves to %s", missing.Template, missing.Reference, missing.Resolved))
	}

	if b.strict {
		return fmt.Errorf("%w:\n%s", errMissingAssets, strings.Join(descriptions, "\n"))
	}

	for _, description := range descriptions {
		logger.Warnf(ctx, "Missing asset: %s", description)
	}

	b.report.Warnings = append(b.report.Warnings, descriptions...)

	return nil
}
