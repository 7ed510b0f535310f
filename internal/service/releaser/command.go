package releaser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
	"github.com/arkhalid89/leadgen-bundler/internal/service/common"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

// FeedTokenEnvVar names the environment variable holding the feed upload token.
const FeedTokenEnvVar = "LEADGEN_FEED_TOKEN"

var (
	errUpdaterRunning = errors.New("the updater is running now")
	errNoBundles      = errors.New("no built bundles found under dist")
)

// Options contains inputs for the release entry point.
type Options struct {
	// ManifestPath is an optional path to the bundle manifest (defaults to leadgen-bundle.yaml).
	ManifestPath string
	// Root is the project root holding dist/. Defaults to the manifest directory.
	Root string
	// SignKeyPath optionally points to an armored PGP private key for signing the manifest.
	SignKeyPath string
	// PushURL optionally names the feed to upload the release to.
	PushURL string
}

// releaser prepares release metadata and archives for distribution.
// It is unexported—callers should use Run, which encapsulates setup and validation.
type releaser struct {
	// m is the loaded bundle manifest.
	m *manifest.Manifest
	// root is the project root containing dist/.
	root string
	// distDir is the directory the built bundles live in.
	distDir string
	// release is the manifest being assembled.
	release *bundle.Release
	// signKeyPath is the optional signing key location.
	signKeyPath string
	// pushURL is the optional feed URL to upload to.
	pushURL string
	// uploads lists dist-relative files to publish.
	uploads []string
}

// Run executes the release workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	r, err := newReleaser(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize releaser: %w", err)
	}

	if err = r.Run(ctx); err != nil {
		return fmt.Errorf("release failed: %w", err)
	}

	logger.Info(ctx, "Release completed successfully")

	return nil
}

// newReleaser loads the bundle manifest and locates the dist directory.
func newReleaser(ctx context.Context, opts *Options) (*releaser, error) {
	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	root := opts.Root
	if root == "" {
		manifestPath := opts.ManifestPath
		if manifestPath == "" {
			manifestPath = manifest.DefaultManifestFilename
		}

		root = filepath.Dir(manifestPath)
	}

	if updater.IsRunningNow(ctx, root) {
		return nil, errUpdaterRunning
	}

	return &releaser{
		m:           m,
		root:        root,
		distDir:     filepath.Join(root, bundle.DistDirName),
		signKeyPath: opts.SignKeyPath,
		pushURL:     opts.PushURL,
	}, nil
}

// Run assembles and writes the release manifest, archives, optional
// signature, and optionally pushes everything to a feed.
func (r *releaser) Run(ctx context.Context) error {
	logger.Info(ctx, "Preparing release manifest")

	if err := r.fillRelease(ctx); err != nil {
		return err
	}

	manifestPath := filepath.Join(r.distDir, releaserepo.DefaultFilename)

	logger.InfoKV(ctx, "Saving release manifest", "path", manifestPath)

	repo := releaserepo.NewFileRepository(manifestPath)
	if err := repo.Save(ctx, r.release); err != nil {
		return err
	}

	r.uploads = append(r.uploads, releaserepo.DefaultFilename)

	if r.signKeyPath != "" {
		signatureName, err := r.signRelease(ctx, manifestPath)
		if err != nil {
			return err
		}

		r.uploads = append(r.uploads, signatureName)
	}

	if r.pushURL != "" {
		if err := r.push(ctx); err != nil {
			return err
		}
	}

	r.printNextSteps(ctx)

	return nil
}

// fillRelease computes checksums and archives for every built platform tree.
func (r *releaser) fillRelease(ctx context.Context) error {
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	release := &bundle.Release{
		Name:      r.m.Name,
		Version:   r.m.Version,
		CreatedAt: time.Now().UTC(),
		Builder:   actor,
		Platforms: make(map[bundle.Platform]*bundle.PlatformRelease, len(bundle.Platforms())),
	}

	for _, platform := range bundle.Platforms() {
		layout := bundle.Layout{Root: r.root, Name: r.m.Name, Platform: platform}

		if _, err = os.Stat(layout.BundlePath()); errors.Is(err, os.ErrNotExist) {
			logger.DebugKV(ctx, "No bundle for platform, skipping", "platform", platform)
			continue
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", layout.BundlePath(), err)
		}

		var section *bundle.PlatformRelease

		section, err = r.buildPlatformSection(ctx, layout)
		if err != nil {
			return fmt.Errorf("release %s: %w", platform, err)
		}

		release.Platforms[platform] = section
	}

	if len(release.Platforms) == 0 {
		return errNoBundles
	}

	r.release = release

	return nil
}

// buildPlatformSection checksums one bundle tree and packages its archive.
func (r *releaser) buildPlatformSection(ctx context.Context, layout bundle.Layout) (*bundle.PlatformRelease, error) {
	files, err := r.checksumTree(layout.BundlePath())
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Checksummed bundle files",
		"platform", layout.Platform, "files", len(files))

	archive, err := r.buildArchive(ctx, layout)
	if err != nil {
		return nil, err
	}

	for name := range files {
		r.uploads = append(r.uploads, name)
	}

	r.uploads = append(r.uploads, archive.Name)

	return &bundle.PlatformRelease{
		Files:      files,
		Executable: layout.RelativeExecutable(),
		Archive:    archive,
	}, nil
}

// checksumTree maps dist-relative paths to base64 SHA-512 checksums.
func (r *releaser) checksumTree(bundleDir string) (map[string]string, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(bundleDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(r.distDir, path)
		if err != nil {
			return err
		}

		checksum, err := updater.GetFileChecksum(path)
		if err != nil {
			return err
		}

		files[filepath.ToSlash(rel)] = base64.StdEncoding.EncodeToString(checksum)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// printNextSteps logs human-readable guidance for next actions with the created files.
func (r *releaser) printNextSteps(ctx context.Context) {
	files := append([]string(nil), r.uploads...)
	sort.Strings(files)

	var builder strings.Builder

	if r.pushURL != "" {
		builder.WriteString("The following files were uploaded to ")
		builder.WriteString(r.pushURL)
	} else {
		builder.WriteString("You should upload the following files to your update feed")
	}

	builder.WriteString(":\n")

	for i, name := range files {
		if i == 0 {
			builder.WriteString(name)
		} else {
			builder.WriteString(",\n")
			builder.WriteString(name)
		}
	}

	builder.WriteString("\n\nOn end-user machines, point ")
	builder.WriteString(updater.DefaultSettingsFilename)
	builder.WriteString(" at the feed and schedule: leadgen-updater")

	logger.Info(ctx, builder.String())
}
