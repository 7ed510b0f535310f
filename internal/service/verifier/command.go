package verifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

var errVerificationFailed = errors.New("verification failed")

// Options contains inputs for the verify entry point.
type Options struct {
	// Dir is the directory holding the release manifest and bundle files.
	// Defaults to dist.
	Dir string
	// KeyPath optionally points to an armored PGP public key. When set, the
	// release manifest's detached signature is validated before any checksums.
	KeyPath string
}

// Report summarizes an integrity check of one directory tree.
type Report struct {
	// Verified counts files whose checksums matched.
	Verified int
	// SignatureChecked reports whether a detached signature was validated.
	SignatureChecked bool
	// Mismatches lists files that failed verification.
	Mismatches []Mismatch
}

// Mismatch describes one file that failed verification.
type Mismatch struct {
	// Platform is the release section the file belongs to.
	Platform bundle.Platform
	// Path is the dist-relative file path.
	Path string
	// Reason is a short cause, for example "missing" or "checksum mismatch".
	Reason string
}

// verifier checks an on-disk tree against its release manifest.
type verifier struct {
	// dir is the tree being verified.
	dir string
	// keyPath is the optional public key location.
	keyPath string
	// release is the manifest being verified against.
	release *bundle.Release
	// report accumulates per-file outcomes.
	report *Report
}

// Run verifies a tree against its release manifest and returns an error
// when the signature or any file fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	v, err := newVerifier(ctx, opts)
	if err != nil {
		return err
	}

	report, err := v.Run(ctx)
	if err != nil {
		return err
	}

	if len(report.Mismatches) > 0 {
		for _, mismatch := range report.Mismatches {
			logger.WarnKV(ctx, "Verification mismatch",
				"platform", mismatch.Platform,
				"path", mismatch.Path,
				"reason", mismatch.Reason)
		}

		return fmt.Errorf("%w: %d of %d files failed",
			errVerificationFailed,
			len(report.Mismatches),
			report.Verified+len(report.Mismatches))
	}

	logger.InfoKV(ctx, "Verification passed",
		"files", report.Verified,
		"signature_checked", report.SignatureChecked)

	return nil
}

// newVerifier loads the release manifest from the target directory.
func newVerifier(ctx context.Context, opts *Options) (*verifier, error) {
	dir := opts.Dir
	if dir == "" {
		dir = bundle.DistDirName
	}

	repo := releaserepo.NewFileRepository(filepath.Join(dir, releaserepo.DefaultFilename))

	release, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load release manifest: %w", err)
	}

	return &verifier{
		dir:     dir,
		keyPath: opts.KeyPath,
		release: release,
		report:  new(Report),
	}, nil
}

// Run validates the signature when requested, then every file and archive.
func (v *verifier) Run(ctx context.Context) (*Report, error) {
	if v.keyPath != "" {
		if err := v.checkSignature(ctx); err != nil {
			return nil, err
		}
	}

	logger.InfoKV(ctx, "Verifying files against the release manifest",
		"name", v.release.Name, "version", v.release.Version)

	for _, platform := range bundle.Platforms() {
		section, ok := v.release.Platforms[platform]
		if !ok || section == nil {
			continue
		}

		v.verifySection(ctx, platform, section)
	}

	return v.report, nil
}

// verifySection checks one platform's files and archive in stable order.
func (v *verifier) verifySection(ctx context.Context, platform bundle.Platform, section *bundle.PlatformRelease) {
	fileNames := make([]string, 0, len(section.Files))
	for fileName := range section.Files {
		fileNames = append(fileNames, fileName)
	}

	sort.Strings(fileNames)

	for _, fileName := range fileNames {
		v.verifyFile(platform, fileName, section.Files[fileName])
	}

	v.verifyArchive(ctx, platform, section.Archive)
}

// verifyFile recomputes one file's checksum and records the outcome.
func (v *verifier) verifyFile(platform bundle.Platform, fileName, wantChecksum string) {
	path := filepath.Join(v.dir, filepath.FromSlash(fileName))

	if _, err := os.Stat(path); err != nil {
		reason := "missing"
		if !errors.Is(err, os.ErrNotExist) {
			reason = fmt.Sprintf("unreadable: %v", err)
		}

		v.fail(platform, fileName, reason)

		return
	}

	checksum, err := updater.GetFileChecksum(path)
	if err != nil {
		v.fail(platform, fileName, fmt.Sprintf("unreadable: %v", err))

		return
	}

	if base64.StdEncoding.EncodeToString(checksum) != wantChecksum {
		v.fail(platform, fileName, "checksum mismatch")

		return
	}

	v.report.Verified++
}

// verifyArchive checks the published archive when it is present on disk.
// Installed trees usually carry only the unpacked files, so a missing
// archive is not a failure.
func (v *verifier) verifyArchive(ctx context.Context, platform bundle.Platform, archive *bundle.Archive) {
	if archive == nil {
		return
	}

	path := filepath.Join(v.dir, archive.Name)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.DebugKV(ctx, "Archive not present, skipping", "name", archive.Name)

		return
	} else if err != nil {
		v.fail(platform, archive.Name, fmt.Sprintf("unreadable: %v", err))

		return
	}

	if info.Size() != archive.Size {
		v.fail(platform, archive.Name, "size mismatch")

		return
	}

	checksum, err := updater.GetFileChecksum(path)
	if err != nil {
		v.fail(platform, archive.Name, fmt.Sprintf("unreadable: %v", err))

		return
	}

	if base64.StdEncoding.EncodeToString(checksum) != archive.Checksum {
		v.fail(platform, archive.Name, "checksum mismatch")

		return
	}

	v.report.Verified++
}

// fail records one mismatch.
func (v *verifier) fail(platform bundle.Platform, path, reason string) {
	v.report.Mismatches = append(v.report.Mismatches, Mismatch{
		Platform: platform,
		Path:     path,
		Reason:   reason,
	})
}
