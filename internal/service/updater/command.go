package updater

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
	"github.com/arkhalid89/leadgen-bundler/internal/service/common"
)

var (
	errUpdaterAlreadyRunning  = errors.New("the updater is already running")
	errSettingsNotInitialised = errors.New("settings are not initialized")
	errEmptyRelease           = errors.New("release manifest is empty")
	errNoPlatformSection      = errors.New("release has no section for this platform")
	errNoChecksum             = errors.New("checksum missing for file")
	errUnsupportedOS          = errors.New("os not supported")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// SettingsPath is the optional path to the settings YAML file.
	SettingsPath string
	// FeedURL bootstraps settings on a machine that has none yet.
	// When the settings file is missing and a feed URL is given,
	// the updater writes a fresh settings file before running.
	FeedURL string
}

// runner holds the mutable state and helpers for a single update execution.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type runner struct {
	settings           *Settings               // Feed location and install directory.
	platform           bundle.Platform         // Host platform the bundle section is picked for.
	client             *common.FeedClient      // Feed access.
	remote             *bundle.Release         // Manifest fetched from the feed.
	remoteSection      *bundle.PlatformRelease // Host platform slice of the remote manifest.
	local              *bundle.Release         // Manifest copy saved by the previous run, nil on first install.
	changedFiles       []string                // Dist-relative paths that need downloading.
	versionChanged     bool                    // Whether local and remote versions differ.
	temporaryDirectory string                  // Where new files are downloaded before apply.
	downloadedFiles    map[string]string       // Dist-relative path -> local temp path.
	markerPath         string                  // Concurrency marker location.
}

// Run executes the updater lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-updater")

	u, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer u.cleanup(ctx)

	if err = u.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Updater completed")

	return nil
}

// newRunner prepares the run and writes a marker to avoid concurrent runs.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	u := &runner{
		downloadedFiles: make(map[string]string, defaultMapCapacity),
	}

	settings, err := loadOrBootstrapSettings(opts)
	if err != nil {
		return u, err
	}

	u.settings = settings

	if IsRunningNow(ctx, settings.InstallDir) {
		return u, errUpdaterAlreadyRunning
	}

	u.markerPath = filepath.Join(settings.InstallDir, MarkerFilename)

	updateMarker, err := os.Create(u.markerPath)
	if err != nil {
		return u, err
	}

	if err = updateMarker.Close(); err != nil {
		return u, err
	}

	u.platform, err = bundle.HostPlatform()
	if err != nil {
		return u, err
	}

	var clientOpts []common.FeedOption
	if settings.Timeout > 0 {
		clientOpts = append(clientOpts, common.WithCallTimeout(settings.Timeout))
	}

	u.client, err = common.NewFeedClient(settings.FeedURL, clientOpts...)
	if err != nil {
		return u, err
	}

	return u, nil
}

// loadOrBootstrapSettings loads the settings file, creating it first
// when it does not exist and a feed URL was provided.
func loadOrBootstrapSettings(opts *Options) (*Settings, error) {
	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		settingsPath = DefaultSettingsFilename
	}

	if _, err := os.Stat(settingsPath); errors.Is(err, os.ErrNotExist) && opts.FeedURL != "" {
		settings := &Settings{FeedURL: opts.FeedURL}
		if err = SaveSettings(settingsPath, settings); err != nil {
			return nil, err
		}
	}

	return LoadSettings(settingsPath)
}

// Run executes the workflow for this runner instance:
// 1) Fetch the remote release manifest and pick the host platform section.
// 2) Compare versions against the local manifest copy.
// 3) Compare checksums of installed files.
// 4) Download and apply changed files if needed.
// 5) Save the fetched manifest as the new local copy.
// 6) Optionally restart the bundle executable.
func (u *runner) Run(ctx context.Context) error {
	if err := u.prepareForUpdate(ctx); err != nil {
		return err
	}

	if err := u.determineChanges(ctx); err != nil {
		return err
	}

	if err := u.executeUpdateIfNeeded(ctx); err != nil {
		return err
	}

	if !u.settings.Restart {
		return nil
	}

	logger.Info(ctx, "Starting the bundle executable")

	if err := u.startBundleExecutable(ctx); err != nil {
		return fmt.Errorf("start bundle executable: %w", err)
	}

	return nil
}

// prepareForUpdate fetches the remote manifest and loads the local copy.
func (u *runner) prepareForUpdate(ctx context.Context) error {
	logger.Info(ctx, "Downloading the release manifest from the feed")

	remote, err := u.client.FetchRelease(ctx)
	if err != nil {
		return fmt.Errorf("download release manifest: %w", err)
	}

	if remote == nil || len(remote.Platforms) == 0 {
		return errEmptyRelease
	}

	section, ok := remote.Platforms[u.platform]
	if !ok || section == nil {
		return fmt.Errorf("%w: %s", errNoPlatformSection, u.platform)
	}

	u.remote = remote
	u.remoteSection = section

	local, err := u.localRepository().Load(ctx)
	if err != nil && !errors.Is(err, releaserepo.ErrNotFound) {
		return fmt.Errorf("load local release manifest: %w", err)
	}

	u.local = local

	return nil
}

// determineChanges compares versions and checksums to build the download list.
func (u *runner) determineChanges(ctx context.Context) error {
	u.versionChanged = u.compareVersions(ctx)

	logger.Info(ctx, "Verifying installed files against the release checksums")

	fileNames := make([]string, 0, len(u.remoteSection.Files))
	for fileName := range u.remoteSection.Files {
		fileNames = append(fileNames, fileName)
	}

	// Stable order keeps the logs and downloads deterministic.
	sort.Strings(fileNames)

	for _, fileName := range fileNames {
		changed, err := u.fileChanged(fileName)
		if err != nil {
			return fmt.Errorf("verify %s: %w", fileName, err)
		}

		if changed {
			u.changedFiles = append(u.changedFiles, fileName)
		}
	}

	return nil
}

// compareVersions compares local vs remote versions and logs the decision.
func (u *runner) compareVersions(ctx context.Context) bool {
	if u.local == nil {
		logger.Info(ctx, "No local release manifest found, treating as first install")

		return true
	}

	switch cmp := bundle.CompareVersions(u.local.Version, u.remote.Version); {
	case cmp < 0:
		logger.InfoKV(ctx, "Newer version available",
			"local", u.local.Version, "remote", u.remote.Version)

		return true
	case cmp > 0:
		logger.WarnKV(ctx, "Feed offers an older version, applying it anyway",
			"local", u.local.Version, "remote", u.remote.Version)

		return true
	default:
		logger.InfoKV(ctx, "Versions match, checking file integrity",
			"version", u.local.Version)

		return false
	}
}

// fileChanged reports whether an installed file differs from the release checksum.
func (u *runner) fileChanged(fileName string) (bool, error) {
	remoteChecksumBase64, ok := u.remoteSection.Files[fileName]
	if !ok || remoteChecksumBase64 == "" {
		return false, errNoChecksum
	}

	remoteChecksum, err := base64.StdEncoding.DecodeString(remoteChecksumBase64)
	if err != nil {
		return false, err
	}

	localPath := u.installedPath(fileName)

	if _, err = os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, needs update.
			return true, nil
		}

		return false, err
	}

	localChecksum, err := GetFileChecksum(localPath)
	if err != nil {
		return false, err
	}

	return !bytes.Equal(remoteChecksum, localChecksum), nil
}

// executeUpdateIfNeeded downloads and applies changed files, then saves
// the fetched manifest as the new local copy.
func (u *runner) executeUpdateIfNeeded(ctx context.Context) error {
	if !u.versionChanged && len(u.changedFiles) == 0 {
		logger.Info(ctx, "No update required - version and files are current")

		return nil
	}

	if u.versionChanged && len(u.changedFiles) == 0 {
		// The version string moved but every file matches; only the
		// local manifest copy needs refreshing.
		logger.Info(ctx, "Files are current, refreshing the local release manifest")

		return u.saveLocalManifest(ctx)
	}

	logger.InfoKV(ctx, "Update required",
		"version_changed", u.versionChanged,
		"files_changed", len(u.changedFiles))

	logger.Info(ctx, "Downloading update files to a temporary folder")

	if err := u.downloadFiles(ctx); err != nil {
		return fmt.Errorf("download update files: %w", err)
	}

	logger.Info(ctx, "Terminating running bundle processes")

	if err := u.terminateBundleProcesses(); err != nil {
		return fmt.Errorf("terminate bundle processes: %w", err)
	}

	logger.Info(ctx, "Applying downloaded files")

	if err := u.applyFiles(ctx); err != nil {
		return fmt.Errorf("apply update files: %w", err)
	}

	return u.saveLocalManifest(ctx)
}

// downloadFiles fetches every changed file into a temporary directory.
func (u *runner) downloadFiles(ctx context.Context) error {
	temporaryDirectory, err := os.MkdirTemp("", "leadgen-updater-")
	if err != nil {
		return err
	}

	u.temporaryDirectory = temporaryDirectory

	for _, fileName := range u.changedFiles {
		outputFileName := filepath.Join(temporaryDirectory, filepath.FromSlash(fileName))

		if err = os.MkdirAll(filepath.Dir(outputFileName), 0o755); err != nil {
			return err
		}

		if err = u.client.DownloadFile(ctx, fileName, outputFileName); err != nil {
			return err
		}

		u.downloadedFiles[fileName] = outputFileName

		logger.InfoKV(ctx, "Downloaded file", "path", outputFileName)
	}

	return nil
}

// applyFiles installs downloaded files using go-update with checksum validation.
func (u *runner) applyFiles(ctx context.Context) error {
	for fileName, downloadedFileName := range u.downloadedFiles {
		logger.InfoKV(ctx, "Updating file", "file", fileName)

		data, err := os.ReadFile(filepath.Clean(downloadedFileName))
		if err != nil {
			return err
		}

		logger.Debug(ctx, "Looking for a checksum")

		checksumBase64, ok := u.remoteSection.Files[fileName]
		if !ok {
			return fmt.Errorf("checksum for %s: %w", fileName, errNoChecksum)
		}

		var checksum []byte

		checksum, err = base64.StdEncoding.DecodeString(checksumBase64)
		if err != nil {
			return err
		}

		targetPath := u.installedPath(fileName)

		if err = os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return err
		}

		if _, err = os.Stat(targetPath); err != nil && os.IsNotExist(err) {
			if _, err = os.Create(targetPath); err != nil {
				return err
			}
		}

		logger.Debug(ctx, "Applying update")

		options := &goupdate.Options{
			TargetPath: targetPath,
			TargetMode: DefaultFileMode,
			Checksum:   checksum,
			Hash:       DefaultChecksumFunction,
		}

		dataReader := bytes.NewReader(data)
		if err = goupdate.Apply(dataReader, *options); err != nil {
			return err
		}

		oldFileName := targetPath + ".old"
		if _, err = os.Stat(oldFileName); err == nil {
			_ = os.Remove(oldFileName)
		}
	}

	return nil
}

// saveLocalManifest records the applied release for the next comparison.
func (u *runner) saveLocalManifest(ctx context.Context) error {
	if err := u.localRepository().Save(ctx, u.remote); err != nil {
		return fmt.Errorf("save local release manifest: %w", err)
	}

	return nil
}

// terminateBundleProcesses kills running instances of the bundled app
// so their executables can be replaced.
func (u *runner) terminateBundleProcesses() error {
	executableName := filepath.Base(filepath.FromSlash(u.remoteSection.Executable))
	if executableName == "" || executableName == "." {
		return nil
	}

	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		processID := process.Pid()
		if processID == thisProcessID {
			continue
		}

		if process.Executable() != executableName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(processID)
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// startBundleExecutable launches the installed bundle.
func (u *runner) startBundleExecutable(ctx context.Context) error {
	executable := u.installedPath(u.remoteSection.Executable)

	logger.InfoKV(ctx, "Starting executable", "executable", executable)

	osLC := strings.ToLower(runtime.GOOS)
	switch {
	case strings.Contains(osLC, "linux") || strings.Contains(osLC, "darwin"):
		return exec.CommandContext(ctx, executable).Start()
	case strings.Contains(osLC, "windows"):
		return exec.CommandContext(ctx, "cmd.exe", "/C", "start", executable).Start()
	default:
		return fmt.Errorf("%s OS is not supported: %w", runtime.GOOS, errUnsupportedOS)
	}
}

// localRepository opens the manifest copy sitting next to the installed bundle.
func (u *runner) localRepository() *releaserepo.FileRepository {
	return releaserepo.NewFileRepository(
		filepath.Join(u.settings.InstallDir, releaserepo.DefaultFilename))
}

// installedPath maps a dist-relative manifest path onto the install directory.
func (u *runner) installedPath(fileName string) string {
	return filepath.Join(u.settings.InstallDir, filepath.FromSlash(fileName))
}

// cleanup removes temporary artifacts and the running marker.
func (u *runner) cleanup(ctx context.Context) {
	if u.markerPath != "" {
		if _, err := os.Stat(u.markerPath); err == nil {
			_ = os.Remove(u.markerPath)
		}
	}

	if u.temporaryDirectory != "" {
		if _, err := os.Stat(u.temporaryDirectory); err == nil {
			_ = os.RemoveAll(u.temporaryDirectory)
		}
	}

	logger.Info(ctx, "The updater has been stopped")
}
