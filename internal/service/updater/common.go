package updater

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"gopkg.in/yaml.v3"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// MarkerFilename marks that the updater is running right now to avoid parallel execution.
	MarkerFilename = "leadgen-update-marker.bin"

	// DefaultSettingsFilename is the default name of the updater settings file.
	DefaultSettingsFilename = "leadgen-updater.yaml"

	// DefaultFileMode is applied to files installed by the updater.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to calculate file hashes.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// DefaultSettingsPermissions restricts the settings file to its owner.
	DefaultSettingsPermissions os.FileMode = 0o600

	// baseUpdaterExecutable is the updater's own binary name;
	// platform helpers append the extension when needed.
	baseUpdaterExecutable = "leadgen-updater"

	// markerLifetime is the period after which a stale update marker is ignored.
	markerLifetime = 30 * time.Second

	// defaultMapCapacity is the default initial capacity for maps and slices.
	defaultMapCapacity = 16
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	// errFeedURLRequired is returned when the settings declare no feed.
	errFeedURLRequired = errors.New("feed URL must be provided")
)

// Settings hold everything the updater needs on an end-user machine.
type Settings struct {
	// FeedURL is the HTTP folder holding the release manifest and artifacts.
	FeedURL string `yaml:"feed_url"`
	// InstallDir is the directory the bundle is installed into.
	// Defaults to the directory the settings file lives in.
	InstallDir string `yaml:"install_dir"`
	// Restart relaunches the bundle executable after the run.
	Restart bool `yaml:"restart"`
	// Timeout is the duration for individual feed calls.
	Timeout time.Duration `yaml:"timeout"`
}

// LoadSettings reads updater settings from the provided path and validates them.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = DefaultSettingsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read updater settings: %w", err)
	}

	var settings Settings
	if err = yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal updater settings: %w", err)
	}

	if err = ValidateSettings(&settings, filepath.Dir(path)); err != nil {
		return nil, err
	}

	return &settings, nil
}

// SaveSettings writes updater settings to the provided path.
func SaveSettings(path string, settings *Settings) error {
	if path == "" {
		path = DefaultSettingsFilename
	}

	if err := ValidateSettings(settings, filepath.Dir(path)); err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal updater settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultSettingsPermissions); err != nil {
		return fmt.Errorf("write updater settings: %w", err)
	}

	return nil
}

// ValidateSettings checks required fields and applies defaults.
// The settings directory becomes the install dir when none is declared.
func ValidateSettings(settings *Settings, settingsDir string) error {
	if settings == nil {
		return errSettingsNotInitialised
	}

	if settings.FeedURL == "" {
		return errFeedURLRequired
	}

	if _, err := url.ParseRequestURI(settings.FeedURL); err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}

	if settings.InstallDir == "" {
		settings.InstallDir = settingsDir
	}

	if settings.InstallDir == "" {
		settings.InstallDir = "."
	}

	return nil
}

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	hash := hasher.Sum(nil)

	return hash, nil
}

// IsRunningNow checks for a marker file in the given directory
// and attempts recovery if it looks stale.
func IsRunningNow(ctx context.Context, dir string) bool {
	logger.Debug(ctx, "Checking for the presence of an update marker")

	markerPath := filepath.Join(dir, MarkerFilename)

	fileInfo, err := os.Stat(markerPath)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The update marker is too old, attempting cleanup")

		if err = terminateProcessByName(updaterExecutable()); err != nil {
			return true
		}

		if err = os.Remove(markerPath); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read update marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func updaterExecutable() string {
	return baseUpdaterExecutable + getExecutableExtension()
}
