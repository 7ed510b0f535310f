package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	"github.com/arkhalid89/leadgen-bundler/internal/service/updater"
)

// Options contains inputs for the run entry point.
type Options struct {
	// ManifestPath is the bundle manifest location (defaults to leadgen-bundle.yaml).
	ManifestPath string
	// Platform is the target platform name. Defaults to the host platform.
	Platform string
	// Root is the project directory holding dist/. Defaults to the manifest's directory.
	Root string
	// Wait blocks until a running update finishes instead of failing immediately.
	Wait bool
}

// markerPollInterval is how often a pending update marker is rechecked while waiting.
const markerPollInterval = 2 * time.Second

var (
	// errUpdateInProgress is returned when an update marker is present and waiting is off.
	errUpdateInProgress = errors.New("an update is in progress")
	// errBundleMissing is returned when no built bundle exists for the platform.
	errBundleMissing = errors.New("no built bundle found")
	// errHostMismatch is returned when the bundle targets a different operating system.
	errHostMismatch = errors.New("bundle platform does not match this host")
)

// Run locates the built bundle for the requested platform and launches it.
// When an update is being applied, the launch either fails immediately or,
// with Wait set, blocks until the update marker disappears.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "leadgen-bundler")

	layout, err := locateBundle(opts)
	if err != nil {
		return err
	}

	if err = awaitUpdater(ctx, layout.Root, opts.Wait); err != nil {
		return err
	}

	executableName := filepath.Base(layout.ExecutablePath())

	running, err := isProcessRunning(executableName)
	if err != nil {
		logger.WarnKV(ctx, "Unable to scan running processes", "error", err)
	} else if running {
		logger.WarnKV(ctx, "An instance appears to be running already",
			"executable", executableName)
	}

	cmd, err := launchCommand(ctx, layout)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Launching bundle", "path", layout.BundlePath())

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("launch bundle: %w", err)
	}

	return nil
}

// locateBundle resolves the manifest and checks the built bundle exists.
func locateBundle(opts *Options) (bundle.Layout, error) {
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.DefaultManifestFilename
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return bundle.Layout{}, err
	}

	platform, err := targetPlatform(opts.Platform)
	if err != nil {
		return bundle.Layout{}, err
	}

	root := opts.Root
	if root == "" {
		root = filepath.Dir(manifestPath)
	}

	layout := bundle.Layout{Root: root, Name: m.Name, Platform: platform}

	if _, err = os.Stat(layout.ExecutablePath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return layout, fmt.Errorf("%w for %s: run a build first", errBundleMissing, platform)
		}

		return layout, fmt.Errorf("bundled executable: %w", err)
	}

	return layout, nil
}

// targetPlatform parses the requested platform, falling back to the host.
func targetPlatform(name string) (bundle.Platform, error) {
	if name == "" {
		return bundle.HostPlatform()
	}

	return bundle.ParsePlatform(name)
}

// awaitUpdater handles a pending update marker: fail fast by default,
// or poll until the marker clears when waiting was requested.
func awaitUpdater(ctx context.Context, root string, wait bool) error {
	if !updater.IsRunningNow(ctx, root) {
		return nil
	}

	if !wait {
		return fmt.Errorf("%w: retry once it finishes or pass --wait", errUpdateInProgress)
	}

	logger.Info(ctx, "An update is in progress, waiting for it to finish")

	ticker := time.NewTicker(markerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for update: %w", ctx.Err())
		case <-ticker.C:
			if !updater.IsRunningNow(ctx, root) {
				logger.Info(ctx, "Update finished")

				return nil
			}
		}
	}
}

// isProcessRunning reports whether another process with the given
// executable name is alive.
func isProcessRunning(executableName string) (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == executableName {
			return true, nil
		}
	}

	return false, nil
}

// launchCommand builds the platform-appropriate launch invocation:
// `open` on a macOS .app bundle, `cmd /C start` on a Windows folder.
// The bundle must target the operating system the tool is running on.
func launchCommand(ctx context.Context, layout bundle.Layout) (*exec.Cmd, error) {
	host, err := bundle.HostPlatform()
	if err != nil {
		return nil, fmt.Errorf("run bundle: %w", err)
	}

	if host != layout.Platform {
		return nil, fmt.Errorf("%w: bundle targets %s", errHostMismatch, layout.Platform)
	}

	switch layout.Platform {
	case bundle.PlatformDarwin:
		return exec.CommandContext(ctx, "open", layout.BundlePath()), nil
	case bundle.PlatformWindows:
		return exec.CommandContext(ctx, "cmd.exe", "/C", "start", layout.ExecutablePath()), nil
	default:
		return nil, fmt.Errorf("%w: %q", bundle.ErrUnsupportedPlatform, layout.Platform)
	}
}
