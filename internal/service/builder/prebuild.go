package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
)

// errPrebuildTimeout indicates the prebuild script exceeded its time limit.
var errPrebuildTimeout = errors.New("prebuild script timed out")

// runPrebuild executes the manifest's prebuild script through the platform
// shell with a bounded context. Output is captured and replayed into the log
// so failures carry the script's own diagnostics.
func (b *builder) runPrebuild(ctx context.Context) error {
	if b.resolved.Prebuild == nil || b.resolved.Prebuild.Script == "" {
		return nil
	}

	if b.skipPrebuild {
		logger.Warn(ctx, "Skipping prebuild script on request")

		return nil
	}

	var (
		script  = b.resolved.Prebuild.Script
		timeout = b.resolved.Prebuild.Timeout()
	)

	logger.InfoKV(ctx, "Running prebuild script", "script", script, "timeout", timeout)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(execCtx, script)
	cmd.Dir = b.root
	cmd.Env = append(os.Environ(),
		"BUNDLE_NAME="+b.resolved.Name,
		"BUNDLE_VERSION="+b.resolved.Version,
		"BUNDLE_PLATFORM="+b.resolved.Platform.String(),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()

	if output := strings.TrimSpace(stdout.String()); output != "" {
		logger.Debugf(ctx, "Prebuild output:\n%s", output)
	}

	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v", errPrebuildTimeout, timeout)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("prebuild script failed (exit %d): %w\nstderr: %s",
				exitErr.ExitCode(), err, strings.TrimSpace(stderr.String()))
		}

		return fmt.Errorf("run prebuild script: %w", err)
	}

	logger.InfoKV(ctx, "Prebuild script finished", "duration", time.Since(started))

	return nil
}

// shellCommand wraps a script in the platform shell:
// cmd.exe on Windows, /bin/sh everywhere else.
func shellCommand(ctx context.Context, script string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd.exe", "/C", script)
	}

	//nolint:gosec // G204: script execution is the point, the manifest author controls it.
	return exec.CommandContext(ctx, "/bin/sh", "-c", script)
}
