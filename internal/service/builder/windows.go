package builder

import (
	"context"
	"fmt"
	"os"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
)

// assembleWindows lays out dist/<Name>/: the payload copied wholesale
// with <Name>.exe at the folder root, plus the icon next to it.
func (b *builder) assembleWindows(ctx context.Context) error {
	bundleDir := b.layout.BundlePath()

	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", bundleDir, err)
	}

	if err := copyPayload(b.layout.StageDir(), bundleDir); err != nil {
		return fmt.Errorf("place payload: %w", err)
	}

	// The folder layout is only valid with the exe at its root.
	if _, err := os.Stat(b.layout.ExecutablePath()); err != nil {
		return fmt.Errorf("bundled executable: %w", err)
	}

	if _, err := b.stageIcon(bundleDir); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Assembled Windows bundle", "path", b.layout.BundlePath())

	return nil
}
