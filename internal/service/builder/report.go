package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
)

// Report is the machine-readable build summary written to dist/build-report.json.
// Inputs are payload-relative, outputs dist-relative, both with byte sizes.
type Report struct {
	// Name is the artifact name.
	Name string `json:"name"`
	// Version is the artifact version.
	Version string `json:"version"`
	// Platform is the platform the bundle was assembled for.
	Platform string `json:"platform"`
	// CreatedAt is when the build ran.
	CreatedAt time.Time `json:"created_at"`
	// Inputs maps staged payload files to their sizes.
	Inputs map[string]ReportFile `json:"inputs"`
	// Outputs maps produced dist files to their sizes.
	Outputs map[string]ReportFile `json:"outputs"`
	// Warnings lists non-fatal findings, such as missing asset references.
	Warnings []string `json:"warnings,omitempty"`
}

// ReportFile describes one file in the report.
type ReportFile struct {
	// Bytes is the file size.
	Bytes int64 `json:"bytes"`
}

// newReport creates an empty report stamped with the build identity.
func newReport(resolved *manifest.Resolved) *Report {
	return &Report{
		Name:      resolved.Name,
		Version:   resolved.Version,
		Platform:  resolved.Platform.String(),
		CreatedAt: time.Now().UTC(),
		Inputs:    make(map[string]ReportFile),
		Outputs:   make(map[string]ReportFile),
	}
}

// collectInputs records every staged payload file.
func (r *Report) collectInputs(stageDir string) error {
	files, err := collectFiles(stageDir)
	if err != nil {
		return fmt.Errorf("collect inputs: %w", err)
	}

	r.Inputs = files

	return nil
}

// collectOutputs records every produced dist file.
func (r *Report) collectOutputs(distDir string) error {
	files, err := collectFiles(distDir)
	if err != nil {
		return fmt.Errorf("collect outputs: %w", err)
	}

	r.Outputs = files

	return nil
}

// collectFiles walks a tree and maps relative slash paths to sizes.
func collectFiles(dir string) (map[string]ReportFile, error) {
	files := make(map[string]ReportFile)

	err := filepath.WalkDir(dir, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", filePath, err)
		}

		relativePath, err := filepath.Rel(dir, filePath)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", filePath, err)
		}

		files[filepath.ToSlash(relativePath)] = ReportFile{Bytes: info.Size()}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// writeReport serializes the report next to the bundle.
func (b *builder) writeReport(ctx context.Context) error {
	data, err := json.MarshalIndent(b.report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode build report: %w", err)
	}

	if err = os.WriteFile(b.layout.ReportPath(), data, 0o644); err != nil {
		return fmt.Errorf("write build report: %w", err)
	}

	logger.DebugKV(ctx, "Build report written",
		"path", b.layout.ReportPath(),
		"inputs", len(b.report.Inputs),
		"outputs", len(b.report.Outputs))

	return nil
}
