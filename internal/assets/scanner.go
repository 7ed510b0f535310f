package assets

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
)

// Missing is one template reference whose target is absent from the payload.
type Missing struct {
	// Template is the payload-relative path of the HTML file holding the reference.
	Template string
	// Reference is the raw attribute value as written in the template.
	Reference string
	// Resolved is the payload-relative path that was checked.
	Resolved string
}

// Report summarizes one scan over a staged payload.
type Report struct {
	// Templates is the number of HTML files scanned.
	Templates int
	// References is the number of local references checked.
	References int
	// Missing lists references whose targets are absent from the payload.
	Missing []Missing
}

// Scan walks the staged payload, parses every HTML template, and checks that
// each local href/src/srcset reference points at a file inside the payload.
// References to external URLs, fragments, and server-side template
// expressions are skipped.
func Scan(ctx context.Context, payloadDir string) (*Report, error) {
	report := new(Report)

	err := filepath.WalkDir(payloadDir, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() || !isTemplate(entry.Name()) {
			return nil
		}

		relativePath, err := filepath.Rel(payloadDir, filePath)
		if err != nil {
			return fmt.Errorf("relativize template path: %w", err)
		}

		relativePath = filepath.ToSlash(relativePath)

		missing, checked, err := scanTemplate(payloadDir, filePath, relativePath)
		if err != nil {
			return err
		}

		report.Templates++
		report.References += checked
		report.Missing = append(report.Missing, missing...)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan payload: %w", err)
	}

	// Deterministic order for logs and reports.
	sort.Slice(report.Missing, func(i, j int) bool {
		if report.Missing[i].Template != report.Missing[j].Template {
			return report.Missing[i].Template < report.Missing[j].Template
		}

		return report.Missing[i].Resolved < report.Missing[j].Resolved
	})

	logger.DebugKV(ctx, "asset scan finished",
		"templates", report.Templates,
		"references", report.References,
		"missing", len(report.Missing))

	return report, nil
}

// scanTemplate parses one HTML file and checks its local references.
func scanTemplate(payloadDir, filePath, relativePath string) ([]Missing, int, error) {
	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return nil, 0, fmt.Errorf("open template %s: %w", relativePath, err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, 0, fmt.Errorf("parse template %s: %w", relativePath, err)
	}

	var (
		missing []Missing
		checked int
		seen    = make(map[string]struct{})
	)

	check := func(reference string) {
		resolved, ok := resolveLocal(relativePath, reference)
		if !ok {
			return
		}

		if _, dup := seen[resolved]; dup {
			return
		}

		seen[resolved] = struct{}{}
		checked++

		if _, err := os.Stat(filepath.Join(payloadDir, filepath.FromSlash(resolved))); err != nil {
			missing = append(missing, Missing{
				Template:  relativePath,
				Reference: reference,
				Resolved:  resolved,
			})
		}
	}

	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			check(href)
		}
	})

	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		if src, exists := s.Attr("src"); exists {
			check(src)
		}
	})

	doc.Find("[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, exists := s.Attr("srcset")
		if !exists {
			return
		}

		// A srcset is a comma-separated list of "url descriptor" pairs.
		for _, candidate := range strings.Split(srcset, ",") {
			if fields := strings.Fields(candidate); len(fields) > 0 {
				check(fields[0])
			}
		}
	})

	return missing, checked, nil
}

// resolveLocal turns a raw attribute value into a payload-relative slash path.
// It reports false for references that cannot name a payload file:
// external URLs, fragments, and server-side template expressions.
func resolveLocal(templatePath, reference string) (string, bool) {
	reference = strings.TrimSpace(reference)
	if reference == "" || strings.HasPrefix(reference, "#") {
		return "", false
	}

	// Server-side expressions ({{ url_for(...) }} and friends)
	// are resolved at render time, not by the bundler.
	if strings.Contains(reference, "{{") || strings.Contains(reference, "{%") {
		return "", false
	}

	parsed, err := url.Parse(reference)
	if err != nil {
		return "", false
	}

	// Skip http(s), mailto, tel, data and protocol-relative URLs.
	if parsed.Scheme != "" || parsed.Host != "" || parsed.Path == "" {
		return "", false
	}

	if path.IsAbs(parsed.Path) {
		return path.Clean(strings.TrimPrefix(parsed.Path, "/")), true
	}

	resolved := path.Join(path.Dir(templatePath), parsed.Path)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", false
	}

	return resolved, true
}

// isTemplate reports whether the file name looks like an HTML template.
func isTemplate(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}
