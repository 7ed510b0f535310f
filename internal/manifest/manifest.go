package manifest

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/version"
)

// Manifest describes everything needed to assemble a bundle:
// the artifact identity, the entry executable, payload mappings,
// and per-platform overrides.
type Manifest struct {
	// Name is the artifact name, for example "LeadGen".
	Name string `yaml:"name"`
	// Identifier is the reverse-DNS bundle identifier stamped into Info.plist.
	Identifier string `yaml:"identifier"`
	// Version is the artifact version. Defaults to the tool's own stamped version.
	Version string `yaml:"version"`
	// Icon is the icon file path, overridable per platform.
	Icon string `yaml:"icon"`
	// Prebuild optionally names a script to run before staging.
	Prebuild *Prebuild `yaml:"prebuild"`
	// Entry is the executable to bundle, overridable per platform.
	Entry string `yaml:"entry"`
	// Data maps static asset trees into the payload (source → dest).
	Data []Mapping `yaml:"data"`
	// Include lists payload files no scan could discover, declared explicitly.
	Include []Mapping `yaml:"include"`
	// Runtime documents preconditions of the bundled app. Never enforced at build time.
	Runtime RuntimeSpec `yaml:"runtime"`
	// Assets configures template reference scanning. A missing section enables scanning.
	Assets *AssetsSpec `yaml:"assets"`
	// Platforms holds per-platform entry and icon overrides.
	Platforms map[bundle.Platform]PlatformSpec `yaml:"platforms"`
}

// Mapping copies one file or directory tree into the staged payload.
type Mapping struct {
	// Source is the path to copy from, relative to the project root.
	Source string `yaml:"source"`
	// Dest is the payload-relative destination. Defaults to Source.
	Dest string `yaml:"dest"`
}

// Prebuild is an optional script executed before staging begins.
type Prebuild struct {
	// Script is passed to the platform shell (sh -c or cmd /C).
	Script string `yaml:"script"`
	// TimeoutMinutes bounds the script run time. Defaults to DefaultPrebuildTimeoutMinutes.
	TimeoutMinutes int `yaml:"timeout_minutes"`
}

// Timeout returns the prebuild time limit as a duration.
func (p *Prebuild) Timeout() time.Duration {
	return time.Duration(p.TimeoutMinutes) * time.Minute
}

// RuntimeSpec documents what the bundled application needs at run time.
type RuntimeSpec struct {
	// Requires names external programs the app expects on the host,
	// for example "chromium". Reported by doctor, never enforced by build.
	Requires []string `yaml:"requires"`
}

// AssetsSpec configures the template asset-reference scan.
type AssetsSpec struct {
	// Scan enables scanning of staged HTML templates.
	Scan bool `yaml:"scan"`
	// Strict turns missing local references into build failures.
	// Strict implies Scan.
	Strict bool `yaml:"strict"`
}

// PlatformSpec overrides selected manifest fields for one platform.
type PlatformSpec struct {
	// Entry overrides the executable to bundle.
	Entry string `yaml:"entry"`
	// Icon overrides the icon file.
	Icon string `yaml:"icon"`
}

// Resolved is the manifest flattened for one platform:
// overrides applied, defaults filled in, ready for the build pipeline.
type Resolved struct {
	// Platform the view was resolved for.
	Platform bundle.Platform
	// Name is the artifact name.
	Name string
	// Identifier is the bundle identifier.
	Identifier string
	// Version is the artifact version.
	Version string
	// Icon is the icon path after overrides.
	Icon string
	// Entry is the executable path after overrides.
	Entry string
	// Prebuild is the optional prebuild script.
	Prebuild *Prebuild
	// Data are the payload tree mappings.
	Data []Mapping
	// Include are the forced include mappings.
	Include []Mapping
	// Runtime documents runtime preconditions.
	Runtime RuntimeSpec
	// Assets is the scan configuration.
	Assets AssetsSpec
}

// Layout returns the on-disk layout for this view under the given project root.
func (r *Resolved) Layout(root string) bundle.Layout {
	return bundle.Layout{Root: root, Name: r.Name, Platform: r.Platform}
}

const (
	// DefaultManifestFilename is the default bundle manifest name.
	DefaultManifestFilename = "leadgen-bundle.yaml"

	// DefaultPrebuildTimeoutMinutes bounds prebuild scripts that declare no timeout.
	DefaultPrebuildTimeoutMinutes = 10

	// DefaultFilePermissions is the file permission for written manifests.
	DefaultFilePermissions = 0o600
)

var (
	// errManifestIsNotSet is returned when a nil manifest is provided.
	errManifestIsNotSet = errors.New("manifest is not set")
	// errNameRequired is returned when the artifact name is missing.
	errNameRequired = errors.New("artifact name must be provided")
	// errNameIsPath is returned when the artifact name contains path separators.
	errNameIsPath = errors.New("artifact name must not contain path separators")
	// errIdentifierRequired is returned when the bundle identifier is missing.
	errIdentifierRequired = errors.New("bundle identifier must be provided")
	// errEntryRequired is returned when no entry executable is declared
	// either at the top level or for the requested platform.
	errEntryRequired = errors.New("entry executable must be provided")
	// errSourceRequired is returned when a mapping has no source.
	errSourceRequired = errors.New("mapping source must be provided")
	// errDestEscapes is returned when a mapping destination
	// would land outside the staged payload.
	errDestEscapes = errors.New("mapping destination escapes the payload")
)

// Load reads a bundle manifest from the provided path,
// validates it, and applies defaults.
func Load(path string) (*Manifest, error) {
	if path == "" {
		path = DefaultManifestFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// Save writes the manifest to the provided path.
func Save(path string, m *Manifest) error {
	if m == nil {
		return errManifestIsNotSet
	}

	if path == "" {
		path = DefaultManifestFilename
	}

	if err := Validate(m); err != nil {
		return err
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Validate checks required fields, normalizes mappings, and applies defaults.
func Validate(m *Manifest) error {
	if m == nil {
		return errManifestIsNotSet
	}

	if strings.TrimSpace(m.Name) == "" {
		return errNameRequired
	}

	if strings.ContainsAny(m.Name, `/\`) {
		return fmt.Errorf("%w: %q", errNameIsPath, m.Name)
	}

	if strings.TrimSpace(m.Identifier) == "" {
		return errIdentifierRequired
	}

	// Default the artifact version to the tool's own stamped version.
	if m.Version == "" {
		m.Version = version.Short()
	}

	if m.Prebuild != nil && m.Prebuild.TimeoutMinutes <= 0 {
		m.Prebuild.TimeoutMinutes = DefaultPrebuildTimeoutMinutes
	}

	if err := validateMappings(m.Data); err != nil {
		return fmt.Errorf("data: %w", err)
	}

	if err := validateMappings(m.Include); err != nil {
		return fmt.Errorf("include: %w", err)
	}

	// A missing assets section means "scan, but don't fail the build".
	if m.Assets == nil {
		m.Assets = &AssetsSpec{Scan: true}
	}

	if m.Assets.Strict {
		m.Assets.Scan = true
	}

	for p := range m.Platforms {
		if !p.Valid() {
			return fmt.Errorf("platforms: %w: %q", bundle.ErrUnsupportedPlatform, p)
		}
	}

	// An entry must exist somewhere: top level or any platform override.
	if m.Entry == "" && !anyPlatformEntry(m.Platforms) {
		return errEntryRequired
	}

	return nil
}

// Resolved flattens the manifest for one platform,
// applying that platform's overrides on top of the shared fields.
func (m *Manifest) Resolved(p bundle.Platform) (*Resolved, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", bundle.ErrUnsupportedPlatform, p)
	}

	r := &Resolved{
		Platform:   p,
		Name:       m.Name,
		Identifier: m.Identifier,
		Version:    m.Version,
		Icon:       m.Icon,
		Entry:      m.Entry,
		Data:       append([]Mapping(nil), m.Data...),
		Include:    append([]Mapping(nil), m.Include...),
		Runtime:    RuntimeSpec{Requires: append([]string(nil), m.Runtime.Requires...)},
	}

	if m.Prebuild != nil {
		prebuild := *m.Prebuild
		r.Prebuild = &prebuild
	}

	if m.Assets != nil {
		r.Assets = *m.Assets
	}

	if override, ok := m.Platforms[p]; ok {
		if override.Entry != "" {
			r.Entry = override.Entry
		}

		if override.Icon != "" {
			r.Icon = override.Icon
		}
	}

	if r.Entry == "" {
		return nil, fmt.Errorf("platform %s: %w", p, errEntryRequired)
	}

	return r, nil
}

// validateMappings checks sources and normalizes destinations in place.
func validateMappings(mappings []Mapping) error {
	for i := range mappings {
		mapping := &mappings[i]

		if strings.TrimSpace(mapping.Source) == "" {
			return errSourceRequired
		}

		if mapping.Dest == "" {
			mapping.Dest = mapping.Source
		}

		// Destinations are payload-relative slash paths.
		// Anything that climbs out of the payload is rejected.
		cleaned := path.Clean(filepath.ToSlash(mapping.Dest))
		if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return fmt.Errorf("%w: %q", errDestEscapes, mapping.Dest)
		}

		mapping.Dest = cleaned
	}

	return nil
}

// anyPlatformEntry reports whether at least one platform override declares an entry.
func anyPlatformEntry(platforms map[bundle.Platform]PlatformSpec) bool {
	for _, override := range platforms {
		if override.Entry != "" {
			return true
		}
	}

	return false
}
