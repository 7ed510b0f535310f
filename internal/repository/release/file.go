package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
)

// Repository defines persistence operations for release manifests.
type Repository interface {
	Load(ctx context.Context) (*bundle.Release, error)
	Save(ctx context.Context, release *bundle.Release) error
}

// FileRepository persists a release manifest to a YAML file on disk.
// YAML is produced and consumed via a wire struct so the domain types
// stay free of serialization tags.
type FileRepository struct {
	// path is the filesystem location of the release manifest.
	path string
	// mu protects concurrent access to the manifest file.
	mu sync.Mutex
}

const (
	// DefaultFilename is the release manifest name inside dist/ and on feeds.
	DefaultFilename = "leadgen-release.yaml"

	// DefaultFilePermissions is world-readable: the manifest is published as-is.
	DefaultFilePermissions = 0o644
)

var (
	// ErrNotFound is returned when the release manifest does not exist yet.
	ErrNotFound = errors.New("release manifest not found")
	// errReleaseIsNotSet is returned when a nil release is provided.
	errReleaseIsNotSet = errors.New("release is not set")
)

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the release manifest from disk.
func (r *FileRepository) Load(_ context.Context) (*bundle.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read release manifest: %w", err)
	}

	return Decode(contents)
}

// Save writes the release manifest to disk in YAML representation.
func (r *FileRepository) Save(_ context.Context, release *bundle.Release) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := Encode(release)
	if err != nil {
		return err
	}

	if err = os.WriteFile(r.path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write release manifest: %w", err)
	}

	return nil
}

// Decode parses release manifest bytes, as read from disk or fetched from a feed.
func Decode(contents []byte) (*bundle.Release, error) {
	var wire wireRelease
	if err := yaml.Unmarshal(contents, &wire); err != nil {
		return nil, fmt.Errorf("decode release manifest: %w", err)
	}

	return fromWire(&wire), nil
}

// Encode renders the release manifest as YAML bytes.
func Encode(release *bundle.Release) ([]byte, error) {
	if release == nil {
		return nil, errReleaseIsNotSet
	}

	data, err := yaml.Marshal(toWire(release))
	if err != nil {
		return nil, fmt.Errorf("encode release manifest: %w", err)
	}

	return data, nil
}

// wireRelease is the YAML shape of a release manifest.
type wireRelease struct {
	Name      string                   `yaml:"name"`
	Version   string                   `yaml:"version"`
	CreatedAt time.Time                `yaml:"created_at"`
	Builder   *wireActor               `yaml:"builder,omitempty"`
	Platforms map[string]*wirePlatform `yaml:"platforms"`
}

// wireActor is the YAML shape of the builder provenance.
type wireActor struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
}

// wirePlatform is the YAML shape of one platform's artifacts.
type wirePlatform struct {
	Executable string            `yaml:"executable"`
	Archive    *wireArchive      `yaml:"archive,omitempty"`
	Files      map[string]string `yaml:"files"`
}

// wireArchive is the YAML shape of a published archive.
type wireArchive struct {
	Name     string `yaml:"name"`
	Checksum string `yaml:"checksum"`
	Size     int64  `yaml:"size"`
}

// fromWire converts the YAML shape into the domain Release model.
func fromWire(wire *wireRelease) *bundle.Release {
	release := &bundle.Release{
		Name:      wire.Name,
		Version:   wire.Version,
		CreatedAt: wire.CreatedAt,
	}

	if wire.Builder != nil {
		release.Builder = &bundle.Actor{
			Hostname: wire.Builder.Hostname,
			Username: wire.Builder.Username,
		}
	}

	if wire.Platforms != nil {
		release.Platforms = make(map[bundle.Platform]*bundle.PlatformRelease, len(wire.Platforms))
		for name, platform := range wire.Platforms {
			release.Platforms[bundle.Platform(name)] = fromWirePlatform(platform)
		}
	}

	return release
}

// fromWirePlatform converts one platform section into the domain model.
func fromWirePlatform(wire *wirePlatform) *bundle.PlatformRelease {
	if wire == nil {
		return nil
	}

	platformRelease := &bundle.PlatformRelease{
		Executable: wire.Executable,
		Files:      wire.Files,
	}

	if wire.Archive != nil {
		platformRelease.Archive = &bundle.Archive{
			Name:     wire.Archive.Name,
			Checksum: wire.Archive.Checksum,
			Size:     wire.Archive.Size,
		}
	}

	return platformRelease
}

// toWire converts the domain Release model into the YAML shape.
func toWire(release *bundle.Release) *wireRelease {
	wire := &wireRelease{
		Name:      release.Name,
		Version:   release.Version,
		CreatedAt: release.CreatedAt,
	}

	if release.Builder != nil {
		wire.Builder = &wireActor{
			Hostname: release.Builder.Hostname,
			Username: release.Builder.Username,
		}
	}

	if release.Platforms != nil {
		wire.Platforms = make(map[string]*wirePlatform, len(release.Platforms))
		for platform, platformRelease := range release.Platforms {
			wire.Platforms[platform.String()] = toWirePlatform(platformRelease)
		}
	}

	return wire
}

// toWirePlatform converts one platform section into the YAML shape.
func toWirePlatform(platformRelease *bundle.PlatformRelease) *wirePlatform {
	if platformRelease == nil {
		return nil
	}

	wire := &wirePlatform{
		Executable: platformRelease.Executable,
		Files:      platformRelease.Files,
	}

	if platformRelease.Archive != nil {
		wire.Archive = &wireArchive{
			Name:     platformRelease.Archive.Name,
			Checksum: platformRelease.Archive.Checksum,
			Size:     platformRelease.Archive.Size,
		}
	}

	return wire
}
