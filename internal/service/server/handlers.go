package server

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
	"github.com/arkhalid89/leadgen-bundler/internal/version"
)

// releaseResponse is the JSON projection of a release manifest.
type releaseResponse struct {
	// Name is the artifact name.
	Name string `json:"name"`
	// Version is the released artifact version.
	Version string `json:"version"`
	// CreatedAt is when the release was assembled.
	CreatedAt time.Time `json:"created_at"`
	// Builder identifies who produced the release, when recorded.
	Builder *actorResponse `json:"builder,omitempty"`
	// Platforms holds per-platform artifact descriptions keyed by platform name.
	Platforms map[string]platformResponse `json:"platforms"`
}

// actorResponse identifies who produced a release.
type actorResponse struct {
	// Hostname is the machine the build ran on.
	Hostname string `json:"hostname"`
	// Username is the system user who ran the build.
	Username string `json:"username"`
}

// platformResponse describes the artifacts released for one platform.
type platformResponse struct {
	// Executable is the dist-relative slash path of the bundle executable.
	Executable string `json:"executable"`
	// Archive describes the packed bundle, when one was published.
	Archive *archiveResponse `json:"archive,omitempty"`
	// Files maps dist-relative slash paths to base64 SHA-512 checksums.
	Files map[string]string `json:"files"`
}

// archiveResponse describes a packed bundle on the feed.
type archiveResponse struct {
	// Name is the archive file name.
	Name string `json:"name"`
	// Checksum is the base64 SHA-512 checksum of the archive.
	Checksum string `json:"checksum"`
	// Size is the archive size in bytes.
	Size int64 `json:"size"`
}

// healthHandler reports liveness along with uptime and the server version.
func healthHandler(start time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(start).Round(time.Second).String(),
			"version": version.Short(),
		})
	}
}

// releaseHandler serves the current release manifest as JSON.
// The manifest is re-read per request so a new release shows up
// without restarting the server.
func releaseHandler(dir string) gin.HandlerFunc {
	repository := releaserepo.NewFileRepository(filepath.Join(dir, releaserepo.DefaultFilename))

	return func(c *gin.Context) {
		release, err := repository.Load(c.Request.Context())
		if err != nil {
			if errors.Is(err, releaserepo.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no release published"})

				return
			}

			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load release manifest"})

			return
		}

		c.JSON(http.StatusOK, toReleaseResponse(release))
	}
}

// artifactHandler serves files from the feed directory: the release
// manifest, its signature, bundle trees, and archives.
func artifactHandler(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})

			return
		}

		// Clean the path against the root so ".." can't escape the feed directory.
		relative := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/")
		if relative == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

			return
		}

		target := filepath.Join(dir, filepath.FromSlash(relative))

		info, err := os.Stat(target)
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

			return
		}

		c.File(target)
	}
}

// toReleaseResponse converts a domain release into its JSON projection.
func toReleaseResponse(release *bundle.Release) releaseResponse {
	response := releaseResponse{
		Name:      release.Name,
		Version:   release.Version,
		CreatedAt: release.CreatedAt,
		Platforms: make(map[string]platformResponse, len(release.Platforms)),
	}

	if release.Builder != nil {
		response.Builder = &actorResponse{
			Hostname: release.Builder.Hostname,
			Username: release.Builder.Username,
		}
	}

	for platform, section := range release.Platforms {
		if section == nil {
			continue
		}

		converted := platformResponse{
			Executable: section.Executable,
			Files:      section.Files,
		}

		if section.Archive != nil {
			converted.Archive = &archiveResponse{
				Name:     section.Archive.Name,
				Checksum: section.Archive.Checksum,
				Size:     section.Archive.Size,
			}
		}

		response.Platforms[string(platform)] = converted
	}

	return response
}
