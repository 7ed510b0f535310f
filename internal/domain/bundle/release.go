package bundle

import (
	"strconv"
	"strings"
	"time"
)

// Release describes one published build of an artifact:
// which files exist per platform, their checksums, and how to download them.
type Release struct {
	// Name is the artifact name.
	Name string
	// Version is the artifact version the release was built from.
	Version string
	// CreatedAt is when the release was assembled.
	CreatedAt time.Time
	// Builder identifies who produced the release.
	Builder *Actor
	// Platforms holds per-platform artifact descriptions.
	Platforms map[Platform]*PlatformRelease
}

// PlatformRelease describes the artifacts built for one platform.
type PlatformRelease struct {
	// Files maps dist-relative slash paths to base64 SHA-512 checksums.
	Files map[string]string
	// Executable is the dist-relative slash path of the bundle executable.
	Executable string
	// Archive describes the packed bundle published on the feed.
	Archive *Archive
}

// Archive is a packed bundle published on the feed.
type Archive struct {
	// Name is the archive file name, for example "LeadGen-1.4.0-darwin.tar.gz".
	Name string
	// Checksum is the base64 SHA-512 checksum of the archive.
	Checksum string
	// Size is the archive size in bytes.
	Size int64
}

// Clone returns a deep copy of the release to avoid leaking internal references.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}

	cloned := &Release{
		Name:      r.Name,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		Builder:   r.Builder.Clone(),
	}

	if r.Platforms != nil {
		cloned.Platforms = make(map[Platform]*PlatformRelease, len(r.Platforms))
		for platform, platformRelease := range r.Platforms {
			cloned.Platforms[platform] = platformRelease.Clone()
		}
	}

	return cloned
}

// Clone returns a deep copy of the platform release.
func (p *PlatformRelease) Clone() *PlatformRelease {
	if p == nil {
		return nil
	}

	cloned := &PlatformRelease{
		Executable: p.Executable,
	}

	if p.Files != nil {
		cloned.Files = make(map[string]string, len(p.Files))
		for name, checksum := range p.Files {
			cloned.Files[name] = checksum
		}
	}

	if p.Archive != nil {
		archive := *p.Archive
		cloned.Archive = &archive
	}

	return cloned
}

// CompareVersions orders two dotted version strings numerically per segment.
// It returns -1 when a is older than b, 0 when equal, and 1 when newer.
// Non-numeric segments fall back to lexicographic comparison.
func CompareVersions(a, b string) int {
	segmentsA := strings.Split(strings.TrimSpace(a), ".")
	segmentsB := strings.Split(strings.TrimSpace(b), ".")

	for i := 0; i < len(segmentsA) || i < len(segmentsB); i++ {
		var segmentA, segmentB string
		if i < len(segmentsA) {
			segmentA = segmentsA[i]
		}

		if i < len(segmentsB) {
			segmentB = segmentsB[i]
		}

		if cmp := compareSegment(segmentA, segmentB); cmp != 0 {
			return cmp
		}
	}

	return 0
}

// compareSegment compares one version segment, numerically when possible.
func compareSegment(a, b string) int {
	numberA, errA := strconv.Atoi(a)
	numberB, errB := strconv.Atoi(b)

	if errA == nil && errB == nil {
		switch {
		case numberA < numberB:
			return -1
		case numberA > numberB:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(a, b)
}
