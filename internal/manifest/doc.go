// Package manifest defines the bundle manifest (leadgen-bundle.yaml) and
// provides helpers to load, validate, save, and flatten it per platform.
//
// The Manifest type holds the artifact identity (name, identifier, version,
// icon), the entry executable, payload mappings, and per-platform overrides.
// Resolved is the per-platform flattened view the build pipeline consumes.
package manifest
