// Package releaser turns built bundles into a publishable release.
//
// It checksums every bundle file, packages per-platform archives, writes the
// release manifest consumed by updaters, and optionally signs the manifest
// and uploads everything to an update feed.
package releaser
