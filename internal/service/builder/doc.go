// Package builder assembles platform bundles from a bundle manifest.
//
// The pipeline is sequential and fail-fast: resolve the manifest for the
// target platform, recreate the build/ and dist/ trees, run the optional
// prebuild script, stage the payload, scan template asset references, lay
// out the platform bundle (a macOS .app or a Windows folder), and write a
// build report. Clean removes everything a build leaves behind.
package builder
