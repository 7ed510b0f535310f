// Package release implements persistence for release manifests.
//
// The FileRepository stores and loads the manifest as YAML on disk and
// exposes a Repository interface that the releaser, verifier, server, and
// updater depend on. Decode/Encode handle the same YAML shape for manifests
// that travel over HTTP instead of the filesystem.
package release
