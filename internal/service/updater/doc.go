// Package updater keeps an installed bundle in sync with a release feed.
//
// It compares installed files against checksums from the feed's release
// manifest, downloads changed artifacts to a temporary directory, atomically
// applies them into the install directory, and optionally restarts the
// bundle executable.
package updater
