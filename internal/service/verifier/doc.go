// Package verifier checks an on-disk tree against its release manifest.
//
// It recomputes checksums for every file the manifest names, optionally
// validates the manifest's detached PGP signature first, and reports
// per-file mismatches.
package verifier
