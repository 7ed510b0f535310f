// Package bundle contains core domain types for building and shipping
// desktop bundles.
//
// It defines Platform (the target operating system), Layout (the on-disk
// shape of build and dist trees for a named artifact), and Actor (who
// produced a build) with Clone helpers to avoid leaking internal references.
package bundle
