// Package common holds helpers shared by several services.
//
// It provides a lightweight HTTP feed client with timeouts and utilities to
// detect the current system actor (hostname/username) for release provenance.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
