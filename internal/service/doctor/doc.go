// Package doctor reports on the build inputs and the host environment.
//
// It checks that the manifest's entry, icon, and payload sources exist and
// looks up declared runtime requirements, including the local browser the
// packaged scrapers need. Findings are informational: doctor only fails
// when the manifest itself cannot be read.
package doctor
