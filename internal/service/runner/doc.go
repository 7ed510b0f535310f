// Package runner launches a built bundle on the machine it was built for.
//
// It refuses to start while an update is being applied (or waits for it),
// warns when an instance is already running, and uses the platform launch
// convention: `open` for macOS application bundles, `cmd /C start` for
// Windows folders.
package runner
