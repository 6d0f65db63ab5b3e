// Package version holds build-time version information for the consultdeck
// binary. The variables are overridden at build time via -ldflags.
package version

// Version is the semantic version of the build (e.g. "0.4.1").
// Overridden at build time: -ldflags "-X .../internal/version.Version=v0.4.1".
var Version = "dev"

// Commit is the git commit hash the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build timestamp.
var BuildDate = "unknown"
