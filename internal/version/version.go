// Package version exposes build-time version information.
package version

// Overridden at build time via -ldflags.
var (
	// Version is the semantic version of the tagger.
	Version = "1.0.0"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// GitCommit is the git commit the binary was built from.
	GitCommit = "unknown"
)
