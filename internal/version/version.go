// Package version contains build version information set via ldflags.
package version

// Version is the release version of the relay.
var Version = "0.1.0"

// GitCommit is the git commit hash.
var GitCommit = "unknown"

// BuildDate is the build date.
var BuildDate = "unknown"
