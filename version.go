package rtti

import "fmt"

// Version of the rtti library
const Version = "0.4.0"

// FormatVersion is written by envelopes that wrap serialized graphs. It changes
// only when the object record layout changes incompatibly.
const FormatVersion uint16 = 1

// Build information (set by ldflags during build)
var (
	GitCommit string
	BuildDate string
)

// VersionInfo returns formatted version information
func VersionInfo() string {
	if GitCommit == "" {
		return fmt.Sprintf("rtti v%s (format %d)", Version, FormatVersion)
	}
	return fmt.Sprintf("rtti v%s (format %d, commit: %s, built: %s)", Version, FormatVersion, GitCommit, BuildDate)
}
