// Package version holds build metadata set at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/docblog/internal/version.Version=v0.1.0"
package version

import "fmt"

// Version is the application version.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns the version line printed by --version.
func String() string {
	return fmt.Sprintf("docblog %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
