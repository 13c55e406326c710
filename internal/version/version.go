// Package version holds build metadata injected via ldflags.
package version

import "fmt"

// Name identifies pixdex to object storage in the User-Agent and in CLI output.
const Name = "pixdex"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, Commit, Date)
}
