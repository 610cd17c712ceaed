// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent identifies this build to upstream APIs, e.g. "dietwatch/1.2.0 (abc1234)".
func UserAgent(name string) string {
	return fmt.Sprintf("%s/%s (%s)", name, Version, Commit)
}
