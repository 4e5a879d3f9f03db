// Package buildinfo carries version metadata injected at link time:
//
//	go build -ldflags "-X github.com/cleared-dev/umsatz/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the version for `umsatz --version`.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
