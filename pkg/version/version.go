// Package version provides version information for planshift.
package version

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var versionFile string

// Version is the current version of planshift.
// This is embedded from version.txt at compile time.
var Version = strings.TrimSpace(versionFile)

// String returns the version string.
func String() string {
	return Version
}

// Full returns a full version string with the package name.
func Full() string {
	return "planshift version " + Version
}
