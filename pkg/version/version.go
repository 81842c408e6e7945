// Package version reports the build version of lcaprommis.
package version

import "runtime/debug"

// Set at build time with -ldflags "-X github.com/rshade/lcaprommis/pkg/version.version=v1.2.3".
var (
	version = "" //nolint:gochecknoglobals // ldflags target
	commit  = "" //nolint:gochecknoglobals // ldflags target
	date    = "" //nolint:gochecknoglobals // ldflags target
)

const devName = "v0.0.0-dev"

// GetVersion returns the ldflags version, the module version recorded by
// go install, or a development placeholder.
func GetVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devName
}

// GetCommit returns the git commit the binary was built from, if known.
func GetCommit() string { return commit }

// GetBuildDate returns the build date, if known.
func GetBuildDate() string { return date }
