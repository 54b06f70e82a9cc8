// Package misc holds program identity set at build time.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X stylist/misc.version=... -X stylist/misc.gitHash=...".
var (
	appName = "stylist"
	version = "dev"
	gitHash string
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	if version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return version
}

// GetGitHash returns commit program was built from, falling back to VCS
// information recorded by the toolchain.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
