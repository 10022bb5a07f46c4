// Package utils holds small helpers shared across transcriber packages.
package utils

import (
	"fmt"
	"runtime/debug"
)

// Set at link time with -X.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString formats the build identity for "transcriber version". When
// Sha was not stamped, the VCS revision recorded by the Go toolchain is used
// if available.
func VersionString() string {
	return fmt.Sprintf("Version: %s\nSha: %s\nBuilt at: %s\n", Version, revision(), Buildtime)
}

func revision() string {
	if Sha != "HEAD" {
		return Sha
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Sha
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return Sha
}
