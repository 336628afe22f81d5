// Package version exposes the build version, settable at compile time:
//
//	go build -ldflags "-X github.com/kbukum/authgate/version.Version=1.0.0"
//
// Without ldflags the VCS revision from the embedded build info is used.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Short returns "version" or "version-commit" when the VCS revision is
// available, with a "-dirty" suffix for modified trees.
func Short() string {
	commit, dirty := vcsInfo()
	out := Version
	if commit != "" {
		out = fmt.Sprintf("%s-%s", out, commit)
	}
	if dirty {
		out += "-dirty"
	}
	return out
}

func vcsInfo() (commit string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return commit, dirty
}
