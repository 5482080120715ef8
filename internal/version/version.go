// Package version reports the build identity of the glucometer binary.
//
// Values can be stamped at build time:
//
//	go build -ldflags="-X github.com/muurk/glucometer/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/glucometer/internal/version.Commit=abc1234"
//
// Otherwise they are derived from the VCS stamp in the binary's build info,
// falling back to "dev" and "unknown".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	// Version is the release version
	Version = ""
	// Commit is the short git hash
	Commit = ""
)

// Info is the full build identity
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromSettings fills unset values from vcs.* build settings
func fromSettings(settings []debug.BuildSetting) {
	var revision, modified, vcsTime string
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}
	if Version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = "dev-" + t.UTC().Format("20060102")
		}
	}
}

// Get returns the build identity
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line version string, e.g. "v0.3.0 (abc1234)"
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
