package version

import (
	"runtime/debug"
	"testing"
)

func TestFromSettings(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "", ""
	fromSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2024-03-01T10:00:00Z"},
	})

	if Commit != "0123456-dirty" {
		t.Errorf("Commit = %q, want %q", Commit, "0123456-dirty")
	}
	if Version != "dev-20240301" {
		t.Errorf("Version = %q, want %q", Version, "dev-20240301")
	}
}

func TestStampedValuesWin(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "v1.0.0", "abc1234"
	fromSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "fffffff"}})

	if got := String(); got != "v1.0.0 (abc1234)" {
		t.Errorf("String() = %q", got)
	}
	if info := Get(); info.GoVersion == "" || info.Platform == "" {
		t.Errorf("Get() = %+v", info)
	}
}
