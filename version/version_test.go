package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-15T10:30:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := fromBuildInfo(Info{Version: "1.2.0"}, bi)

	if info.GitCommit != "0123456" {
		t.Errorf("got commit %q, want 0123456", info.GitCommit)
	}
	if info.BuildTime != "2026-01-15T10:30:00Z" {
		t.Errorf("got build time %q", info.BuildTime)
	}
	if info.GoVersion != "go1.26.0" {
		t.Errorf("got go version %q", info.GoVersion)
	}
	if !info.Dirty || info.IsRelease() {
		t.Error("modified tree must be dirty and not a release")
	}
	if got := info.Short(); got != "1.2.0-0123456-dirty" {
		t.Errorf("got %q, want 1.2.0-0123456-dirty", got)
	}
}

func TestFromBuildInfo_LinkTimeValuesWin(t *testing.T) {
	bi := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffffffffff"},
		{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
	}}
	info := fromBuildInfo(Info{Version: "1.0.0", GitCommit: "abc1234", BuildTime: "2026-02-01T00:00:00Z"}, bi)
	if info.GitCommit != "abc1234" || info.BuildTime != "2026-02-01T00:00:00Z" {
		t.Errorf("link-time values overwritten: %+v", info)
	}
	if !info.IsRelease() {
		t.Error("expected release")
	}
	if got := info.String(); got != "1.0.0-abc1234 (built 2026-02-01T00:00:00Z)" {
		t.Errorf("got %q", got)
	}
}

func TestInfo_Dev(t *testing.T) {
	info := Info{Version: "dev"}
	if info.IsRelease() {
		t.Error("dev is not a release")
	}
	if info.String() != "dev" {
		t.Errorf("got %q, want dev", info.String())
	}
}

func TestGet(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()
	Version = "9.9.9"
	if got := Get().Version; got != "9.9.9" {
		t.Errorf("got %q, want 9.9.9", got)
	}
}
