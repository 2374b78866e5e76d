// Package version reports the build identity of the concierge binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/soyeahso/concierge/internal/version.Version=v0.3.0"
// (and .Commit, .Date). Commit and Date fall back to the VCS stamp the Go
// toolchain embeds when built from a checkout.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a one-line description such as
// "concierge v0.3.0 (commit 1a2b3c4, built 2026-01-15, linux/amd64)".
func Info() string {
	commit, date := Commit, Date
	if commit == "unknown" || date == "unknown" {
		vcsCommit, vcsDate := vcsStamp()
		if commit == "unknown" && vcsCommit != "" {
			commit = vcsCommit
		}
		if date == "unknown" && vcsDate != "" {
			date = vcsDate
		}
	}
	return format(Version, commit, date)
}

func format(version, commit, date string) string {
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("concierge %s (commit %s, built %s, %s/%s)", version, commit, date, runtime.GOOS, runtime.GOARCH)
}

func vcsStamp() (revision, when string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			when = s.Value
		}
	}
	return revision, when
}
