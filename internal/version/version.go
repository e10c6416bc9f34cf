// Package version reports build metadata set through ldflags or the Go build info.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Overridden at build time with -ldflags "-X github.com/kurvcrm/kurv/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
	GoVersion string `json:"goVersion"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build metadata, filling the commit and build time from VCS stamps when
// they were not set by ldflags.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, Commit, BuildTime, debug.ReadBuildInfo)
	})
	return info
}

func resolve(version, commit, buildTime string, read func() (*debug.BuildInfo, bool)) Info {
	out := Info{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
	if out.Commit != "" {
		return out
	}
	bi, ok := read()
	if !ok || bi == nil {
		return out
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.Commit = setting.Value
		case "vcs.time":
			if out.BuildTime == "" {
				out.BuildTime = setting.Value
			}
		}
	}
	return out
}

// String formats as "v1.2.3 (abc1234)".
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if i.Commit != "" {
		short := i.Commit
		if len(short) > 7 {
			short = short[:7]
		}
		b.WriteString(" (")
		b.WriteString(short)
		b.WriteString(")")
	}
	return b.String()
}

// GetInfo returns the formatted version string.
func GetInfo() string {
	return Get().String()
}
