// Package version reports build information for storectl.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/flowmesh/localstore/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GitCommit string `json:"gitCommit"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"goVersion"`
}

// Get returns version information. Values not set at link time are filled
// from the module and VCS data embedded by the go command.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// String returns the one-line form printed by storectl version
func String() string {
	info := Get()
	commit := info.GitCommit
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("localstore version %s (build time: %s, commit: %s, go: %s)",
		info.Version, info.BuildTime, commit, info.GoVersion)
}
