package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns build information. Missing ldflags values fall back to the
// VCS stamp the Go toolchain embeds.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// String renders "version (commit, built date)" for logs and the CLI.
func (i Info) String() string {
	s := i.Version
	switch {
	case i.Commit != "" && i.BuildDate != "":
		s += fmt.Sprintf(" (%s, built %s)", i.Commit, i.BuildDate)
	case i.Commit != "":
		s += fmt.Sprintf(" (%s)", i.Commit)
	}
	if i.Dirty {
		s += " dirty"
	}
	return s
}

// Fields returns the build as log fields.
func (i Info) Fields() map[string]interface{} {
	return map[string]interface{}{
		"version":    i.Version,
		"commit":     i.Commit,
		"build_date": i.BuildDate,
		"go_version": i.GoVersion,
	}
}
