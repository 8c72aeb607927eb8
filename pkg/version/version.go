// Package version exposes build metadata for the miniclaw-skills binary.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

var (
	// Version is injected at build time with -ldflags.
	Version = "dev"

	// GitCommit is injected at build time with -ldflags.
	GitCommit = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("miniclaw-skills %s (commit %s, %s, %s)", i.Version, i.GitCommit, i.GoVersion, i.Platform)
}

// JSON renders the info as indented JSON.
func (i Info) JSON() (string, error) {
	b, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
