// Package version carries the build metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/grovetools/livesync/version.Version=v1.2.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build metadata.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the info as aligned lines for the version command.
func (i Info) String() string {
	return fmt.Sprintf("livesync %s\n  Commit:  %s\n  Built:   %s\n  Go:      %s\n  Arch:    %s",
		i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}

// UserAgent is sent with every request to the remote service.
func UserAgent() string {
	return fmt.Sprintf("livesync/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
