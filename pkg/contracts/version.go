package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the Sponsorama binaries.
	Version = "0.3.0"

	// DataFormatVersion versions the campaign record and export column layout.
	DataFormatVersion = "v1"

	// APIVersion versions the HTTP routes and WebSocket messages.
	APIVersion = "v1"
)

// Set with -ldflags "-X sponsorama/pkg/contracts.GitCommit=...".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the payload of GET /api/version and part of the health report.
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo describes the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// String renders the info on one line, as printed by the -version flags.
func (v VersionInfo) String() string {
	return fmt.Sprintf("sponsorama %s (commit %s, built %s, %s %s/%s, data format %s)",
		v.Version, v.GitCommit, v.BuildTime, v.GoVersion, v.OS, v.Architecture, v.DataFormat)
}
