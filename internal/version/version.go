// Package version reports build and runtime information for the /api/version endpoint.
package version

import (
	"runtime"
	"time"
)

// Set at build time with -ldflags "-X diaryapi/internal/version.Version=... -X diaryapi/internal/version.Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)

// APIVersion is the version of the HTTP contract.
const APIVersion = "v1"

// Info is the payload served by the version endpoint.
type Info struct {
	Version    string  `json:"version"`
	APIVersion string  `json:"apiVersion"`
	Commit     string  `json:"commit"`
	GoVersion  string  `json:"goVersion"`
	Platform   string  `json:"platform"`
	Uptime     float64 `json:"uptime"`
	Timestamp  string  `json:"timestamp"`
}

// Reporter produces Info relative to a process start time.
type Reporter struct {
	version string
	started time.Time
	now     func() time.Time
}

// NewReporter returns a Reporter. An empty override keeps the linked-in Version.
func NewReporter(override string, started time.Time) *Reporter {
	v := Version
	if override != "" {
		v = override
	}
	return &Reporter{version: v, started: started, now: time.Now}
}

// Info returns the current snapshot. Uptime is in seconds.
func (r *Reporter) Info() Info {
	now := r.now()
	return Info{
		Version:    r.version,
		APIVersion: APIVersion,
		Commit:     Commit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Uptime:     now.Sub(r.started).Seconds(),
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
}
