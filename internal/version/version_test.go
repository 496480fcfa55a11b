package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = v, commit, date
	t.Cleanup(func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	})
}

func TestGetInfo(t *testing.T) {
	withBuild(t, "1.0.0", "abc123def456", "2026-01-01T12:00:00Z")

	info := GetInfo()
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123def456", info.Commit)
	assert.Equal(t, "2026-01-01T12:00:00Z", info.Date)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "long commit is truncated",
			info: Info{Version: "1.0.0", Commit: "abc123def456", Date: "2026-01-01", GoVersion: "go1.24.6", Platform: "linux/amd64"},
			want: "schoolctl 1.0.0 (abc123de) built 2026-01-01 with go1.24.6 for linux/amd64",
		},
		{
			name: "short commit is kept",
			info: Info{Version: "1.0.0", Commit: "abc123", Date: "2026-01-01", GoVersion: "go1.24.6", Platform: "darwin/arm64"},
			want: "schoolctl 1.0.0 (abc123) built 2026-01-01 with go1.24.6 for darwin/arm64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}

func TestUserAgent(t *testing.T) {
	info := Info{Version: "dev", Platform: "linux/arm64"}
	assert.Equal(t, "schoolctl/dev (linux/arm64)", info.UserAgent())
}
