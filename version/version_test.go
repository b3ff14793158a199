package version

import (
	"strings"
	"testing"
	"time"
)

type stamp struct {
	version, commit, branch, buildTime, goVersion string
}

func (s stamp) apply(t *testing.T) {
	t.Helper()
	orig := stamp{Version, GitCommit, GitBranch, BuildTime, GoVersion}
	t.Cleanup(func() {
		Version, GitCommit, GitBranch, BuildTime, GoVersion =
			orig.version, orig.commit, orig.branch, orig.buildTime, orig.goVersion
	})
	Version, GitCommit, GitBranch, BuildTime, GoVersion =
		s.version, s.commit, s.branch, s.buildTime, s.goVersion
}

func TestGetVersionInfo(t *testing.T) {
	tests := []struct {
		name        string
		stamp       stamp
		wantRelease bool
		wantDate    time.Time
	}{
		{
			name:  "unstamped dev build",
			stamp: stamp{version: "dev"},
		},
		{
			name:        "release with build time",
			stamp:       stamp{version: "1.0.0", commit: "abc1234", branch: "main", buildTime: "2024-01-15T10:30:00Z", goVersion: "go1.22.0"},
			wantRelease: true,
			wantDate:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:        "unparsable build time leaves date zero",
			stamp:       stamp{version: "1.0.0", buildTime: "last tuesday"},
			wantRelease: true,
		},
		{
			name:  "dirty version is not a release",
			stamp: stamp{version: "1.0.0-dirty"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.stamp.apply(t)

			info := GetVersionInfo()
			if info.Version != tt.stamp.version {
				t.Errorf("Version = %q, want %q", info.Version, tt.stamp.version)
			}
			if info.IsRelease != tt.wantRelease {
				t.Errorf("IsRelease = %v, want %v", info.IsRelease, tt.wantRelease)
			}
			if !info.BuildDate.Equal(tt.wantDate) {
				t.Errorf("BuildDate = %v, want %v", info.BuildDate, tt.wantDate)
			}
			if tt.stamp.goVersion != "" && info.GoVersion != tt.stamp.goVersion {
				t.Errorf("GoVersion = %q, want ldflags value %q", info.GoVersion, tt.stamp.goVersion)
			}
			if info.GoVersion == "" {
				t.Error("GoVersion should fall back to the toolchain version")
			}
		})
	}
}

func TestShortCommit(t *testing.T) {
	tests := []struct{ rev, want string }{
		{"", ""},
		{"abc1234", "abc1234"},
		{"abc1234def5678", "abc1234"},
	}
	for _, tt := range tests {
		t.Run(tt.rev, func(t *testing.T) {
			if got := shortCommit(tt.rev); got != tt.want {
				t.Errorf("shortCommit(%q) = %q, want %q", tt.rev, got, tt.want)
			}
		})
	}
}

func TestVersionStrings(t *testing.T) {
	tests := []struct {
		name      string
		stamp     stamp
		wantShort string
		wantFull  string
	}{
		{
			name:      "dev without stamps",
			stamp:     stamp{version: "dev"},
			wantShort: "dev",
			wantFull:  "dev",
		},
		{
			name:      "main branch is omitted",
			stamp:     stamp{version: "1.0.0", commit: "abc1234", branch: "main", buildTime: "2024-01-15T10:30:00Z"},
			wantShort: "1.0.0-abc1234",
			wantFull:  "1.0.0-abc1234 (built 2024-01-15T10:30:00Z)",
		},
		{
			name:      "feature branch is shown",
			stamp:     stamp{version: "1.0.0", commit: "abc1234", branch: "feature/offline-queue"},
			wantShort: "1.0.0-abc1234",
			wantFull:  "1.0.0-abc1234-feature/offline-queue",
		},
		{
			name:      "bad build time adds no date",
			stamp:     stamp{version: "1.2.0", buildTime: "soon"},
			wantShort: "1.2.0",
			wantFull:  "1.2.0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.stamp.apply(t)
			if got := GetShortVersion(); got != tt.wantShort {
				t.Errorf("GetShortVersion() = %q, want %q", got, tt.wantShort)
			}
			if got := GetFullVersion(); got != tt.wantFull {
				t.Errorf("GetFullVersion() = %q, want %q", got, tt.wantFull)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	stamp{version: "1.4.0"}.apply(t)

	tests := []struct {
		product string
		want    string
	}{
		{"", "artcache/1.4.0"},
		{"artcache-cli", "artcache-cli/1.4.0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := UserAgent(tt.product); got != tt.want {
				t.Errorf("UserAgent(%q) = %q, want %q", tt.product, got, tt.want)
			}
		})
	}
}

func TestFullVersionOmitsUnknownDate(t *testing.T) {
	stamp{version: "dev"}.apply(t)
	if fv := GetFullVersion(); strings.Contains(fv, "built") {
		t.Errorf("GetFullVersion() = %q, want no build date", fv)
	}
}
