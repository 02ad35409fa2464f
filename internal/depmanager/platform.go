package depmanager

import (
	"fmt"
	"net/url"
	"path"
	"runtime"

	"ytbatch/internal/config"
	"ytbatch/internal/errs"
)

// Platform operating system names and architectures.
const (
	platformDarwin  = "darwin"
	platformLinux   = "linux"
	platformWindows = "windows"
	archARM64       = "arm64"
	archAMD64       = "amd64"
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// CurrentPlatform returns the platform the program runs on.
func CurrentPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// exe appends the executable suffix of the platform to name.
func (p Platform) exe(name string) string {
	if p.OS == platformWindows {
		return name + ".exe"
	}

	return name
}

// sourceURL returns the configured download URL of a binary for p.
func sourceURL(cfg config.DepManager, p Platform, name BinaryName) (string, error) {
	var urls map[string]string

	switch name {
	case BinaryYTdlp:
		urls = map[string]string{
			"linux/arm64":   cfg.YTdlpLinuxARM64,
			"linux/amd64":   cfg.YTdlpLinuxAMD64,
			"darwin/arm64":  cfg.YTdlpMacOS,
			"darwin/amd64":  cfg.YTdlpMacOS,
			"windows/amd64": cfg.YTdlpWindowsAMD64,
		}
	case BinaryFFmpeg, BinaryFFprobe:
		urls = map[string]string{
			"linux/arm64":   cfg.FFmpegLinuxARM64,
			"linux/amd64":   cfg.FFmpegLinuxAMD64,
			"windows/amd64": cfg.FFmpegWindowsAMD64,
		}
	}

	if u := urls[p.String()]; u != "" {
		return u, nil
	}

	return "", fmt.Errorf("%w: %s on %s", errs.ErrUnsupportedPlatform, name, p)
}

// remoteFilename returns the file name a download URL points at, as listed in checksum files.
func remoteFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return path.Base(raw)
	}

	return path.Base(u.Path)
}
