// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Dir        Dir
	Engine     Engine
	DepManager DepManager
}

// App holds application-wide configuration.
type App struct {
	LogLevel  string `env:"YTBATCH_APP_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"YTBATCH_APP_LOG_FORMAT" envDefault:"json"` // json or text
}

// Engine holds download queue configuration.
type Engine struct {
	// TerminateGrace is how long a stopped download may keep running before it is killed.
	// 0 sends a single terminate request.
	TerminateGrace time.Duration `env:"YTBATCH_ENGINE_TERMINATE_GRACE" envDefault:"0s"`
	// MaxLineSize is the longest yt-dlp output line delivered, in bytes. Longer lines are chunked.
	MaxLineSize int `env:"YTBATCH_ENGINE_MAX_LINE_SIZE" envDefault:"1048576"`
	// JournalSize is how many log events are kept for the presentation layer.
	JournalSize int `env:"YTBATCH_ENGINE_JOURNAL_SIZE" envDefault:"5000"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"YTBATCH_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"YTBATCH_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ShutdownTimeout time.Duration `env:"YTBATCH_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths.
type Dir struct {
	// downloads are stored under <Downloads>/<extractor>/<uploader>/
	Downloads string `env:"YTBATCH_DIR_DOWNLOAD" envDefault:"./DownloadData"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	return cfg, nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"YTBATCH_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use binaries from PATH instead of downloading them.
	UseSystemBinaries bool `env:"YTBATCH_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"true"`
	// UpdateInterval is how often to check for binary updates. 0 disables the checker.
	UpdateInterval time.Duration `env:"YTBATCH_DEPMANAGER_UPDATE_INTERVAL" envDefault:"24h"`

	// ffmpeg archive URLs per platform.
	FFmpegSHA256SumsURL string `env:"YTBATCH_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                         //nolint:lll
	FFmpegLinuxARM64    string `env:"YTBATCH_DEPMANAGER_FFMPEG_LINUX_ARM64"    envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"YTBATCH_DEPMANAGER_FFMPEG_LINUX_AMD64"    envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
	FFmpegWindowsAMD64  string `env:"YTBATCH_DEPMANAGER_FFMPEG_WINDOWS_AMD64"  envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-win64-gpl.zip"`         //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"YTBATCH_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`         //nolint:lll
	YTdlpLinuxARM64    string `env:"YTBATCH_DEPMANAGER_YTDLP_LINUX_ARM64"    envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"YTBATCH_DEPMANAGER_YTDLP_LINUX_AMD64"    envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
	YTdlpMacOS         string `env:"YTBATCH_DEPMANAGER_YTDLP_MACOS"          envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_macos"`         //nolint:lll
	YTdlpWindowsAMD64  string `env:"YTBATCH_DEPMANAGER_YTDLP_WINDOWS_AMD64"  envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp.exe"`           //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}
