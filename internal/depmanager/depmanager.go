// Package depmanager locates or installs the yt-dlp and ffmpeg binaries.
// Checksums are used only to detect when new versions are available, not to verify downloads.
package depmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
	"ytbatch/internal/process"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
)

// Dependency check results used as metric labels.
const (
	statusPresent   = "present"
	statusInstalled = "installed"
	statusUpdated   = "updated"
	statusSystem    = "system"
	statusMissing   = "missing"
	statusFailed    = "failed"
)

// Internal constants for binary management.
const (
	// downloadTimeout is the HTTP client timeout for downloading binaries.
	downloadTimeout = 10 * time.Minute
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
	// filePermReadWrite is the file permission for regular files.
	filePermReadWrite = 0o644
	// sha256HexLength is the expected length of SHA256 hex string.
	sha256HexLength = 64
	// sha256SumsFieldCount is the expected field count in SHA256SUMS format.
	sha256SumsFieldCount = 2
	// savedSumsFilename is the filename for saved checksums.
	savedSumsFilename = ".sha256sums.json"
)

// installOrder lists the binaries to install. ffprobe ships in the ffmpeg archive.
var installOrder = []BinaryName{BinaryFFmpeg, BinaryYTdlp}

// Manager manages binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      *config.Config
	metrics  *observability.Metrics
	platform Platform
	client   *http.Client

	mu        sync.RWMutex
	shaSums   map[string]string     // filename -> sha256 hash (fetched from remote)
	savedSums map[string]string     // filename -> sha256 hash (saved from previous run)
	binPaths  map[BinaryName]string // binary name -> resolved path

	updating atomic.Bool
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *Manager {
	return &Manager{
		log:      log.With(slog.String("package", "depmanager")),
		cfg:      cfg,
		metrics:  metrics,
		platform: CurrentPlatform(),
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		shaSums:   make(map[string]string),
		savedSums: make(map[string]string),
		binPaths:  make(map[BinaryName]string),
	}
}

// Start resolves the binaries. Missing binaries are not fatal: each download then fails
// on its own with a spawn error until the binary appears.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.DepManager.UseSystemBinaries {
		if err := m.ResolveSystem(); err != nil {
			m.log.WarnContext(ctx, "system binaries incomplete", slog.Any("error", err))
		}

		return
	}

	if err := m.InstallAll(ctx); err != nil {
		m.log.ErrorContext(ctx, "install binaries, falling back to PATH", slog.Any("error", err))

		if err := m.ResolveSystem(); err != nil {
			m.log.WarnContext(ctx, "system binaries incomplete", slog.Any("error", err))
		}
	}

	m.exposeBinsDir(ctx)
	m.StartUpdateChecker(ctx)
}

// ResolveSystem looks the binaries up in PATH. Every missing binary is reported.
func (m *Manager) ResolveSystem() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []error

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			m.recordCheck(binary, statusMissing)
			missing = append(missing, fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, binary, err))

			continue
		}

		m.recordCheck(binary, statusSystem)
		m.binPaths[binary] = path
	}

	return errors.Join(missing...)
}

// InstallAll downloads the binaries that are not yet in the bins directory.
func (m *Manager) InstallAll(ctx context.Context) error {
	log := m.log

	err := os.MkdirAll(m.cfg.DepManager.BinsDir, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	err = m.loadSavedSums()
	if err != nil {
		log.DebugContext(ctx, "no saved checksums found, first run", slog.Any("error", err))
	}

	for _, binary := range installOrder {
		if m.isBinaryExists(binary) {
			m.setBinaryPath(binary)
			m.recordCheck(binary, statusPresent)

			if binary == BinaryFFmpeg && m.isBinaryExists(BinaryFFprobe) {
				m.setBinaryPath(BinaryFFprobe)
			}

			log.DebugContext(ctx, "binary already exists", slog.String("binary", string(binary)))

			continue
		}

		err = m.downloadAndInstall(ctx, binary)
		if err != nil {
			m.recordCheck(binary, statusFailed)

			return fmt.Errorf("download and install %s: %w", binary, err)
		}

		m.recordCheck(binary, statusInstalled)
	}

	log.InfoContext(ctx, "all binaries are installed", slog.Any("binaries", m.paths()))

	err = m.FetchSHASums(ctx)
	if err != nil {
		log.WarnContext(ctx, "failed to fetch checksums", slog.Any("error", err))

		return nil
	}

	err = m.saveSums()
	if err != nil {
		log.WarnContext(ctx, "failed to save checksums", slog.Any("error", err))
	}

	return nil
}

// BinaryPath returns where a managed binary lives inside the bins directory.
func (m *Manager) BinaryPath(name BinaryName) string {
	return filepath.Join(m.cfg.DepManager.BinsDir, m.platform.exe(string(name)))
}

// InstalledPath returns the resolved path for a binary, or empty if it was not resolved.
func (m *Manager) InstalledPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

// YTdlpPath returns the yt-dlp executable to run. When nothing was resolved the bare
// name is returned and left to the PATH lookup at spawn time.
func (m *Manager) YTdlpPath() string {
	if path := m.InstalledPath(BinaryYTdlp); path != "" {
		return path
	}

	return string(BinaryYTdlp)
}

// Version runs "yt-dlp --version" and returns its trimmed output.
func (m *Manager) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.DefaultVersionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.YTdlpPath(), "--version")
	cmd.Env = process.Environ()

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", BinaryYTdlp, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// StartUpdateChecker starts a background goroutine that periodically checks for updates.
// It compares fetched checksums with saved checksums and redownloads if different.
func (m *Manager) StartUpdateChecker(ctx context.Context) {
	if m.cfg.DepManager.UpdateInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.cfg.DepManager.UpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkAndUpdate(ctx)
			}
		}
	}()
}

// FetchSHASums fetches and parses SHA256 sums from configured URLs.
func (m *Manager) FetchSHASums(ctx context.Context) error {
	sumsURLs, err := m.CollectSHASumsURLs()
	if err != nil {
		return fmt.Errorf("collect SHA sums URLs: %w", err)
	}

	for _, url := range sumsURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch SHA sums: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()

			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		m.ParseSHASums(string(body))
	}

	return nil
}

// CollectSHASumsURLs collects SHA256 sums URLs from the configuration.
func (m *Manager) CollectSHASumsURLs() ([]string, error) {
	var sumsURLs []string

	sources := []string{
		m.cfg.DepManager.YTdlpSHA256SumsURL,
		m.cfg.DepManager.FFmpegSHA256SumsURL,
	}

	for _, raw := range sources {
		for part := range strings.SplitSeq(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				sumsURLs = append(sumsURLs, part)
			}
		}
	}

	if len(sumsURLs) == 0 {
		return nil, errors.New("no SHA256 sums URLs configured")
	}

	return sumsURLs, nil
}

// ParseSHASums parses SHA256 sums from content in the format "hash  filename".
// Malformed lines are skipped.
func (m *Manager) ParseSHASums(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for line := range strings.SplitSeq(content, "\n") {
		parts := strings.Fields(line)
		if len(parts) != sha256SumsFieldCount {
			continue
		}

		hash, filename := parts[0], strings.TrimPrefix(parts[1], "*")
		if len(hash) != sha256HexLength {
			continue
		}

		m.shaSums[filename] = hash
	}

	m.log.Debug("parsed SHA256 sums", slog.Int("count", len(m.shaSums)))
}

// checkAndUpdate checks for updates and downloads new versions if available.
func (m *Manager) checkAndUpdate(ctx context.Context) {
	if !m.updating.CompareAndSwap(false, true) {
		return
	}
	defer m.updating.Store(false)

	log := m.log

	err := m.FetchSHASums(ctx)
	if err != nil {
		log.WarnContext(ctx, "update check: failed to fetch checksums", slog.Any("error", err))

		return
	}

	updates := m.findUpdates()
	if len(updates) == 0 {
		log.DebugContext(ctx, "update check: no updates available")

		return
	}

	log.InfoContext(ctx, "update check: updates available", slog.Any("binaries", updates))

	for _, binary := range updates {
		if err := m.downloadAndInstall(ctx, binary); err != nil {
			m.recordCheck(binary, statusFailed)
			log.ErrorContext(ctx, "update check: failed to update binary",
				slog.String("binary", string(binary)),
				slog.Any("error", err))

			continue
		}

		m.recordCheck(binary, statusUpdated)
		log.InfoContext(ctx, "update check: binary updated", slog.String("binary", string(binary)))
	}

	if err := m.saveSums(); err != nil {
		log.WarnContext(ctx, "update check: failed to save checksums", slog.Any("error", err))
	}
}

// findUpdates compares fetched checksums with saved checksums and returns binaries that need updating.
func (m *Manager) findUpdates() []BinaryName {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var updates []BinaryName

	for _, binary := range installOrder {
		url, err := sourceURL(m.cfg.DepManager, m.platform, binary)
		if err != nil {
			continue
		}

		filename := remoteFilename(url)
		newHash, hasNew := m.shaSums[filename]
		oldHash, hasOld := m.savedSums[filename]

		if hasNew && (!hasOld || newHash != oldHash) {
			updates = append(updates, binary)
		}
	}

	return updates
}

// isBinaryExists checks if a binary file exists and has non-zero size.
func (m *Manager) isBinaryExists(name BinaryName) bool {
	info, err := os.Stat(m.BinaryPath(name))

	return err == nil && info.Size() > 0
}

func (m *Manager) setBinaryPath(name BinaryName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = m.BinaryPath(name)
}

func (m *Manager) paths() map[BinaryName]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.binPaths)
}

// downloadAndInstall downloads and installs a dependency binary.
func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	log := m.log.With(slog.String("binary", string(name)))

	url, err := sourceURL(m.cfg.DepManager, m.platform, name)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	installed, err := m.install(ctx, url, name, m.cfg.DepManager.BinsDir)
	if err != nil {
		return fmt.Errorf("download dependency: %w", err)
	}

	for _, path := range installed {
		if err := os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}

		m.mu.Lock()
		m.binPaths[BinaryName(strings.TrimSuffix(filepath.Base(path), ".exe"))] = path
		m.mu.Unlock()
	}

	log.InfoContext(ctx, "binary installed successfully", slog.Any("paths", installed))

	return nil
}

// exposeBinsDir prepends the bins directory to PATH so yt-dlp finds the managed ffmpeg.
func (m *Manager) exposeBinsDir(ctx context.Context) {
	dir := m.cfg.DepManager.BinsDir
	current := os.Getenv("PATH")

	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+current); err != nil {
		m.log.WarnContext(ctx, "expose bins dir", slog.Any("error", err))

		return
	}

	m.log.DebugContext(ctx, "bins dir added to PATH", slog.String("dir", dir))
}

// loadSavedSums loads saved checksums from file.
func (m *Manager) loadSavedSums() error {
	filePath := filepath.Join(m.cfg.DepManager.BinsDir, savedSumsFilename)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := json.Unmarshal(data, &m.savedSums); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	return nil
}

// saveSums saves current checksums to file for future comparison.
func (m *Manager) saveSums() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.shaSums, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	filePath := filepath.Join(m.cfg.DepManager.BinsDir, savedSumsFilename)

	if err := os.WriteFile(filePath, data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	m.mu.Lock()
	m.savedSums = maps.Clone(m.shaSums)
	m.mu.Unlock()

	return nil
}

func (m *Manager) recordCheck(name BinaryName, status string) {
	if m.metrics != nil {
		m.metrics.RecordDependencyCheck(string(name), status)
	}
}
