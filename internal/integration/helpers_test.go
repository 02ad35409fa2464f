//go:build integration

package integration_test

import (
	"context"
	_ "embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ytbatch/internal/config"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/engine"
	"ytbatch/internal/entity"
	"ytbatch/internal/observability"
	"ytbatch/internal/storage"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTDLPScript string

type fixture struct {
	cfg      *config.Config
	depMgr   *depmanager.Manager
	journal  storage.Journal
	engine   engine.Engine
	reg      *prometheus.Registry
	metrics  *observability.Metrics
	argsFile string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("integration fake yt-dlp helper uses shell script")
	}

	baseDir := t.TempDir()
	binsDir := filepath.Join(baseDir, "bins")
	downloadsDir := filepath.Join(baseDir, "downloads")

	if err := os.MkdirAll(binsDir, 0o755); err != nil {
		t.Fatalf("mkdir bins dir: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config new: %v", err)
	}

	cfg.DepManager.BinsDir = binsDir
	cfg.DepManager.UseSystemBinaries = true
	cfg.Dir.Downloads = downloadsDir
	cfg.Engine.TerminateGrace = 2 * time.Second
	cfg.HTTP.HandlerTimeout = 5 * time.Second

	if err := os.WriteFile(filepath.Join(binsDir, "yt-dlp"), []byte(fakeYTDLPScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}

	argsFile := filepath.Join(baseDir, "args.txt")
	t.Setenv("PATH", binsDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("YTBATCH_FAKE_ARGS_FILE", argsFile)
	t.Setenv("YTBATCH_FAKE_DEST", filepath.Join(downloadsDir, "generic", "Unknown", "clip.mp3"))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	metrics := observability.New(reg)

	depMgr := depmanager.New(log, cfg, metrics)
	// ffmpeg may be missing on the test host; only yt-dlp matters here
	_ = depMgr.ResolveSystem()

	if got, want := depMgr.YTdlpPath(), filepath.Join(binsDir, "yt-dlp"); got != want {
		t.Fatalf("yt-dlp resolved to %q, want %q", got, want)
	}

	journal := storage.New(log, cfg, metrics)
	eng := engine.New(log, cfg, depMgr, journal, metrics)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		eng.Stop()
		_ = eng.Wait(ctx)
	})

	return &fixture{
		cfg:      cfg,
		depMgr:   depMgr,
		journal:  journal,
		engine:   eng,
		reg:      reg,
		metrics:  metrics,
		argsFile: argsFile,
	}
}

// invocations returns the argument vectors the fake yt-dlp was started with, in order.
func (fx *fixture) invocations(t *testing.T) [][]string {
	t.Helper()

	data, err := os.ReadFile(fx.argsFile)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		t.Fatalf("read args file: %v", err)
	}

	var (
		out     [][]string
		current []string
	)

	for line := range strings.Lines(string(data)) {
		line = strings.TrimSuffix(line, "\n")
		if line == "----" {
			out = append(out, current)
			current = nil

			continue
		}

		current = append(current, line)
	}

	return out
}

func (fx *fixture) texts(t *testing.T) []string {
	t.Helper()

	events, _ := fx.journal.Since(t.Context(), 0, 0)

	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e.Category)+" "+e.Text)
	}

	return out
}

// waitForLine polls the journal until a line containing substr was delivered.
func (fx *fixture) waitForLine(t *testing.T, substr string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, line := range fx.texts(t) {
			if strings.Contains(line, substr) {
				return
			}
		}

		time.Sleep(25 * time.Millisecond)
	}

	t.Fatalf("line %q not delivered within %s; got %q", substr, timeout, fx.texts(t))
}

func (fx *fixture) finished(t *testing.T) entity.BatchReason {
	t.Helper()

	reason, ok := fx.journal.Finished(t.Context())
	if !ok {
		t.Fatal("batch did not report a finish reason")
	}

	return reason
}
