// Package engine runs batches of yt-dlp downloads strictly one after another and reports
// progress, classified output and outcomes to a Sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ytbatch/internal/classify"
	"ytbatch/internal/command"
	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
	"ytbatch/internal/process"
	"ytbatch/pkg/calc"
)

// Binaries resolves the yt-dlp executable. It is consulted once per item so binary
// updates apply to the next download.
type Binaries interface {
	YTdlpPath() string
}

// Engine is the download queue engine.
type Engine interface {
	// Submit starts a batch in the background and returns its initial snapshot.
	// Cancelling ctx stops the batch.
	Submit(ctx context.Context, urls []string, opts entity.Options) (entity.Batch, error)
	// Stop stops the active batch: pending items are dropped and the running download is
	// terminated. It does not wait and is a no-op without an active batch.
	Stop()
	// Snapshot returns a copy of the active or last batch state.
	Snapshot() entity.Batch
	// Wait blocks until the active batch, if any, has finished.
	Wait(ctx context.Context) error
}

// runner is the slice of process.Supervisor the engine drives.
type runner interface {
	Start() error
	Lines() iter.Seq[string]
	Wait() (int, error)
	Terminate() error
}

type engine struct {
	log     *slog.Logger
	cfg     *config.Config
	bins    Binaries
	sink    Sink
	metrics *observability.Metrics
	spawn   func(bin string, args []string) runner

	active atomic.Bool
	stop   atomic.Bool

	mu      sync.RWMutex
	current runner
	batch   entity.Batch
	done    chan struct{}
}

var _ Engine = (*engine)(nil)

// New creates an engine that reports every batch to sink.
func New(log *slog.Logger, cfg *config.Config, bins Binaries, sink Sink, metrics *observability.Metrics) Engine {
	return newEngine(log, cfg, bins, sink, metrics)
}

func newEngine(log *slog.Logger, cfg *config.Config, bins Binaries, sink Sink, metrics *observability.Metrics) *engine {
	if sink == nil {
		sink = Sinks()
	}

	eng := &engine{
		log:     log.With(slog.String("package", "engine")),
		cfg:     cfg,
		bins:    bins,
		sink:    sink,
		metrics: metrics,
	}

	eng.spawn = func(bin string, args []string) runner {
		return process.New(log, bin, args, process.Options{
			TerminateGrace: cfg.Engine.TerminateGrace,
			MaxLineSize:    cfg.Engine.MaxLineSize,
		})
	}

	return eng
}

func (e *engine) Submit(ctx context.Context, urls []string, opts entity.Options) (entity.Batch, error) {
	queue := make([]string, 0, len(urls))

	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			queue = append(queue, u)
		}
	}

	if len(queue) == 0 {
		return entity.Batch{}, errs.ErrEmptyBatch
	}

	if err := opts.Validate(); err != nil {
		return entity.Batch{}, fmt.Errorf("validate options: %w", err)
	}

	// a stale stop is cleared under the same lock Stop takes, so a racing Stop is kept
	e.mu.Lock()
	if !e.active.CompareAndSwap(false, true) {
		e.mu.Unlock()

		return entity.Batch{}, errs.ErrBatchActive
	}
	e.stop.Store(false)
	e.mu.Unlock()

	if err := os.MkdirAll(e.cfg.Dir.Downloads, 0o755); err != nil {
		e.active.Store(false)

		return entity.Batch{}, fmt.Errorf("%w: %w", errs.ErrDownloadRoot, err)
	}

	batch := entity.Batch{
		ID:        uuid.NewString(),
		Total:     len(queue),
		Active:    true,
		Options:   opts,
		StartedAt: time.Now(),
	}
	done := make(chan struct{})

	e.mu.Lock()
	e.batch = batch
	e.done = done
	e.mu.Unlock()

	e.metrics.RecordBatchStarted()
	e.log.InfoContext(ctx, "batch submitted", slog.Any("batch", batch), slog.Any("options", opts))

	go e.run(ctx, queue, opts, done)

	return batch, nil
}

func (e *engine) Stop() {
	e.mu.Lock()
	if !e.active.Load() || e.stop.Swap(true) {
		e.mu.Unlock()

		return
	}
	current := e.current
	e.mu.Unlock()

	e.log.Info("stop requested")

	if current == nil {
		return
	}

	if err := current.Terminate(); err != nil {
		e.log.Warn("terminate download", slog.Any("error", err))
	}
}

func (e *engine) Snapshot() entity.Batch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.batch
}

func (e *engine) Wait(ctx context.Context) error {
	e.mu.RLock()
	done := e.done
	e.mu.RUnlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait batch: %w", ctx.Err())
	}
}

// run drains the queue on the batch goroutine. It is the only code touching the queue.
func (e *engine) run(ctx context.Context, queue []string, opts entity.Options, done chan struct{}) {
	defer close(done)

	stopOnCancel := context.AfterFunc(ctx, e.Stop)
	defer stopOnCancel()

	observeBatch := observability.Timer(e.metrics.BatchDuration)
	defer observeBatch()

	total := len(queue)
	stopped := false

	e.emit(fmt.Sprintf(consts.MsgBatchStart, total), entity.CategoryInfo)

	for i, url := range queue {
		if e.stop.Load() {
			stopped = true

			break
		}

		e.mu.Lock()
		e.batch.CurrentIndex = i + 1
		e.batch.CurrentURL = url
		e.batch.ItemPercent = 0
		e.mu.Unlock()

		e.sink.OnProgress(i+1, total, url)

		if interrupted := e.runItem(ctx, url, opts); interrupted {
			stopped = true

			break
		}
	}

	reason := entity.BatchCompleted
	if stopped {
		reason = entity.BatchStopped
	}

	e.mu.Lock()
	e.batch.Active = false
	e.batch.Reason = reason
	e.batch.ETA = 0
	snapshot := e.batch
	e.mu.Unlock()

	e.metrics.RecordBatchFinished(string(reason))

	if stopped {
		e.emit(consts.MsgBatchStopped, entity.CategoryWarn)
	} else {
		e.emit(consts.MsgBatchCompleted, entity.CategorySuccess)
	}

	e.log.InfoContext(ctx, "batch finished", slog.Any("batch", snapshot))

	e.sink.OnBatchFinished(reason)

	// released last so the next batch's events never interleave with this one's
	e.active.Store(false)
}

// runItem downloads one URL. It reports true when the item was interrupted by a stop,
// in which case no item-finished event is sent.
func (e *engine) runItem(ctx context.Context, url string, opts entity.Options) bool {
	log := e.log.With(slog.String("url", url))

	observeItem := observability.Timer(e.metrics.ItemDuration)
	defer observeItem()

	e.emit(consts.MsgItemStart+url, entity.CategoryInfo)

	cmd, err := command.Build(url, opts, e.cfg.Dir.Downloads)
	if err != nil {
		log.WarnContext(ctx, "build command", slog.Any("error", err))
		e.metrics.RecordItemError(observability.ErrorTypeBuild)
		e.emit(fmt.Sprintf(consts.MsgItemBuildFail, url, err), entity.CategoryError)
		e.finishItem(url, false, -1)

		return false
	}

	bin := e.bins.YTdlpPath()
	log.InfoContext(ctx, "starting download", slog.String("cmd", cmd.String(bin)))

	proc := e.spawn(bin, cmd.Args)

	e.mu.Lock()
	if e.stop.Load() {
		e.mu.Unlock()
		e.interrupted(url)

		return true
	}
	e.current = proc
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.current = nil
		e.mu.Unlock()
	}()

	if err := proc.Start(); err != nil {
		if errors.Is(err, errs.ErrTerminated) {
			e.interrupted(url)

			return true
		}

		log.ErrorContext(ctx, "start download", slog.Any("error", err))
		e.metrics.RecordItemError(observability.ErrorTypeSpawn)
		e.emit(fmt.Sprintf(consts.MsgItemSpawnFail, url, err), entity.CategoryError)
		e.finishItem(url, false, -1)

		return false
	}

	for line := range proc.Lines() {
		if pct, ok := classify.Progress(line); ok {
			e.mu.Lock()
			e.batch.ItemPercent = pct
			e.mu.Unlock()
		}

		e.emit(line, classify.Line(line))
	}

	exitCode, err := proc.Wait()
	if err != nil {
		log.WarnContext(ctx, "wait download", slog.Any("error", err))
	}

	if e.stop.Load() {
		e.interrupted(url)

		return true
	}

	success := exitCode == 0
	if success {
		e.emit(consts.MsgItemDone+url, entity.CategorySuccess)
	} else {
		e.metrics.RecordItemError(observability.ErrorTypeExit)
		e.emit(fmt.Sprintf(consts.MsgItemExit, exitCode, url), entity.CategoryError)
	}

	e.finishItem(url, success, exitCode)

	return false
}

func (e *engine) interrupted(url string) {
	e.metrics.RecordItemFinished(observability.ItemTerminated)
	e.emit(consts.MsgItemTerminated+url, entity.CategoryWarn)
}

// finishItem counts the item as done, whatever its outcome, and reports it.
func (e *engine) finishItem(url string, success bool, exitCode int) {
	e.mu.Lock()
	e.batch.Completed++
	e.batch.Progress = calc.Progress(e.batch.Completed, e.batch.Total)
	e.batch.ETA = calc.ETA(e.batch.Completed, e.batch.Total, e.batch.StartedAt)
	e.mu.Unlock()

	if success {
		e.metrics.RecordItemFinished(observability.ItemSuccess)
	} else {
		e.metrics.RecordItemFinished(observability.ItemFailed)
	}

	e.sink.OnItemFinished(url, success, exitCode)
}

func (e *engine) emit(text string, category entity.Category) {
	e.metrics.RecordLogLine(string(category))
	e.sink.OnLogLine(text, category)
}
