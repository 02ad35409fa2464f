// Package storage keeps the in-memory record of delivered batch events for the presentation layer.
package storage

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/engine"
	"ytbatch/internal/entity"
	"ytbatch/internal/observability"
)

// Journal is a bounded, sequence-numbered log of batch events. It is an engine.Sink.
type Journal interface {
	engine.Sink

	// Since returns up to limit events with a sequence number greater than seq, oldest first.
	// A limit <= 0 returns everything retained. The second value is the latest sequence number.
	Since(ctx context.Context, seq uint64, limit int) ([]entity.LogEvent, uint64)
	// Results returns the item outcomes of the current or last batch.
	Results(ctx context.Context) []entity.ItemResult
	// Finished returns the reason of the last finished batch, if any.
	Finished(ctx context.Context) (entity.BatchReason, bool)
	// Clear drops every retained event. Sequence numbers keep counting up.
	Clear(ctx context.Context)
}

type journal struct {
	log     *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	events  []entity.LogEvent // ring buffer
	head    int               // index of the oldest event once the ring is full
	seq     uint64
	results []entity.ItemResult
	reason  entity.BatchReason
}

var _ Journal = (*journal)(nil)

// New creates an empty journal retaining cfg.Engine.JournalSize events.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) Journal {
	size := max(cfg.Engine.JournalSize, 1)

	return &journal{
		log:     log.With(slog.String("package", "storage")),
		metrics: metrics,
		events:  make([]entity.LogEvent, 0, size),
	}
}

func (j *journal) OnProgress(current, _ int, _ string) {
	if current != 1 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.results = nil
	j.reason = ""
}

func (j *journal) OnLogLine(text string, category entity.Category) {
	j.mu.Lock()

	j.seq++
	event := entity.LogEvent{Seq: j.seq, Text: text, Category: category, Time: time.Now()}

	if len(j.events) < cap(j.events) {
		j.events = append(j.events, event)
	} else {
		j.events[j.head] = event
		j.head = (j.head + 1) % len(j.events)
	}

	count := len(j.events)
	j.mu.Unlock()

	j.metrics.SetJournalEvents(count)
	j.log.Debug("event stored", slog.Any("event", event))
}

func (j *journal) OnItemFinished(url string, success bool, exitCode int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.results = append(j.results, entity.ItemResult{URL: url, Success: success, ExitCode: exitCode})
}

func (j *journal) OnBatchFinished(reason entity.BatchReason) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.reason = reason
}

func (j *journal) Since(_ context.Context, seq uint64, limit int) ([]entity.LogEvent, uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	ordered := append(slices.Clone(j.events[j.head:]), j.events[:j.head]...)

	// sequence numbers are contiguous, so the first match is found by offset
	start := len(ordered)
	if len(ordered) > 0 {
		oldest := ordered[0].Seq
		switch {
		case seq < oldest:
			start = 0
		case seq < j.seq:
			start = int(seq - oldest + 1)
		}
	}

	out := ordered[start:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, j.seq
}

func (j *journal) Results(_ context.Context) []entity.ItemResult {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return slices.Clone(j.results)
}

func (j *journal) Finished(_ context.Context) (entity.BatchReason, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.reason, j.reason != ""
}

func (j *journal) Clear(ctx context.Context) {
	j.mu.Lock()
	j.events = j.events[:0]
	j.head = 0
	j.mu.Unlock()

	j.metrics.SetJournalEvents(0)
	j.log.DebugContext(ctx, "journal cleared")
}
