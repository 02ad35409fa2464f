package engine

import (
	"log/slog"

	"ytbatch/internal/entity"
)

// Sink receives batch events. All calls for one batch come from the engine's batch goroutine,
// in emission order; implementations shared with other goroutines must synchronize themselves.
type Sink interface {
	// OnProgress announces the item about to start. current is 1-based.
	OnProgress(current, total int, url string)
	// OnLogLine delivers one classified output or status line.
	OnLogLine(text string, category entity.Category)
	// OnItemFinished reports the terminal outcome of an item. Not sent for an item
	// interrupted by a stop.
	OnItemFinished(url string, success bool, exitCode int)
	// OnBatchFinished is sent exactly once per batch, after every other event.
	OnBatchFinished(reason entity.BatchReason)
}

type multiSink []Sink

// Sinks fans events out to every non-nil sink in order.
func Sinks(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return out
}

func (m multiSink) OnProgress(current, total int, url string) {
	for _, s := range m {
		s.OnProgress(current, total, url)
	}
}

func (m multiSink) OnLogLine(text string, category entity.Category) {
	for _, s := range m {
		s.OnLogLine(text, category)
	}
}

func (m multiSink) OnItemFinished(url string, success bool, exitCode int) {
	for _, s := range m {
		s.OnItemFinished(url, success, exitCode)
	}
}

func (m multiSink) OnBatchFinished(reason entity.BatchReason) {
	for _, s := range m {
		s.OnBatchFinished(reason)
	}
}

// LogSink writes batch events to a structured logger. Output lines go out at debug level.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink that logs through log.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With(slog.String("package", "engine"), slog.String("sink", "log"))}
}

// OnProgress implements Sink.
func (l *LogSink) OnProgress(current, total int, url string) {
	l.log.Info("item started", slog.Int("current", current), slog.Int("total", total), slog.String("url", url))
}

// OnLogLine implements Sink.
func (l *LogSink) OnLogLine(text string, category entity.Category) {
	l.log.Debug("output", slog.String("category", string(category)), slog.String("line", text))
}

// OnItemFinished implements Sink.
func (l *LogSink) OnItemFinished(url string, success bool, exitCode int) {
	attrs := []any{slog.String("url", url), slog.Int("exit_code", exitCode)}
	if success {
		l.log.Info("item finished", attrs...)

		return
	}

	l.log.Warn("item failed", attrs...)
}

// OnBatchFinished implements Sink.
func (l *LogSink) OnBatchFinished(reason entity.BatchReason) {
	l.log.Info("batch finished", slog.String("reason", string(reason)))
}
