// Package entity defines the core entities used in the application.
package entity

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"ytbatch/internal/errs"
)

// Quality is the video quality selector.
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
	Quality360p  Quality = "360p"
	QualityWorst Quality = "worst"
)

// Qualities lists every supported quality in display order.
var Qualities = []Quality{QualityBest, Quality1080p, Quality720p, Quality480p, Quality360p, QualityWorst}

// Height returns the maximum frame height for height-capped qualities.
func (q Quality) Height() (int, bool) {
	switch q {
	case Quality1080p, Quality720p, Quality480p, Quality360p:
		h, err := strconv.Atoi(strings.TrimSuffix(string(q), "p"))

		return h, err == nil
	default:
		return 0, false
	}
}

// Format is the output container format.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatMKV  Format = "mkv"
	FormatWEBM Format = "webm"
	FormatMP3  Format = "mp3"
	FormatM4A  Format = "m4a"
	FormatOpus Format = "opus"
	FormatFLAC Format = "flac"
	FormatWAV  Format = "wav"
	// FormatOGG is never offered as a choice but supports embedded thumbnails.
	FormatOGG Format = "ogg"
)

// Formats lists every selectable format in display order.
var Formats = []Format{FormatMP4, FormatMKV, FormatWEBM, FormatMP3, FormatM4A, FormatOpus, FormatFLAC, FormatWAV}

// Format defaults applied when audio-only is toggled.
const (
	DefaultAudioFormat = FormatMP3
	DefaultVideoFormat = FormatMP4
)

// IsVideoContainer reports whether a format-constrained "best" selection is possible.
func (f Format) IsVideoContainer() bool {
	return f == FormatMP4 || f == FormatMKV || f == FormatWEBM
}

// IsAudio reports whether the format is an audio-only format.
func (f Format) IsAudio() bool {
	switch f {
	case FormatMP3, FormatM4A, FormatOpus, FormatFLAC, FormatWAV, FormatOGG:
		return true
	default:
		return false
	}
}

// EmbedsThumbnail reports whether yt-dlp can embed a thumbnail in this container.
func (f Format) EmbedsThumbnail() bool {
	switch f {
	case FormatMP4, FormatM4A, FormatMP3, FormatOGG, FormatOpus, FormatFLAC:
		return true
	default:
		return false
	}
}

// Options are the user-selected download options. A batch keeps its own copy.
type Options struct {
	Quality   Quality `json:"quality"`
	Format    Format  `json:"format"`
	AudioOnly bool    `json:"audioOnly"`
	ExtraArgs string  `json:"extraArgs"`
}

// DefaultOptions returns the initial option form state.
func DefaultOptions() Options {
	return Options{
		Quality: QualityBest,
		Format:  DefaultVideoFormat,
	}
}

// SetAudioOnly applies the audio-only toggle. The format is only overwritten on a transition,
// so a format picked after enabling audio-only is kept.
func (o Options) SetAudioOnly(on bool) Options {
	if o.AudioOnly == on {
		return o
	}

	o.AudioOnly = on
	if on {
		o.Format = DefaultAudioFormat
	} else {
		o.Format = DefaultVideoFormat
	}

	return o
}

// Validate checks quality and format against the supported values.
func (o Options) Validate() error {
	if !slices.Contains(Qualities, o.Quality) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidQuality, o.Quality)
	}

	if !slices.Contains(Formats, o.Format) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidFormat, o.Format)
	}

	return nil
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (o Options) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("quality", string(o.Quality)),
		slog.String("format", string(o.Format)),
		slog.Bool("audioOnly", o.AudioOnly),
		slog.String("extraArgs", o.ExtraArgs),
	)
}

// Category is the display category of an output line.
type Category string

const (
	CategoryError   Category = "error"
	CategoryWarn    Category = "warn"
	CategorySuccess Category = "success"
	CategoryInfo    Category = "info"
)

// LogEvent is one classified line delivered to the presentation layer.
type LogEvent struct {
	Seq      uint64    `json:"seq"`
	Text     string    `json:"text"`
	Category Category  `json:"category"`
	Time     time.Time `json:"time"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (e LogEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("seq", e.Seq),
		slog.String("category", string(e.Category)),
		slog.String("text", e.Text),
	)
}

// BatchReason tells why a batch ended.
type BatchReason string

const (
	// BatchCompleted means every queued item was attempted.
	BatchCompleted BatchReason = "completed"
	// BatchStopped means the user stopped the batch.
	BatchStopped BatchReason = "stopped"
)

// ItemResult is the terminal outcome of one item.
type ItemResult struct {
	URL      string `json:"url"`
	Success  bool   `json:"success"`
	ExitCode int    `json:"exitCode"`
}

// Batch is a read-only snapshot of the running (or last) batch.
type Batch struct {
	ID           string        `json:"id"`
	Total        int           `json:"total"`
	Completed    int           `json:"completed"`
	Active       bool          `json:"active"`
	CurrentIndex int           `json:"currentIndex"`
	CurrentURL   string        `json:"currentUrl"`
	ItemPercent  float64       `json:"itemPercent"`
	Progress     int           `json:"progress"`
	ETA          time.Duration `json:"eta"`
	Options      Options       `json:"options"`
	Reason       BatchReason   `json:"reason,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (b Batch) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", b.ID),
		slog.Int("total", b.Total),
		slog.Int("completed", b.Completed),
		slog.Bool("active", b.Active),
		slog.Int("currentIndex", b.CurrentIndex),
		slog.String("currentUrl", b.CurrentURL),
		slog.String("reason", string(b.Reason)),
	)
}
