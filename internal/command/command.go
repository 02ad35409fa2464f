// Package command builds yt-dlp argument vectors from download options.
package command

import (
	"fmt"
	"path/filepath"

	"ytbatch/internal/consts"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/pkg/shellquote"
)

// yt-dlp flags emitted by Build.
const (
	flagExtractAudio      = "-x"
	flagAudioFormat       = "--audio-format"
	flagFormat            = "-f"
	flagMergeOutputFormat = "--merge-output-format"
	flagEmbedThumbnail    = "--embed-thumbnail"
	flagWriteThumbnail    = "--write-thumbnail"
	flagConvertThumbnails = "--convert-thumbnails"
	flagOutput            = "-o"
	flagNewline           = "--newline"
)

// Command is a resolved yt-dlp invocation without the executable.
type Command struct {
	Args           []string
	OutputTemplate string
}

// String renders a shell-pasteable command line for bin.
func (c Command) String(bin string) string {
	return shellquote.Join(bin, c.Args)
}

// OutputTemplate returns the yt-dlp output template rooted at downloadRoot.
// The placeholders are expanded by yt-dlp itself.
func OutputTemplate(downloadRoot string) string {
	return filepath.Join(
		downloadRoot,
		"%(extractor)s",
		"%(uploader|"+consts.UnknownUploader+")s",
		"%(title)s.%(ext)s",
	)
}

// Build returns the argument vector for downloading url with opts.
// The URL is always the last argument.
func Build(url string, opts entity.Options, downloadRoot string) (Command, error) {
	extra, err := shellquote.Split(opts.ExtraArgs)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", errs.ErrExtraArgs, err)
	}

	tmpl := OutputTemplate(downloadRoot)

	args := make([]string, 0, 16+len(extra))

	if opts.AudioOnly {
		args = append(args, flagExtractAudio, flagAudioFormat, string(opts.Format))
	} else {
		args = append(args, flagFormat, FormatSelector(opts.Quality, opts.Format), flagMergeOutputFormat, string(opts.Format))
	}

	if opts.Format.EmbedsThumbnail() {
		args = append(args, flagEmbedThumbnail)
	} else {
		args = append(args, flagWriteThumbnail, flagConvertThumbnails, consts.ThumbnailFormat)
	}

	args = append(args, flagOutput, tmpl, flagNewline)
	args = append(args, extra...)
	args = append(args, url)

	return Command{Args: args, OutputTemplate: tmpl}, nil
}

// FormatSelector returns the yt-dlp -f expression for a video download.
func FormatSelector(quality entity.Quality, format entity.Format) string {
	if h, ok := quality.Height(); ok {
		return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", h, h)
	}

	switch quality {
	case entity.QualityWorst:
		return "worstvideo+worstaudio/worst"
	default:
		if format.IsVideoContainer() {
			return fmt.Sprintf("bestvideo[ext=%s]+bestaudio/best[ext=%s]/best", format, format)
		}

		return "bestvideo+bestaudio/best"
	}
}
