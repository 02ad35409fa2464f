package entity_test

import (
	"errors"
	"testing"

	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
)

func TestSetAudioOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start      entity.Options
		on         bool
		wantFormat entity.Format
	}{
		{
			name:       "toggle on forces audio format",
			start:      entity.DefaultOptions(),
			on:         true,
			wantFormat: entity.FormatMP3,
		},
		{
			name:       "toggle off forces video format",
			start:      entity.Options{Quality: entity.QualityBest, Format: entity.FormatFLAC, AudioOnly: true},
			on:         false,
			wantFormat: entity.FormatMP4,
		},
		{
			name:       "no transition keeps a reselected format",
			start:      entity.Options{Quality: entity.QualityBest, Format: entity.FormatWEBM, AudioOnly: true},
			on:         true,
			wantFormat: entity.FormatWEBM,
		},
		{
			name:       "staying off keeps format",
			start:      entity.Options{Quality: entity.QualityBest, Format: entity.FormatMKV},
			on:         false,
			wantFormat: entity.FormatMKV,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := tc.start.SetAudioOnly(tc.on)
			if got.AudioOnly != tc.on {
				t.Errorf("AudioOnly = %v, want %v", got.AudioOnly, tc.on)
			}

			if got.Format != tc.wantFormat {
				t.Errorf("Format = %q, want %q", got.Format, tc.wantFormat)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    entity.Options
		wantErr error
	}{
		{name: "defaults", opts: entity.DefaultOptions()},
		{name: "audio", opts: entity.Options{Quality: entity.Quality720p, Format: entity.FormatOpus, AudioOnly: true}},
		{name: "bad quality", opts: entity.Options{Quality: "4k", Format: entity.FormatMP4}, wantErr: errs.ErrInvalidQuality},
		{name: "bad format", opts: entity.Options{Quality: entity.QualityBest, Format: "avi"}, wantErr: errs.ErrInvalidFormat},
		{name: "ogg is not selectable", opts: entity.Options{Quality: entity.QualityBest, Format: entity.FormatOGG}, wantErr: errs.ErrInvalidFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.opts.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestQualityHeight(t *testing.T) {
	t.Parallel()

	for _, q := range entity.Qualities {
		h, ok := q.Height()

		switch q {
		case entity.QualityBest, entity.QualityWorst:
			if ok {
				t.Errorf("%s: unexpected height %d", q, h)
			}
		default:
			if !ok || h <= 0 {
				t.Errorf("%s: got (%d, %v)", q, h, ok)
			}
		}
	}

	if h, _ := entity.Quality1080p.Height(); h != 1080 {
		t.Errorf("1080p height = %d", h)
	}
}
