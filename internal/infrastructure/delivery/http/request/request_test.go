package request_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/infrastructure/delivery/http/request"
	"ytbatch/pkg/ptr"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	var in request.Batch
	if err := request.Decode(strings.NewReader(`{"urls":["https://a"],"text":"https://b\n"}`), &in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := request.Decode(strings.NewReader(`{"url":"https://a"}`), &in); !errors.Is(err, errs.ErrInvalidRequestBody) {
		t.Errorf("unknown field: got %v, want %v", err, errs.ErrInvalidRequestBody)
	}

	if err := request.Decode(strings.NewReader(`{`), &in); !errors.Is(err, errs.ErrInvalidRequestBody) {
		t.Errorf("truncated body: got %v, want %v", err, errs.ErrInvalidRequestBody)
	}
}

func TestBatchURLList(t *testing.T) {
	t.Parallel()

	in := request.Batch{
		URLs: []string{" https://a ", "", "ytsearch:cats"},
		Text: "https://b\r\n\n   \nhttps://c",
	}

	want := []string{"https://a", "ytsearch:cats", "https://b", "https://c"}
	if got := in.URLList(); !reflect.DeepEqual(got, want) {
		t.Errorf("URLList() = %q, want %q", got, want)
	}
}

func TestBatchValidate(t *testing.T) {
	t.Parallel()

	bad := entity.DefaultOptions()
	bad.Format = "avi"

	unbalanced := entity.DefaultOptions()
	unbalanced.ExtraArgs = `--title "open`

	tests := []struct {
		name string
		in   request.Batch
		want error
	}{
		{name: "ok", in: request.Batch{URLs: []string{"https://a"}}},
		{name: "blank", in: request.Batch{URLs: []string{" "}, Text: "\n\n"}, want: errs.ErrEmptyBatch},
		{name: "bad options", in: request.Batch{Text: "https://a", Options: &bad}, want: errs.ErrInvalidFormat},
		{name: "malformed extra args", in: request.Batch{Text: "https://a", Options: &unbalanced}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if err := tc.in.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cur  entity.Options
		in   request.Options
		want entity.Options
	}{
		{
			name: "empty update",
			cur:  entity.DefaultOptions(),
			want: entity.DefaultOptions(),
		},
		{
			name: "audio on forces mp3",
			cur:  entity.DefaultOptions(),
			in:   request.Options{AudioOnly: ptr.Of(true)},
			want: entity.Options{Quality: entity.QualityBest, Format: entity.FormatMP3, AudioOnly: true},
		},
		{
			name: "explicit format wins over toggle",
			cur:  entity.DefaultOptions(),
			in:   request.Options{AudioOnly: ptr.Of(true), Format: ptr.Of(entity.FormatFLAC)},
			want: entity.Options{Quality: entity.QualityBest, Format: entity.FormatFLAC, AudioOnly: true},
		},
		{
			name: "repeated audio on keeps chosen format",
			cur:  entity.Options{Quality: entity.QualityBest, Format: entity.FormatOpus, AudioOnly: true},
			in:   request.Options{AudioOnly: ptr.Of(true)},
			want: entity.Options{Quality: entity.QualityBest, Format: entity.FormatOpus, AudioOnly: true},
		},
		{
			name: "audio off forces mp4",
			cur:  entity.Options{Quality: entity.Quality720p, Format: entity.FormatM4A, AudioOnly: true},
			in:   request.Options{AudioOnly: ptr.Of(false), ExtraArgs: ptr.Of("--no-part")},
			want: entity.Options{Quality: entity.Quality720p, Format: entity.FormatMP4, ExtraArgs: "--no-part"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.in.Apply(tc.cur); got != tc.want {
				t.Errorf("Apply() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
