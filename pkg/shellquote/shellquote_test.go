package shellquote_test

import (
	"reflect"
	"slices"
	"testing"

	"ytbatch/pkg/shellquote"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{name: "empty", in: "", want: nil},
		{name: "blank", in: "   \t ", want: nil},
		{name: "plain words", in: "--limit-rate 1M --no-mtime", want: []string{"--limit-rate", "1M", "--no-mtime"}},
		{
			name: "double quoted value survives",
			in:   `--postprocessor-args "ffmpeg:-ss 10"`,
			want: []string{"--postprocessor-args", "ffmpeg:-ss 10"},
		},
		{
			name: "single quoted value survives",
			in:   `--match-filter 'duration < 600'`,
			want: []string{"--match-filter", "duration < 600"},
		},
		{name: "escaped space", in: `--cookies my\ cookies.txt`, want: []string{"--cookies", "my cookies.txt"}},
		{name: "unbalanced double quote", in: `--title "abc`, wantErr: true},
		{name: "unbalanced single quote", in: `--title 'abc`, wantErr: true},
		{name: "trailing escape", in: `--title abc\`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := shellquote.Split(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Split(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}

			if tc.wantErr {
				return
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Split(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bin  string
		args []string
		want string
	}{
		{
			name: "no args",
			bin:  "/usr/bin/yt-dlp",
			args: nil,
			want: "/usr/bin/yt-dlp",
		},
		{
			name: "simple args",
			bin:  "/usr/bin/yt-dlp",
			args: []string{"--newline"},
			want: "/usr/bin/yt-dlp --newline",
		},
		{
			name: "spaces are preserved via quotes",
			bin:  "yt-dlp",
			args: []string{"-o", "My Video %(title)s.%(ext)s"},
			want: `yt-dlp -o 'My Video %(title)s.%(ext)s'`,
		},
		{
			name: "url with query chars",
			bin:  "yt-dlp",
			args: []string{"https://example.com/watch?v=a&b=1"},
			want: `yt-dlp https://example.com/watch\?v=a\&b=1`,
		},
		{
			name: "embedded double quote is escaped",
			bin:  "yt-dlp",
			args: []string{"--title", `a"b`},
			want: `yt-dlp --title a\"b`,
		},
		{
			name: "backslashes are escaped",
			bin:  "yt-dlp",
			args: []string{"-o", `C:\temp\file.%(ext)s`},
			want: `yt-dlp -o C:\\temp\\file.%(ext)s`,
		},
		{
			name: "empty arg",
			bin:  "yt-dlp",
			args: []string{""},
			want: `yt-dlp ''`,
		},
		{
			name: "single quote inside quoted word",
			bin:  "yt-dlp",
			args: []string{"it's here"},
			want: `yt-dlp 'it'\''s here'`,
		},
		{
			name: "newline stays literal inside quotes",
			bin:  "yt-dlp",
			args: []string{"--comment", "line1\nline2"},
			want: "yt-dlp --comment 'line1\nline2'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := shellquote.Join(tc.bin, tc.args)
			if got != tc.want {
				t.Fatalf("Join() = %q, want %q", got, tc.want)
			}

			words, err := shellquote.Split(got)
			if err != nil {
				t.Fatalf("Split(Join()) failed: %v", err)
			}

			if want := append([]string{tc.bin}, tc.args...); !slices.Equal(words, want) {
				t.Errorf("Split(Join()) = %q, want %q", words, want)
			}
		})
	}
}
