// Package request holds the HTTP request bodies and their validation.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/pkg/ptr"
)

// Decode reads one JSON value from r into dst. Unknown fields are rejected.
func Decode(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidRequestBody, err)
	}

	return nil
}

// Batch starts a batch. URLs may be given as a list, as newline-separated text, or both.
// Options default to the current option form when omitted.
type Batch struct {
	URLs    []string        `json:"urls"`
	Text    string          `json:"text"`
	Options *entity.Options `json:"options"`
}

// URLList returns the submitted URLs in order with blank lines dropped.
func (b *Batch) URLList() []string {
	var out []string

	for _, u := range b.URLs {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}

	for line := range strings.Lines(b.Text) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}

	return out
}

func (b *Batch) Validate() error {
	if len(b.URLList()) == 0 {
		return errs.ErrEmptyBatch
	}

	if b.Options != nil {
		return b.Options.Validate()
	}

	return nil
}

// Options is a partial update of the option form. Nil fields are left unchanged.
type Options struct {
	Quality   *entity.Quality `json:"quality"`
	Format    *entity.Format  `json:"format"`
	AudioOnly *bool           `json:"audioOnly"`
	ExtraArgs *string         `json:"extraArgs"`
}

// Apply returns cur with the update applied. The audio-only toggle goes first so an explicit
// format in the same update wins over the toggle default.
func (o *Options) Apply(cur entity.Options) entity.Options {
	cur = cur.SetAudioOnly(ptr.Or(o.AudioOnly, cur.AudioOnly))
	cur.Quality = ptr.Or(o.Quality, cur.Quality)
	cur.Format = ptr.Or(o.Format, cur.Format)
	cur.ExtraArgs = ptr.Or(o.ExtraArgs, cur.ExtraArgs)

	return cur
}
