package httprouter

import (
	"sync"

	"ytbatch/internal/entity"
)

// optionForm is the option state a client edits between batches.
// A submitted batch takes a copy, so later edits never reach it.
type optionForm struct {
	mu   sync.RWMutex
	opts entity.Options
}

func newOptionForm() *optionForm {
	return &optionForm{opts: entity.DefaultOptions()}
}

func (f *optionForm) get() entity.Options {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.opts
}

// update applies fn under the lock and stores the result unless fn fails.
func (f *optionForm) update(fn func(entity.Options) (entity.Options, error)) (entity.Options, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := fn(f.opts)
	if err != nil {
		return f.opts, err
	}

	f.opts = next

	return next, nil
}
