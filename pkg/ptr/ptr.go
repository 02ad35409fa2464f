// Package ptr provides utility functions for working with pointers.
package ptr

// Or returns the value p points to, or fallback when p is nil.
func Or[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}

	return *p
}

// Of returns a pointer to the given value.
func Of[T any](s T) *T { return &s }
