package ptr_test

import (
	"testing"

	"ytbatch/pkg/ptr"
)

func TestOr(t *testing.T) {
	t.Parallel()

	if got := ptr.Or[int](nil, 7); got != 7 {
		t.Errorf("Or(nil, 7) = %d", got)
	}

	if got := ptr.Or(ptr.Of(0), 7); got != 0 {
		t.Errorf("Or(&0, 7) = %d", got)
	}

	if got := ptr.Or(ptr.Of(false), true); got {
		t.Error("Or(&false, true) = true")
	}
}
