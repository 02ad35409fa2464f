// Package shellquote provides utilities for splitting and constructing shell-quoted command strings.
package shellquote

import (
	"fmt"
	"strings"

	kshellquote "github.com/kballard/go-shellquote"
)

// Split breaks s into words using POSIX shell rules, so quoted substrings stay single words.
// Unbalanced quotes and trailing escapes are reported as errors instead of being dropped.
func Split(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	words, err := kshellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", s, err)
	}

	return words, nil
}

// Join constructs a shell-pasteable command line from bin and args. Split on the result
// yields bin and args back.
func Join(bin string, args []string) string {
	return kshellquote.Join(append([]string{bin}, args...)...)
}
