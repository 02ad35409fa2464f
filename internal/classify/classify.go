// Package classify maps yt-dlp output lines to display categories.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"ytbatch/internal/entity"
)

// Markers are matched case-insensitively as substrings. Order of the rules matters:
// the first matching category wins.
var rules = []struct {
	category entity.Category
	markers  []string
}{
	{entity.CategoryError, []string{"[error]", "error:", "failed", "✘"}},
	{entity.CategoryWarn, []string{"[warning]", "warn"}},
	{entity.CategorySuccess, []string{"[download]", "100%", "destination:", "merging"}},
}

// reProgress matches "[download]  42.3% of ..." lines.
var reProgress = regexp.MustCompile(`\[download\]\s+(\d{1,3}(?:\.\d+)?)%`)

// Line returns the category of one output line.
func Line(line string) entity.Category {
	lower := strings.ToLower(line)

	for _, rule := range rules {
		for _, marker := range rule.markers {
			if strings.Contains(lower, marker) {
				return rule.category
			}
		}
	}

	return entity.CategoryInfo
}

// Progress extracts the download percentage from a yt-dlp progress line.
func Progress(line string) (float64, bool) {
	m := reProgress.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}

	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	return pct, true
}
