package sysfsattr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseIntList expands a kernel-style list specification such as
// "0-3 5 7-9" into {0,1,2,3,5,7,8,9}, sorted ascending and
// de-duplicated. Input with no entries yields a nil slice.
func ParseIntList(raw string) ([]int, error) {
	seen := make(map[int]struct{})

	for _, field := range strings.Fields(raw) {
		if dash := strings.IndexByte(field, '-'); dash > 0 {
			loStr, hiStr := field[:dash], field[dash+1:]
			lo, err := strconv.Atoi(loStr)
			if err != nil {
				return nil, fmt.Errorf("invalid range start %q in %q: %w", loStr, field, err)
			}
			hi, err := strconv.Atoi(hiStr)
			if err != nil {
				return nil, fmt.Errorf("invalid range end %q in %q: %w", hiStr, field, err)
			}
			if hi < lo {
				return nil, fmt.Errorf("invalid range %q: end before start", field)
			}
			for n := lo; n <= hi; n++ {
				seen[n] = struct{}{}
			}
			continue
		}

		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", field, err)
		}
		seen[n] = struct{}{}
	}

	if len(seen) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}
