package pdf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePageSpecifier parses a page selection such as "1", "1,3", "2-5" or
// "1,3-5,7" into a sorted list of distinct page numbers. Pages above
// MaxPageNumber are rejected before any range is expanded.
func ParsePageSpecifier(spec string) ([]int, error) {
	spec = strings.Join(strings.Fields(spec), "")
	if spec == "" {
		return nil, fmt.Errorf("empty page specification")
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		first, last, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(last); err != nil {
				return nil, fmt.Errorf("invalid end page: %q", part)
			}
			if start > end {
				return nil, fmt.Errorf("invalid range: start > end (%d > %d)", start, end)
			}
		}
		if end > MaxPageNumber {
			return nil, fmt.Errorf("page %d exceeds the maximum of %d", end, MaxPageNumber)
		}
		for p := start; p <= end; p++ {
			seen[p] = true
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// ValidatePageNumbers checks that every page exists in a document of totalPages.
func ValidatePageNumbers(pages []int, totalPages int) error {
	for _, page := range pages {
		if page < 1 {
			return fmt.Errorf("page numbers must be positive, got %d", page)
		}
		if page > totalPages {
			return fmt.Errorf("page %d exceeds total pages (%d)", page, totalPages)
		}
	}
	return nil
}
