// Package utils provides small, generic helpers shared across layers.
package utils

import "strconv"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer. No whitespace trimming is performed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams parses page and page_size query values into bounded pagination
// inputs: page is at least 1 and page_size is clamped to [1, 100] with a
// default of 20.
func PageParams(pageStr, sizeStr string) (page, pageSize int) {
	page = AtoiDefault(pageStr, 1)
	if page < 1 {
		page = 1
	}
	pageSize = AtoiDefault(sizeStr, defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
