// Package utils holds small helpers shared by the transport and service
// layers. Nothing here knows about interviews.
package utils

import "strconv"

// Page limits applied when a caller does not choose, or chooses too much.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes a 1-based page number and page size.
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// Offset is the number of rows before page.
func Offset(page, size int) int {
	page, size = ClampPage(page, size)
	return (page - 1) * size
}

// TotalPages is the number of pages of size needed for total rows.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
