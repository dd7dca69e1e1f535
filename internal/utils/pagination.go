// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// DefaultPageSize is used when a caller asks for a non-positive page size.
const DefaultPageSize = 20

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageWindow normalizes a 1-based page request and returns the row offset.
// page is raised to 1; pageSize <= 0 becomes DefaultPageSize and, when
// maxSize > 0, is capped at maxSize.
func PageWindow(page, pageSize, maxSize int) (p, size, offset int) {
	p, size = page, pageSize
	if p < 1 {
		p = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return p, size, (p - 1) * size
}
