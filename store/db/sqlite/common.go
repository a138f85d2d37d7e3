package sqlite

import (
	"strings"
)

// placeholder returns a placeholder for SQLite (uses ?).
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// normalizeValue converts raw driver values into plain Go values.
// Byte slices are decoded to strings so callers see text, not base64.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
