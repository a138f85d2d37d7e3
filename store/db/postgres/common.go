package postgres

import (
	"fmt"
	"strings"
)

// placeholder returns a positional placeholder for PostgreSQL ($1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns positional placeholders starting at offset+1.
func placeholders(offset, n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(offset+i+1))
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
