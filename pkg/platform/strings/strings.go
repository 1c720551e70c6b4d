// Package strings provides string helpers for request normalization.
package strings

import (
	"strings"
	"unicode/utf8"
)

// CleanList trims every element, drops empties and case-insensitive
// duplicates, and keeps the first spelling seen. Order is preserved.
// A nil input yields nil so "not provided" survives normalization.
//
//	CleanList([]string{" UI ", "backend", "ui", ""})
//	// Returns: []string{"UI", "backend"}
func CleanList(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// Length counts characters rather than bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
