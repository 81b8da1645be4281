// Package sliceutil provides generic slice helpers.
package sliceutil

import "strings"

// Deduplicate removes duplicate items while preserving order.
// keyFunc extracts the comparison key; the first occurrence of each key is kept.
//
// Example:
//
//	values := []string{"Databases", "databases", "Networks"}
//	unique := sliceutil.Deduplicate(values, strings.ToLower)
//	// Result: ["Databases", "Networks"]
func Deduplicate[T any, K comparable](items []T, keyFunc func(T) K) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]struct{}, len(items))
	result := make([]T, 0, len(items))

	for _, item := range items {
		key := keyFunc(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}

	return result
}

// CompactStrings trims every value, drops empty ones and removes case-insensitive duplicates.
func CompactStrings(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			trimmed = append(trimmed, v)
		}
	}
	return Deduplicate(trimmed, strings.ToLower)
}
