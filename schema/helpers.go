package schema

import (
	"cmp"
	"slices"
	"strings"
)

// SortedKeys returns the keys of m in ascending order. Output paths iterate maps
// through this so that identical input renders identically.
func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// UniqueStrings trims entries, drops empty ones and removes duplicates, keeping first-seen order.
func UniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Deref returns the pointed-to value, or 0 for nil.
func Deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
