// util/generic.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

// Select returns a or b depending on the value of sel; it is useful as a
// ternary-operator stand-in for simple cases.
func Select[T any](sel bool, a, b T) T {
	if sel {
		return a
	} else {
		return b
	}
}

// DuplicateSlice returns a newly allocated copy of the provided slice.
func DuplicateSlice[V any](s []V) []V {
	dupe := make([]V, len(s))
	copy(dupe, s)
	return dupe
}

// MapSlice returns the slice that is the result of applying the provided
// xform function to all of the elements of the given slice.
func MapSlice[F, T any](from []F, xform func(F) T) []T {
	to := make([]T, 0, len(from))
	for _, item := range from {
		to = append(to, xform(item))
	}
	return to
}

// FilterSliceInPlace keeps the elements of s for which pred returns true,
// compacting them to the front with a write index so that no element is
// skipped or visited twice when entries are dropped mid-iteration. The
// (shortened) slice is returned; the original backing store is reused.
func FilterSliceInPlace[V any](s []V, pred func(*V) bool) []V {
	out := s[:0]
	for i := range s {
		if pred(&s[i]) {
			out = append(out, s[i])
		}
	}
	return out
}
