// util/generic_test.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"slices"
	"testing"
)

func TestSelect(t *testing.T) {
	if Select(true, 1, 2) != 1 || Select(false, 1, 2) != 2 {
		t.Error("Select broken")
	}
}

func TestMapSlice(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := MapSlice(a, func(i int) float32 { return 2 * float32(i) })
	if !slices.Equal(b, []float32{2, 4, 6, 8, 10}) {
		t.Errorf("got %v", b)
	}
}

func TestFilterSliceInPlace(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6}
	got := FilterSliceInPlace(a, func(v *int) bool { return *v%2 == 0 })
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("got %v", got)
	}

	// Every element must be visited exactly once, dropped or not.
	var visited []int
	a = []int{1, 2, 3, 4}
	FilterSliceInPlace(a, func(v *int) bool {
		visited = append(visited, *v)
		return false
	})
	if !slices.Equal(visited, []int{1, 2, 3, 4}) {
		t.Errorf("visited %v", visited)
	}

	if got := FilterSliceInPlace([]int{}, func(v *int) bool { return true }); len(got) != 0 {
		t.Errorf("got %v from empty input", got)
	}
}

func TestDuplicateSlice(t *testing.T) {
	a := []int{1, 2, 3}
	b := DuplicateSlice(a)
	b[0] = 99
	if a[0] != 1 {
		t.Error("copy shares storage with original")
	}
}
