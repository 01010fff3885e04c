/*
 *	Copyright 2024 The blocksparse Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package labels

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	require.ErrorContains(t, err, "duplicated")

	_, err = New([]string{"a", ""}, nil)
	require.ErrorContains(t, err, "empty")

	_, err = New([]string{"a", "b"}, [][]int32{{0}})
	require.ErrorContains(t, err, "one per dimension name")

	_, err = New([]string{"a", "b"}, [][]int32{{0, 1}, {1, 0}, {0, 1}})
	require.ErrorContains(t, err, "duplicate")

	l := must.M1(New([]string{"a", "b"}, [][]int32{{0, 1}, {1, 0}}))
	require.Equal(t, 2, l.Count())
	require.Equal(t, 2, l.Size())
	require.Equal(t, []string{"a", "b"}, l.Names())
	require.Equal(t, []int32{0, 1, 1, 0}, l.Values())
}

func TestZeroDimensionLabels(t *testing.T) {
	// Zero-dimension labels with a single empty entry: the keys of a tensor
	// map whose key columns were all moved into the blocks.
	l := must.M1(New(nil, [][]int32{{}}))
	require.Equal(t, 1, l.Count())
	require.Equal(t, 0, l.Size())
	pos, found := l.Position([]int32{})
	require.True(t, found)
	require.Equal(t, 0, pos)

	// At most one empty entry can exist.
	_, err := New(nil, [][]int32{{}, {}})
	require.ErrorContains(t, err, "duplicate")

	empty := must.M1(New(nil, nil))
	require.Equal(t, 0, empty.Count())
}

func TestConstructors(t *testing.T) {
	single := Single()
	require.Equal(t, []string{"_"}, single.Names())
	require.Equal(t, 1, single.Count())

	empty := must.M1(Empty("a", "b"))
	require.Equal(t, 0, empty.Count())
	require.Equal(t, 2, empty.Size())

	r := must.M1(Range("sample", 3))
	require.Equal(t, []string{"sample"}, r.Names())
	require.Equal(t, []int32{0, 1, 2}, r.Values())
}

func TestPosition(t *testing.T) {
	l := must.M1(New(
		[]string{"structure", "atom", "center"},
		[][]int32{{0, 1, 8}, {0, 2, 1}, {0, 5, 1}},
	))

	// Every row is found at its own index.
	for row := 0; row < l.Count(); row++ {
		pos, found := l.Position(l.At(row).Values())
		require.True(t, found)
		require.Equal(t, row, pos)
	}

	_, found := l.Position([]int32{0, 2, 4})
	require.False(t, found)
	require.True(t, l.Contains([]int32{0, 2, 1}))
	require.False(t, l.Contains([]int32{0, 2}))
}

func TestSelect(t *testing.T) {
	l := must.M1(New(
		[]string{"a", "b"},
		[][]int32{{0, 1}, {1, 1}, {0, 2}, {1, 2}, {2, 5}},
	))

	// Single shared dimension: matches come in l's row order per selection
	// entry, concatenated across selection entries.
	selection := must.M1(New([]string{"a"}, [][]int32{{1}, {0}}))
	matches := must.M1(l.Select(selection))
	require.Equal(t, []int{1, 3, 0, 2}, matches)

	// Full-width selection behaves like position lookup.
	selection = must.M1(New([]string{"a", "b"}, [][]int32{{0, 2}, {7, 7}}))
	matches = must.M1(l.Select(selection))
	require.Equal(t, []int{2}, matches)

	// Covering selections return every row exactly once.
	selection = must.M1(New([]string{"b"}, [][]int32{{1}, {2}}))
	matches = must.M1(l.Select(selection))
	require.Equal(t, []int{0, 1, 2, 3}, matches)

	// Names not a subset of l's names.
	selection = must.M1(New([]string{"c"}, [][]int32{{0}}))
	_, err := l.Select(selection)
	require.True(t, errors.Is(err, ErrInvalidSelection))

	// Empty selection selects nothing.
	selection = must.M1(Empty("a"))
	matches = must.M1(l.Select(selection))
	require.Empty(t, matches)
}

func TestUnion(t *testing.T) {
	first := must.M1(New([]string{"a", "b"}, [][]int32{{0, 1}, {1, 2}, {0, 3}}))
	second := must.M1(New([]string{"a", "b"}, [][]int32{{0, 3}, {1, 3}, {1, 2}}))

	unionResult, unionMap1, unionMap2, unionErr := first.UnionAndMapping(second)
	union, mapping1, mapping2 := mustM3(t, unionResult, unionMap1, unionMap2, unionErr)
	require.Equal(t, []int32{0, 1, 1, 2, 0, 3, 1, 3}, union.Values())
	require.Equal(t, []int{0, 1, 2}, mapping1)
	require.Equal(t, []int{2, 3, 1}, mapping2)

	_, err := first.Union(must.M1(New([]string{"a", "c"}, nil)))
	require.ErrorContains(t, err, "different dimension names")
}

func TestIntersection(t *testing.T) {
	first := must.M1(New([]string{"a", "b"}, [][]int32{{0, 1}, {1, 2}, {0, 3}}))
	second := must.M1(New([]string{"a", "b"}, [][]int32{{0, 3}, {1, 3}, {1, 2}}))

	interResult, interMap1, interMap2, interErr := first.IntersectionAndMapping(second)
	intersection, mapping1, mapping2 := mustM3(t, interResult, interMap1, interMap2, interErr)
	require.Equal(t, []int32{1, 2, 0, 3}, intersection.Values())
	require.Equal(t, []int{-1, 0, 1}, mapping1)
	require.Equal(t, []int{1, -1, 0}, mapping2)
}

func TestViewAndColumn(t *testing.T) {
	l := must.M1(New(
		[]string{"structure", "atom", "center"},
		[][]int32{{0, 1, 8}, {0, 2, 1}, {0, 5, 1}},
	))

	column := must.M1(l.Column("atom"))
	require.Equal(t, []int32{1, 2, 5}, column)
	_, err := l.Column("nope")
	require.ErrorContains(t, err, "not found")

	view := must.M1(l.View("atom", "structure"))
	require.True(t, view.IsView())
	require.Equal(t, []string{"atom", "structure"}, view.Names())
	require.Equal(t, []int32{1, 0, 2, 0, 5, 0}, view.Values())
	require.Panics(t, func() { _, _ = view.Position([]int32{1, 0}) })

	owned := must.M1(view.ToOwned())
	require.False(t, owned.IsView())
	require.True(t, owned.Contains([]int32{5, 0}))

	// A projection with duplicated rows cannot be owned.
	dup := must.M1(l.View("structure"))
	_, err = dup.ToOwned()
	require.ErrorContains(t, err, "duplicate")
}

func TestEqual(t *testing.T) {
	a := must.M1(New([]string{"a"}, [][]int32{{0}, {1}}))
	b := must.M1(New([]string{"a"}, [][]int32{{0}, {1}}))
	c := must.M1(New([]string{"a"}, [][]int32{{1}, {0}}))
	d := must.M1(New([]string{"b"}, [][]int32{{0}, {1}}))
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c)) // order matters
	require.False(t, a.Equal(d))
}

func TestPrint(t *testing.T) {
	l := must.M1(New([]string{"a", "bbb"}, [][]int32{{0, 1}, {100, 2}, {2, 3}, {3, 4}, {4, 5}}))
	printed := l.Print(-1, 0)
	require.Contains(t, printed, "bbb")
	require.NotContains(t, printed, "...")

	truncated := l.Print(4, 3)
	require.Contains(t, truncated, "...")
	require.Contains(t, truncated, "100")
	require.Contains(t, truncated, "4") // last entry survives truncation

	require.Contains(t, l.String(), "Labels(")
}

func TestAtPanics(t *testing.T) {
	l := must.M1(New([]string{"a"}, [][]int32{{0}}))
	require.Panics(t, func() { l.At(1) })
	require.Panics(t, func() { l.At(-1) })
}

// mustM3 unwraps a (value, slice, slice, error) return.
func mustM3[A, B, C any](t *testing.T, a A, b B, c C, err error) (A, B, C) {
	require.NoError(t, err)
	return a, b, c
}
