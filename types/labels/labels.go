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

// Package labels implements Labels, the named tables of integer tuples that
// index every axis of a block-sparse tensor.
//
// A Labels table can be thought of as a list of named tuples: the dimension
// names are stored once, and the values are a 2D array of int32 with shape
// (count, size). Every row (entry) is unique, and the row order is
// semantically meaningful -- it defines the ordering of the axis the table
// indexes.
//
// Labels are immutable once constructed: they are shared freely, by pointer,
// between blocks, tensor maps and callers. All deriving operations (Select,
// Union, Intersection, View) build new tables.
package labels

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// ErrInvalidSelection is returned by Labels.Select when the selection names
// are not a subset of the target Labels names.
var ErrInvalidSelection = errors.New("invalid selection")

// Labels is an immutable, named, ordered set of int32 tuples.
//
// Use New (or Empty, Single, Range) to create one. The zero value is not
// usable.
type Labels struct {
	names  []string
	values []int32 // row-major, len == count*size

	// positions maps an encoded row to its index. It is nil for views,
	// which don't support lookup (their rows may not be unique).
	positions map[string]int
}

// New creates a Labels table with the given dimension names and entries.
//
// It validates that the names are distinct and non-empty, that every entry
// has exactly len(names) values, and that no two entries are identical.
//
// Zero-dimension labels are allowed and can hold at most one (empty) entry;
// they are used as the keys of a tensor map whose key columns were all moved
// into the blocks.
func New(names []string, entries [][]int32) (*Labels, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	values := make([]int32, 0, len(entries)*len(names))
	for i, entry := range entries {
		if len(entry) != len(names) {
			return nil, errors.Errorf(
				"labels entry %d has %d values, expected one per dimension name (%d)",
				i, len(entry), len(names))
		}
		values = append(values, entry...)
	}
	return fromFlat(names, len(entries), values)
}

// Empty creates a Labels table with the given names and no entries.
func Empty(names ...string) (*Labels, error) {
	return New(names, nil)
}

// Single creates the Labels table to use when there is no relevant metadata:
// one dimension named "_" with a single 0 entry.
func Single() *Labels {
	l, err := New([]string{"_"}, [][]int32{{0}})
	if err != nil {
		exceptions.Panicf("labels.Single: %+v", err)
	}
	return l
}

// Range creates a Labels table with a single dimension called name and
// entries [0, end).
func Range(name string, end int) (*Labels, error) {
	if end < 0 {
		return nil, errors.Errorf("labels.Range(%q, %d): end must be >= 0", name, end)
	}
	entries := make([][]int32, end)
	for i := range entries {
		entries[i] = []int32{int32(i)}
	}
	return New([]string{name}, entries)
}

// fromFlat builds a Labels table from row-major values, indexing and
// validating entry uniqueness.
func fromFlat(names []string, count int, values []int32) (*Labels, error) {
	size := len(names)
	l := &Labels{
		names:     slices.Clone(names),
		values:    values,
		positions: make(map[string]int, count),
	}
	for row := 0; row < count; row++ {
		key := encodeRow(values[row*size : (row+1)*size])
		if previous, found := l.positions[key]; found {
			return nil, errors.Errorf(
				"labels entry %d is a duplicate of entry %d: %s",
				row, previous, l.At(previous))
		}
		l.positions[key] = row
	}
	return l, nil
}

func checkNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return errors.Errorf("labels dimension names cannot be empty")
		}
		if _, found := seen[name]; found {
			return errors.Errorf("labels dimension name %q is duplicated", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// encodeRow encodes an entry as a string usable as a hash key.
func encodeRow(row []int32) string {
	buf := make([]byte, 0, 4*len(row))
	for _, v := range row {
		u := uint32(v)
		buf = append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
	}
	return string(buf)
}

// Count returns the number of entries (rows).
func (l *Labels) Count() int {
	if l.Size() == 0 {
		// Zero-dimension labels hold zero or one (empty) entries.
		return len(l.positions)
	}
	return len(l.values) / l.Size()
}

// Size returns the number of dimensions (columns) of each entry.
func (l *Labels) Size() int { return len(l.names) }

// Names returns a copy of the dimension names.
func (l *Labels) Names() []string { return slices.Clone(l.names) }

// Values returns a copy of the entries, flattened in row-major order.
func (l *Labels) Values() []int32 { return slices.Clone(l.values) }

// At returns the entry at the given row, as a view into these Labels.
// It panics if row is out of range, like a slice indexing would.
func (l *Labels) At(row int) Entry {
	if row < 0 || row >= l.Count() {
		exceptions.Panicf("Labels.At(%d) out-of-bounds: these labels have %d entries", row, l.Count())
	}
	return Entry{labels: l, row: row}
}

// row returns the raw values of one entry, without copying. Callers must not
// modify the returned slice.
func (l *Labels) row(i int) []int32 {
	return l.values[i*l.Size() : (i+1)*l.Size()]
}

// NameIndex returns the column index of the given dimension name, or
// (-1, false) if the name is not one of these Labels' dimensions.
func (l *Labels) NameIndex(name string) (int, bool) {
	idx := slices.Index(l.names, name)
	return idx, idx >= 0
}

// Column returns the values of a single dimension, one per entry.
func (l *Labels) Column(name string) ([]int32, error) {
	col, found := l.NameIndex(name)
	if !found {
		return nil, errors.Errorf("%q not found in the dimensions of these labels (%v)", name, l.names)
	}
	result := make([]int32, l.Count())
	for i := range result {
		result[i] = l.row(i)[col]
	}
	return result, nil
}

// Position returns the row index of the given entry, or false if the entry
// is not part of these Labels. Lookup is O(1) on a hash index built at
// construction.
func (l *Labels) Position(entry []int32) (int, bool) {
	if l.IsView() {
		exceptions.Panicf("Labels.Position is not available on a view, call ToOwned first")
	}
	if len(entry) != l.Size() {
		return 0, false
	}
	row, found := l.positions[encodeRow(entry)]
	return row, found
}

// Contains returns whether the given entry is part of these Labels.
func (l *Labels) Contains(entry []int32) bool {
	_, found := l.Position(entry)
	return found
}

// Select finds the rows of these Labels matching any entry of the selection.
//
// The selection names must be a subset of these Labels' names, otherwise
// ErrInvalidSelection is returned. For every selection entry, every row of
// these Labels whose values on the shared dimensions are equal is selected.
// Matches are returned in these Labels' row order within each selection
// entry, concatenated across selection entries, with duplicates removed
// (first occurrence wins).
func (l *Labels) Select(selection *Labels) ([]int, error) {
	if l.IsView() || selection.IsView() {
		exceptions.Panicf("Labels.Select is not available on a view, call ToOwned first")
	}
	columns := make([]int, selection.Size())
	for i, name := range selection.names {
		col, found := l.NameIndex(name)
		if !found {
			return nil, errors.Wrapf(ErrInvalidSelection,
				"selection dimension %q is not part of these labels (%v)", name, l.names)
		}
		columns[i] = col
	}

	// Group our rows by their projection on the selection dimensions, keeping
	// row order within each group.
	projected := make(map[string][]int, l.Count())
	projection := make([]int32, len(columns))
	for row := 0; row < l.Count(); row++ {
		values := l.row(row)
		for i, col := range columns {
			projection[i] = values[col]
		}
		key := encodeRow(projection)
		projected[key] = append(projected[key], row)
	}

	var matches []int
	seen := make(map[int]struct{})
	for row := 0; row < selection.Count(); row++ {
		for _, match := range projected[encodeRow(selection.row(row))] {
			if _, duplicate := seen[match]; duplicate {
				continue
			}
			seen[match] = struct{}{}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

// Equal returns whether two Labels have the same dimension names and the
// same entries, in the same order.
func (l *Labels) Equal(other *Labels) bool {
	if l == other {
		return true
	}
	return slices.Equal(l.names, other.names) &&
		l.Count() == other.Count() &&
		slices.Equal(l.values, other.values)
}
