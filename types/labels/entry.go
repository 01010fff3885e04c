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
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Entry is a single row in a Labels table.
//
// It is a read-only view of (owning Labels, row index): it holds no data of
// its own and must not outlive the Labels it was taken from. Entries are
// created by Labels.At or by iterating a tensor map's items.
type Entry struct {
	labels *Labels
	row    int
}

// Labels returns the table this entry is a row of.
func (e Entry) Labels() *Labels { return e.labels }

// Row returns the index of this entry in its Labels table.
func (e Entry) Row() int { return e.row }

// Len returns the number of dimensions of this entry.
func (e Entry) Len() int { return e.labels.Size() }

// Names returns the dimension names of this entry.
func (e Entry) Names() []string { return e.labels.Names() }

// Values returns a copy of the values of this entry.
func (e Entry) Values() []int32 {
	return slices.Clone(e.labels.row(e.row))
}

// At returns the value of the given dimension, by position.
// It panics if i is out of range.
func (e Entry) At(i int) int32 {
	if i < 0 || i >= e.Len() {
		exceptions.Panicf("Entry.At(%d) out-of-bounds: this entry has %d dimensions", i, e.Len())
	}
	return e.labels.row(e.row)[i]
}

// Value returns the value of the given dimension, by name.
func (e Entry) Value(name string) (int32, error) {
	col, found := e.labels.NameIndex(name)
	if !found {
		return 0, errors.Errorf("%q not found in the dimensions of this entry (%v)", name, e.labels.names)
	}
	return e.labels.row(e.row)[col], nil
}

// Equal returns whether two entries have the same dimension names and the
// same values. Entries from different Labels tables can be equal.
func (e Entry) Equal(other Entry) bool {
	return slices.Equal(e.labels.names, other.labels.names) &&
		slices.Equal(e.labels.row(e.row), other.labels.row(other.row))
}

// String prints the entry as a named tuple: (name_1=value_1, name_2=value_2).
func (e Entry) String() string {
	parts := make([]string, e.Len())
	values := e.labels.row(e.row)
	for i, name := range e.labels.names {
		parts[i] = fmt.Sprintf("%s=%d", name, values[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
