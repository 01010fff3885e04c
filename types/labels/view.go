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
	"github.com/pkg/errors"
)

// View creates a view into these Labels, keeping only the given dimensions,
// in the given order.
//
// A view is not a full Labels table: its rows are no longer guaranteed to be
// unique, so it does not support Position, Select, Union or Intersection.
// Use ToOwned to convert it back to a full table.
func (l *Labels) View(names ...string) (*Labels, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("labels view requires at least one dimension name")
	}
	columns := make([]int, len(names))
	for i, name := range names {
		col, found := l.NameIndex(name)
		if !found {
			return nil, errors.Errorf("%q not found in the dimensions of these labels (%v)", name, l.names)
		}
		columns[i] = col
	}

	count := l.Count()
	values := make([]int32, 0, count*len(columns))
	for row := 0; row < count; row++ {
		entry := l.row(row)
		for _, col := range columns {
			values = append(values, entry[col])
		}
	}
	view := &Labels{names: append([]string(nil), names...), values: values}
	return view, nil
}

// IsView returns whether these Labels are a view inside another table,
// created by View. Views don't support lookup operations.
func (l *Labels) IsView() bool { return l.positions == nil }

// ToOwned converts a view into a full Labels table, re-validating entry
// uniqueness. It fails if the view contains duplicated rows.
func (l *Labels) ToOwned() (*Labels, error) {
	if !l.IsView() {
		return l, nil
	}
	owned, err := fromFlat(l.names, len(l.values)/l.Size(), l.values)
	if err != nil {
		return nil, errors.WithMessage(err, "cannot convert this view to owned labels")
	}
	return owned, nil
}
