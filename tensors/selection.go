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

package tensors

import (
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/blocksparse/blocksparse/types/labels"
)

// Selection describes which block(s) to extract from a Map. It is a closed
// set of shapes -- one constructor per shape accepted by Map.Block and
// Map.Blocks:
//
//   - All: every block, in key order (Blocks only).
//   - ByID / ByIDs: blocks by position (Blocks only; use Map.BlockByID for
//     a single one).
//   - ByNamed: a key-dimension-name to value mapping.
//   - ByLabels: a Labels table; Map.Block requires exactly one entry.
//   - ByEntry: a single Labels entry, typically one of the map's own keys.
//
// The zero value is All().
type Selection struct {
	kind   selectionKind
	id     int
	ids    []int
	named  map[string]int32
	labels *labels.Labels
	entry  labels.Entry
}

type selectionKind int

const (
	selectionKindAll selectionKind = iota
	selectionKindID
	selectionKindIDs
	selectionKindNamed
	selectionKindLabels
	selectionKindEntry
)

// All selects every block, in key order.
func All() Selection { return Selection{kind: selectionKindAll} }

// ByID selects one block by position.
func ByID(id int) Selection { return Selection{kind: selectionKindID, id: id} }

// ByIDs selects several blocks by position; order is preserved and
// duplicates are allowed.
func ByIDs(ids ...int) Selection {
	return Selection{kind: selectionKindIDs, ids: slices.Clone(ids)}
}

// ByNamed selects blocks whose key matches every (dimension name, value)
// pair of the given mapping.
func ByNamed(named map[string]int32) Selection {
	return Selection{kind: selectionKindNamed, named: maps.Clone(named)}
}

// ByLabels selects blocks whose keys match any entry of the given Labels on
// the shared dimensions.
func ByLabels(l *labels.Labels) Selection {
	return Selection{kind: selectionKindLabels, labels: l}
}

// ByEntry selects blocks whose keys match the given entry on its dimensions.
func ByEntry(entry labels.Entry) Selection {
	return Selection{kind: selectionKindEntry, entry: entry}
}

// asLabels normalizes the label-shaped selections (named, labels, entry)
// into a Labels table to match against the keys.
func (s Selection) asLabels() (*labels.Labels, error) {
	switch s.kind {
	case selectionKindNamed:
		names := maps.Keys(s.named)
		slices.Sort(names)
		entry := make([]int32, len(names))
		for i, name := range names {
			entry[i] = s.named[name]
		}
		selection, err := labels.New(names, [][]int32{entry})
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid named selection: %v", err)
		}
		return selection, nil
	case selectionKindLabels:
		if s.labels == nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "nil labels selection")
		}
		if s.labels.IsView() {
			return nil, errors.Wrapf(ErrInvalidArgument, "labels views cannot be used as a selection, call ToOwned first")
		}
		return s.labels, nil
	case selectionKindEntry:
		selection, err := labels.New(s.entry.Names(), [][]int32{s.entry.Values()})
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid entry selection: %v", err)
		}
		return selection, nil
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "selection by position cannot be used here")
	}
}
