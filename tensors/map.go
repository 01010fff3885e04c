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

// Package tensors implements the labeled, block-sparse tensor store: dense
// blocks (Block) addressed by the rows of a keys Labels table (Map), with
// every axis of every block itself indexed by a Labels table.
//
// Blocks are looked up by label values instead of array offsets, and a Map
// can be restructured by moving key dimensions into the blocks' sample or
// property axes (KeysToSamples, KeysToProperties), merging the blocks whose
// remaining keys coincide.
//
// All types are immutable once built: every restructuring operation returns
// a new Map and never touches the receiver, so concurrent readers need no
// synchronization. Numeric data is held behind the backends.Array interface
// and never interpreted here; see package backends.
package tensors

import (
	"fmt"
	"iter"

	"github.com/pkg/errors"

	"github.com/blocksparse/blocksparse/types/labels"
)

// Map is a Labels table of keys, one-to-one with a sequence of blocks: the
// i-th block is addressed by the i-th key entry.
//
// A Map is an immutable snapshot: lookups and iteration are pure reads, and
// the restructuring operations build entirely new maps.
type Map struct {
	keys   *labels.Labels
	blocks []*Block
}

// NewMap creates a Map from a keys table and one block per key entry, in
// key order.
//
// All blocks must hold arrays of the same dtype, and their number must
// equal the number of key entries.
func NewMap(keys *labels.Labels, blocks []*Block) (*Map, error) {
	if keys.IsView() {
		return nil, errors.Wrapf(ErrInvalidArgument, "labels views cannot be used as the keys of a map, call ToOwned first")
	}
	if len(blocks) != keys.Count() {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"the number of blocks (%d) must match the number of key entries (%d)",
			len(blocks), keys.Count())
	}
	for i, block := range blocks {
		if block == nil {
			return nil, errors.Wrapf(ErrInvalidArgument, "block %d is nil", i)
		}
		if dtype := block.values.Shape().DType; dtype != blocks[0].values.Shape().DType {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"all blocks must have the same dtype, block 0 has %s and block %d has %s",
				blocks[0].values.Shape().DType, i, dtype)
		}
	}
	m := &Map{keys: keys, blocks: make([]*Block, len(blocks))}
	copy(m.blocks, blocks)
	return m, nil
}

// Keys returns the Labels table addressing the blocks.
func (m *Map) Keys() *labels.Labels { return m.keys }

// Count returns the number of blocks.
func (m *Map) Count() int { return len(m.blocks) }

// BlockByID returns the block at the given position.
//
// Out-of-range indices fail with ErrBlockOutOfRange -- the error external
// iteration protocols rely on to detect the end of the sequence, distinct
// from the lookup errors of Block.
func (m *Map) BlockByID(id int) (*Block, error) {
	if id < 0 || id >= len(m.blocks) {
		return nil, errors.Wrapf(ErrBlockOutOfRange,
			"this map has %d blocks and the index is %d", len(m.blocks), id)
	}
	return m.blocks[id], nil
}

// BlocksByID returns the blocks at the given positions, in the given order.
// Duplicates are allowed.
func (m *Map) BlocksByID(ids []int) ([]*Block, error) {
	result := make([]*Block, len(ids))
	for i, id := range ids {
		block, err := m.BlockByID(id)
		if err != nil {
			return nil, err
		}
		result[i] = block
	}
	return result, nil
}

// BlocksMatching returns the (possibly empty) list of block positions whose
// keys match the selection -- the primitive every label-based lookup builds
// on. See labels.Select for the matching semantics.
func (m *Map) BlocksMatching(selection *labels.Labels) ([]int, error) {
	return m.keys.Select(selection)
}

// Block returns the single block matching the selection.
//
// The selection must be label-shaped: ByNamed, ByLabels with exactly one
// entry, or ByEntry -- anything else fails with ErrInvalidArgument. Zero
// matches fail with ErrNotFound, several with ErrAmbiguousSelection.
func (m *Map) Block(selection Selection) (*Block, error) {
	selectionLabels, err := selection.asLabels()
	if err != nil {
		return nil, err
	}
	if selectionLabels.Count() != 1 {
		return nil, errors.Wrapf(ErrInvalidArgument,
			"Block requires a selection with a single entry, got %d entries", selectionLabels.Count())
	}
	matching, err := m.BlocksMatching(selectionLabels)
	if err != nil {
		return nil, err
	}
	switch len(matching) {
	case 0:
		if len(m.blocks) == 0 {
			return nil, errors.Wrapf(ErrNotFound, "there are no blocks in this map")
		}
		return nil, errors.Wrapf(ErrNotFound, "no block matching %s", selectionLabels.At(0))
	case 1:
		return m.blocks[matching[0]], nil
	default:
		return nil, errors.Wrapf(ErrAmbiguousSelection,
			"%d blocks match %s, use Blocks to get all of them", len(matching), selectionLabels.At(0))
	}
}

// Blocks returns the blocks matching the selection.
//
// On top of the shapes Block accepts, Blocks takes All() (every block, in
// key order), ByID and ByIDs (blocks by position, order preserved,
// duplicates allowed), and label-shaped selections with any number of
// entries. A label-shaped selection matching nothing in a non-empty map
// fails with ErrNotFound.
func (m *Map) Blocks(selection Selection) ([]*Block, error) {
	switch selection.kind {
	case selectionKindAll:
		result := make([]*Block, len(m.blocks))
		copy(result, m.blocks)
		return result, nil
	case selectionKindID:
		block, err := m.BlockByID(selection.id)
		if err != nil {
			return nil, err
		}
		return []*Block{block}, nil
	case selectionKindIDs:
		return m.BlocksByID(selection.ids)
	}

	selectionLabels, err := selection.asLabels()
	if err != nil {
		return nil, err
	}
	matching, err := m.BlocksMatching(selectionLabels)
	if err != nil {
		return nil, err
	}
	if len(m.blocks) == 0 {
		// The selection was validated above, an empty map matches it trivially.
		return nil, nil
	}
	if len(matching) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no blocks matching the selection %v", selectionLabels.Names())
	}
	return m.BlocksByID(matching)
}

// Items iterates over (key entry, block) pairs, in key order.
//
// The sequence is lazy, finite and restartable; it ranges over this map's
// snapshot, so it is safe against anything happening concurrently.
func (m *Map) Items() iter.Seq2[labels.Entry, *Block] {
	return func(yield func(labels.Entry, *Block) bool) {
		for i, block := range m.blocks {
			if !yield(m.keys.At(i), block) {
				return
			}
		}
	}
}

// SampleNames returns the sample dimension names of the first block, or nil
// for an empty map. The restructuring operations keep axis names uniform
// across blocks, but this accessor does not re-verify that.
func (m *Map) SampleNames() []string {
	if len(m.blocks) == 0 {
		return nil
	}
	return m.blocks[0].samples.Names()
}

// ComponentsNames returns the component dimension names of the first block,
// one slice per component axis, or nil for an empty map.
func (m *Map) ComponentsNames() [][]string {
	if len(m.blocks) == 0 {
		return nil
	}
	result := make([][]string, len(m.blocks[0].components))
	for i, component := range m.blocks[0].components {
		result[i] = component.Names()
	}
	return result
}

// PropertyNames returns the property dimension names of the first block, or
// nil for an empty map.
func (m *Map) PropertyNames() []string {
	if len(m.blocks) == 0 {
		return nil
	}
	return m.blocks[0].properties.Names()
}

// Clone returns a deep copy of this map: every block (arrays and gradients
// included) is cloned. Labels tables are shared, they are immutable.
func (m *Map) Clone() *Map {
	clone := &Map{keys: m.keys, blocks: make([]*Block, len(m.blocks))}
	for i, block := range m.blocks {
		clone.blocks[i] = block.Clone()
	}
	return clone
}

// String prints the map keys, truncated to a few entries.
func (m *Map) String() string {
	return fmt.Sprintf("Map with %d blocks\nkeys:\n     %s", len(m.blocks), m.keys.Print(4, 5))
}
