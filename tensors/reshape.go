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
	"k8s.io/klog/v2"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/types/labels"
)

// KeysToMove names the key dimensions that KeysToSamples and KeysToProperties
// migrate into the blocks. Build one with MoveNames or MoveSelection.
type KeysToMove struct {
	names     []string
	selection *labels.Labels
}

// MoveNames moves the given key dimensions: every block is kept, and the
// moved values appear in key order.
func MoveNames(names ...string) KeysToMove {
	return KeysToMove{names: slices.Clone(names)}
}

// MoveSelection moves the key dimensions named by the selection's dimensions.
//
// A selection with entries additionally filters and reorders the moved
// values: blocks whose moved key values are not part of the selection are
// dropped, and within each merged block the members follow the selection's
// entry order. A selection without entries behaves like MoveNames.
func MoveSelection(selection *labels.Labels) KeysToMove {
	return KeysToMove{selection: selection}
}

// resolve splits a KeysToMove into the moved dimension names and the
// (possibly nil) filtering selection.
func (k KeysToMove) resolve() ([]string, *labels.Labels, error) {
	if k.selection != nil {
		if k.selection.IsView() {
			return nil, nil, errors.Wrapf(ErrInvalidArgument,
				"labels views cannot be used to select the keys to move, call ToOwned first")
		}
		names := k.selection.Names()
		if len(names) == 0 {
			return nil, nil, errors.Wrapf(ErrInvalidArgument, "the selection of keys to move has no dimensions")
		}
		if k.selection.Count() == 0 {
			// Names only, no filtering.
			return names, nil, nil
		}
		return names, k.selection, nil
	}
	if len(k.names) == 0 {
		return nil, nil, errors.Wrapf(ErrInvalidArgument, "there are no key dimensions to move")
	}
	return k.names, nil, nil
}

// KeysToSamples moves the given key dimensions into the sample axis of the
// blocks, merging the blocks whose remaining key values coincide.
//
// The result's keys hold the remaining dimensions, one entry per distinct
// value tuple, in first-encounter order. Each merged block concatenates its
// member blocks along the sample axis, in key order (or in selection order,
// see MoveSelection), with every member's moved key values broadcast as new
// leading sample dimensions; the pre-existing sample dimensions follow,
// unchanged. The member blocks' component and property labels must be equal,
// otherwise the operation fails with ErrShapeMismatch, and their gradient
// parameter sets must agree, otherwise it fails with ErrGradientMismatch.
// Gradient blocks are merged by the same procedure, using their parent
// member's moved key values.
//
// With sortSamples set, each merged sample axis is sorted lexicographically.
//
// The receiver is never modified; on error it is left fully intact.
func (m *Map) KeysToSamples(move KeysToMove, sortSamples bool) (*Map, error) {
	return m.moveKeysTo(move, targetSamples, sortSamples)
}

// KeysToProperties moves the given key dimensions into the property axis of
// the blocks, merging the blocks whose remaining key values coincide.
//
// The semantics are those of KeysToSamples transposed to the property axis:
// moved key values become new leading property dimensions and member blocks
// are concatenated along the property axis, so their sample and component
// labels must be equal. There is no sorting variant; property order follows
// member order.
func (m *Map) KeysToProperties(move KeysToMove) (*Map, error) {
	return m.moveKeysTo(move, targetProperties, false)
}

// mergeTarget selects the axis blocks are merged along.
type mergeTarget int

const (
	targetSamples mergeTarget = iota
	targetProperties
)

func (t mergeTarget) String() string {
	if t == targetSamples {
		return "samples"
	}
	return "properties"
}

// mergeMember is one source block inside a merge group, paired with the
// moved values of its key row.
type mergeMember struct {
	block *Block
	moved []int32
	order int
}

func (m *Map) moveKeysTo(move KeysToMove, target mergeTarget, sortSamples bool) (*Map, error) {
	movedNames, selection, err := move.resolve()
	if err != nil {
		return nil, err
	}

	keys := m.keys
	movedIdx := make([]int, len(movedNames))
	for i, name := range movedNames {
		col, found := keys.NameIndex(name)
		if !found {
			return nil, errors.Wrapf(ErrNotFound,
				"these keys have no dimension named %q (have %v)", name, keys.Names())
		}
		if slices.Index(movedIdx[:i], col) >= 0 {
			return nil, errors.Wrapf(ErrInvalidArgument, "key dimension %q is moved twice", name)
		}
		movedIdx[i] = col
	}
	var remainingIdx []int
	var remainingNames []string
	for col, name := range keys.Names() {
		if slices.Index(movedIdx, col) < 0 {
			remainingIdx = append(remainingIdx, col)
			remainingNames = append(remainingNames, name)
		}
	}

	// Partition the key rows by their remaining values, in first-encounter
	// order. A selection drops the rows whose moved values it does not hold.
	type mergeGroup struct {
		remaining []int32
		members   []mergeMember
	}
	index := make(map[string]int)
	var groups []*mergeGroup
	for row := 0; row < keys.Count(); row++ {
		entry := keys.At(row)
		moved := make([]int32, len(movedIdx))
		for i, col := range movedIdx {
			moved[i] = entry.At(col)
		}
		order := row
		if selection != nil {
			pos, found := selection.Position(moved)
			if !found {
				continue
			}
			order = pos
		}
		remaining := make([]int32, len(remainingIdx))
		for i, col := range remainingIdx {
			remaining[i] = entry.At(col)
		}
		key := encodeValues(remaining)
		gi, found := index[key]
		if !found {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, &mergeGroup{remaining: remaining})
		}
		groups[gi].members = append(groups[gi].members,
			mergeMember{block: m.blocks[row], moved: moved, order: order})
	}
	if selection != nil {
		for _, group := range groups {
			slices.SortStableFunc(group.members, func(a, b mergeMember) int { return a.order - b.order })
		}
	}

	newEntries := make([][]int32, len(groups))
	blocks := make([]*Block, len(groups))
	for i, group := range groups {
		newEntries[i] = group.remaining
		blocks[i], err = mergeBlocks(movedNames, group.members, target, sortSamples)
		if err != nil {
			return nil, err
		}
	}
	newKeys, err := labels.New(remainingNames, newEntries)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("moved key dimensions %v to %s: %d blocks merged into %d",
		movedNames, target, len(m.blocks), len(blocks))
	return NewMap(newKeys, blocks)
}

// mergeBlocks concatenates the members along the target axis, prepending
// each member's moved key values as new leading dimensions of that axis.
func mergeBlocks(movedNames []string, members []mergeMember, target mergeTarget, sortSamples bool) (*Block, error) {
	first := members[0].block
	for _, member := range members[1:] {
		block := member.block
		if target == targetSamples && !slices.Equal(block.samples.Names(), first.samples.Names()) {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"cannot merge blocks with different sample dimension names (%v vs %v)",
				first.samples.Names(), block.samples.Names())
		}
		if target == targetProperties && !slices.Equal(block.properties.Names(), first.properties.Names()) {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"cannot merge blocks with different property dimension names (%v vs %v)",
				first.properties.Names(), block.properties.Names())
		}
		if !componentsEqual(first, block) {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"cannot merge blocks with different component labels")
		}
		if target == targetSamples && !block.properties.Equal(first.properties) {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"cannot merge blocks along the sample axis with different property labels")
		}
		if target == targetProperties && !block.samples.Equal(first.samples) {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"cannot merge blocks along the property axis with different sample labels")
		}
		if !slices.Equal(block.GradientsList(), first.GradientsList()) {
			return nil, errors.Wrapf(ErrGradientMismatch,
				"cannot merge blocks with different gradient parameters (%v vs %v)",
				first.GradientsList(), block.GradientsList())
		}
	}

	axis := 0
	if target == targetProperties {
		axis = first.Rank() - 1
	}
	axisOf := func(block *Block) *labels.Labels {
		if target == targetSamples {
			return block.samples
		}
		return block.properties
	}

	newNames := append(slices.Clone(movedNames), axisOf(first).Names()...)
	var newRows [][]int32
	for _, member := range members {
		memberAxis := axisOf(member.block)
		for row := 0; row < memberAxis.Count(); row++ {
			values := make([]int32, 0, len(newNames))
			values = append(values, member.moved...)
			values = append(values, memberAxis.At(row).Values()...)
			newRows = append(newRows, values)
		}
	}

	values := first.values
	if len(members) > 1 {
		others := make([]backends.Array, len(members)-1)
		for i, member := range members[1:] {
			others[i] = member.block.values
		}
		merged, err := values.Concat(axis, others...)
		if err != nil {
			return nil, wrapBackend(err)
		}
		values = merged
	}

	if target == targetSamples && sortSamples {
		perm := sortedUniqueRows(newRows)
		if !isIdentity(perm, len(newRows)) {
			gathered, err := values.Slice(0, perm)
			if err != nil {
				return nil, wrapBackend(err)
			}
			values = gathered
			sorted := make([][]int32, len(perm))
			for i, p := range perm {
				sorted[i] = newRows[p]
			}
			newRows = sorted
		}
	}

	newAxis, err := labels.New(newNames, newRows)
	if err != nil {
		return nil, err
	}
	var merged *Block
	if target == targetSamples {
		merged, err = NewBlock(values, newAxis, first.components, first.properties)
	} else {
		merged, err = NewBlock(values, first.samples, first.components, newAxis)
	}
	if err != nil {
		return nil, err
	}

	for _, parameter := range first.GradientsList() {
		gradientMembers := make([]mergeMember, len(members))
		for i, member := range members {
			gradientMembers[i] = mergeMember{
				block: member.block.gradients[parameter],
				moved: member.moved,
			}
		}
		gradient, err := mergeBlocks(movedNames, gradientMembers, target, sortSamples)
		if err != nil {
			if errors.Is(err, ErrShapeMismatch) {
				return nil, errors.Wrapf(ErrGradientMismatch,
					"cannot merge the gradients with respect to %q: %v", parameter, err)
			}
			return nil, err
		}
		if err := merged.AddGradient(parameter, gradient); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// encodeValues encodes a value tuple as a string usable as a hash key.
func encodeValues(values []int32) string {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		u := uint32(v)
		buf = append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
	}
	return string(buf)
}

// sortedUniqueRows returns the row indices that sort the rows
// lexicographically, keeping only the first of equal rows.
func sortedUniqueRows(rows [][]int32) []int {
	perm := make([]int, len(rows))
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return slices.Compare(rows[a], rows[b])
	})
	result := make([]int, 0, len(perm))
	for i, p := range perm {
		if i > 0 && slices.Compare(rows[perm[i-1]], rows[p]) == 0 {
			continue
		}
		result = append(result, p)
	}
	return result
}

func isIdentity(perm []int, count int) bool {
	if len(perm) != count {
		return false
	}
	for i, p := range perm {
		if i != p {
			return false
		}
	}
	return true
}
