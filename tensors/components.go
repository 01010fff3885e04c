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

	"github.com/blocksparse/blocksparse/types/labels"
)

// ComponentsToProperties moves the named component dimensions of every block
// into its property axis. The keys are untouched, no blocks are merged.
//
// The moved component dimensions become new leading property dimensions,
// with the moved values varying slower than the pre-existing properties;
// the unmoved component axes keep their relative order. Gradient blocks are
// transformed identically.
//
// A dimension matching no component axis fails with ErrNotFound. Every
// dimension of a matched component axis must be moved, otherwise the
// operation fails with ErrInvalidArgument.
func (m *Map) ComponentsToProperties(dimensions ...string) (*Map, error) {
	if len(dimensions) == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "there are no component dimensions to move")
	}
	blocks := make([]*Block, len(m.blocks))
	for i, block := range m.blocks {
		moved, err := block.componentsToProperties(dimensions)
		if err != nil {
			return nil, err
		}
		blocks[i] = moved
	}
	return NewMap(m.keys, blocks)
}

func (b *Block) componentsToProperties(dimensions []string) (*Block, error) {
	matched, err := b.matchComponents(dimensions)
	if err != nil {
		return nil, err
	}

	// Bubble the matched component axes to just before the property axis
	// with adjacent swaps, from the rightmost matched one: this keeps the
	// relative order of both the moved and the unmoved axes.
	values := b.values
	targetSlot := len(b.components) - 1
	for i := len(matched) - 1; i >= 0; i-- {
		for slot := matched[i]; slot < targetSlot; slot++ {
			swapped, err := values.SwapAxes(1+slot, 1+slot+1)
			if err != nil {
				return nil, wrapBackend(err)
			}
			values = swapped
		}
		targetSlot--
	}

	var newComponents []*labels.Labels
	for slot, component := range b.components {
		if slices.Index(matched, slot) < 0 {
			newComponents = append(newComponents, component)
		}
	}
	newProperties, err := b.mergedProperties(matched)
	if err != nil {
		return nil, err
	}

	newDims := make([]int, 0, 2+len(newComponents))
	newDims = append(newDims, b.samples.Count())
	for _, component := range newComponents {
		newDims = append(newDims, component.Count())
	}
	newDims = append(newDims, newProperties.Count())
	reshaped, err := values.Reshape(newDims...)
	if err != nil {
		return nil, wrapBackend(err)
	}

	moved, err := NewBlock(reshaped, b.samples, newComponents, newProperties)
	if err != nil {
		return nil, err
	}
	for _, parameter := range b.GradientsList() {
		gradient, err := b.gradients[parameter].componentsToProperties(dimensions)
		if err != nil {
			return nil, err
		}
		if err := moved.AddGradient(parameter, gradient); err != nil {
			return nil, err
		}
	}
	return moved, nil
}

// matchComponents returns the (ascending) component axis indices holding the
// given dimensions.
func (b *Block) matchComponents(dimensions []string) ([]int, error) {
	covered := make(map[string]bool, len(dimensions))
	for _, dimension := range dimensions {
		covered[dimension] = false
	}
	var matched []int
	for slot, component := range b.components {
		names := component.Names()
		hits := 0
		for _, name := range names {
			if _, requested := covered[name]; requested {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if hits != len(names) {
			return nil, errors.Wrapf(ErrInvalidArgument,
				"all dimensions of a component axis must be moved together, axis %d has %v", slot, names)
		}
		for _, name := range names {
			covered[name] = true
		}
		matched = append(matched, slot)
	}
	for _, dimension := range dimensions {
		if !covered[dimension] {
			return nil, errors.Wrapf(ErrNotFound,
				"%q is not part of the components of this block", dimension)
		}
	}
	return matched, nil
}

// mergedProperties builds the property labels of a block whose matched
// component axes were moved into the property axis: the moved dimensions
// lead, the old properties vary fastest.
func (b *Block) mergedProperties(matched []int) (*labels.Labels, error) {
	names := make([]string, 0, len(b.properties.Names())+len(matched))
	counts := make([]int, len(matched))
	for i, slot := range matched {
		names = append(names, b.components[slot].Names()...)
		counts[i] = b.components[slot].Count()
	}
	names = append(names, b.properties.Names()...)

	total := b.properties.Count()
	for _, count := range counts {
		total *= count
	}
	entries := make([][]int32, 0, total)
	odometer := make([]int, len(matched))
	for {
		prefix := make([]int32, 0, len(names)-b.properties.Size())
		for i, slot := range matched {
			prefix = append(prefix, b.components[slot].At(odometer[i]).Values()...)
		}
		for row := 0; row < b.properties.Count(); row++ {
			entry := make([]int32, 0, len(names))
			entry = append(entry, prefix...)
			entry = append(entry, b.properties.At(row).Values()...)
			entries = append(entries, entry)
		}

		// Row-major increment, the last moved axis varies fastest.
		axis := len(odometer) - 1
		for ; axis >= 0; axis-- {
			odometer[axis]++
			if odometer[axis] < counts[axis] {
				break
			}
			odometer[axis] = 0
		}
		if axis < 0 {
			break
		}
	}
	return labels.New(names, entries)
}
