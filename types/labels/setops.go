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
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

func (l *Labels) checkSetOperand(op string, other *Labels) error {
	if l.IsView() || other.IsView() {
		exceptions.Panicf("Labels.%s is not available on a view, call ToOwned first", op)
	}
	if !slices.Equal(l.names, other.names) {
		return errors.Errorf("can not take the %s of labels with different dimension names: %v vs %v",
			op, l.names, other.names)
	}
	return nil
}

// Union returns the union of these Labels with other: all entries of l, in
// order, followed by the entries of other not already present, in order.
//
// Both tables must have the same dimension names. To know where the inputs'
// entries end up in the union, use UnionAndMapping.
func (l *Labels) Union(other *Labels) (*Labels, error) {
	union, _, _, err := l.UnionAndMapping(other)
	return union, err
}

// UnionAndMapping returns the union of these Labels with other, together
// with the position in the union of every entry of l (first mapping) and of
// every entry of other (second mapping).
func (l *Labels) UnionAndMapping(other *Labels) (*Labels, []int, []int, error) {
	if err := l.checkSetOperand("union", other); err != nil {
		return nil, nil, nil, err
	}

	values := slices.Clone(l.values)
	positions := make(map[string]int, l.Count()+other.Count())
	for row := 0; row < l.Count(); row++ {
		positions[encodeRow(l.row(row))] = row
	}

	firstMapping := make([]int, l.Count())
	for row := range firstMapping {
		firstMapping[row] = row
	}

	secondMapping := make([]int, other.Count())
	next := l.Count()
	for row := 0; row < other.Count(); row++ {
		key := encodeRow(other.row(row))
		if at, found := positions[key]; found {
			secondMapping[row] = at
			continue
		}
		positions[key] = next
		secondMapping[row] = next
		values = append(values, other.row(row)...)
		next++
	}

	union := &Labels{names: slices.Clone(l.names), values: values, positions: positions}
	return union, firstMapping, secondMapping, nil
}

// Intersection returns the intersection of these Labels with other: the
// entries of l also present in other, in l's order.
//
// Both tables must have the same dimension names. To know where the inputs'
// entries end up in the intersection, use IntersectionAndMapping.
func (l *Labels) Intersection(other *Labels) (*Labels, error) {
	intersection, _, _, err := l.IntersectionAndMapping(other)
	return intersection, err
}

// IntersectionAndMapping returns the intersection of these Labels with
// other, together with the position in the intersection of every entry of l
// (first mapping) and of every entry of other (second mapping). Entries not
// part of the intersection map to -1.
func (l *Labels) IntersectionAndMapping(other *Labels) (*Labels, []int, []int, error) {
	if err := l.checkSetOperand("intersection", other); err != nil {
		return nil, nil, nil, err
	}

	values := make([]int32, 0, len(l.values))
	positions := make(map[string]int, min(l.Count(), other.Count()))
	firstMapping := make([]int, l.Count())
	next := 0
	for row := 0; row < l.Count(); row++ {
		if !other.Contains(l.row(row)) {
			firstMapping[row] = -1
			continue
		}
		positions[encodeRow(l.row(row))] = next
		firstMapping[row] = next
		values = append(values, l.row(row)...)
		next++
	}

	secondMapping := make([]int, other.Count())
	for row := 0; row < other.Count(); row++ {
		if at, found := positions[encodeRow(other.row(row))]; found {
			secondMapping[row] = at
		} else {
			secondMapping[row] = -1
		}
	}

	intersection := &Labels{names: slices.Clone(l.names), values: values, positions: positions}
	return intersection, firstMapping, secondMapping, nil
}
