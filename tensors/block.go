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
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/types/labels"
)

// Block is one dense array plus one Labels table per axis.
//
// The array has shape [n_samples, n_component_1, ..., n_component_k,
// n_properties]: the first axis is indexed by the samples labels, the last
// by the properties labels, and each axis in between by one components
// table. A block can additionally carry named gradient blocks, each
// representing the derivative of this block with respect to one parameter.
//
// Blocks are immutable once published (returned from a Map lookup or used to
// build a Map), except for AddGradient which is only legal on a freshly
// built, still-private block.
type Block struct {
	values     backends.Array
	samples    *labels.Labels
	components []*labels.Labels
	properties *labels.Labels

	gradients map[string]*Block
}

// NewBlock creates a Block from an array handle and one Labels table per
// axis. components may be nil for a rank-2 block.
//
// The array rank must be 2+len(components), and every axis dimension must
// equal the entry count of its Labels table, otherwise ErrShapeMismatch is
// returned.
func NewBlock(values backends.Array, samples *labels.Labels, components []*labels.Labels, properties *labels.Labels) (*Block, error) {
	shape := values.Shape()
	if shape.Rank() != 2+len(components) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"array of rank %d needs %d label tables, got samples + %d components + properties",
			shape.Rank(), shape.Rank(), len(components))
	}
	if samples.Count() != shape.Dim(0) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"samples labels have %d entries, the array's axis 0 has dimension %d",
			samples.Count(), shape.Dim(0))
	}
	for i, component := range components {
		if component.Count() != shape.Dim(1+i) {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"components[%d] labels have %d entries, the array's axis %d has dimension %d",
				i, component.Count(), 1+i, shape.Dim(1+i))
		}
	}
	if properties.Count() != shape.Dim(-1) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"properties labels have %d entries, the array's last axis has dimension %d",
			properties.Count(), shape.Dim(-1))
	}
	return &Block{
		values:     values,
		samples:    samples,
		components: slices.Clone(components),
		properties: properties,
	}, nil
}

// Values exposes the owned array handle, without copying.
func (b *Block) Values() backends.Array { return b.values }

// Samples returns the Labels indexing the first axis.
func (b *Block) Samples() *labels.Labels { return b.samples }

// Components returns the Labels indexing the middle axes, one per component
// axis. The returned slice is a copy, the tables are shared.
func (b *Block) Components() []*labels.Labels { return slices.Clone(b.components) }

// Properties returns the Labels indexing the last axis.
func (b *Block) Properties() *labels.Labels { return b.properties }

// Rank returns the number of axes of the block's array.
func (b *Block) Rank() int { return 2 + len(b.components) }

// Axis returns the Labels of one axis by position: 0 is samples, 1 to
// len(components) are the component axes, and the last axis is properties.
// It fails with ErrIndexOutOfRange past the block's rank.
func (b *Block) Axis(axis int) (*labels.Labels, error) {
	switch {
	case axis < 0 || axis >= b.Rank():
		return nil, errors.Wrapf(ErrIndexOutOfRange,
			"axis %d for a block of rank %d", axis, b.Rank())
	case axis == 0:
		return b.samples, nil
	case axis == b.Rank()-1:
		return b.properties, nil
	default:
		return b.components[axis-1], nil
	}
}

// AddGradient registers the gradient of this block with respect to the
// given parameter.
//
// The gradient's components and properties must be equal to this block's
// (same names, same entries), otherwise ErrShapeMismatch is returned; its
// samples are free -- by convention their first dimension refers back to
// this block's sample rows, but that is a caller contract, not validated
// here. Registering the same parameter twice fails with ErrDuplicate.
//
// AddGradient must only be called before the block is published: a block
// embedded in a Map, or returned from one, is shared and must not change.
func (b *Block) AddGradient(parameter string, gradient *Block) error {
	if _, found := b.gradients[parameter]; found {
		return errors.Wrapf(ErrDuplicate, "gradient with respect to %q already registered", parameter)
	}
	if len(gradient.components) != len(b.components) {
		return errors.Wrapf(ErrShapeMismatch,
			"gradient has %d component axes, the block has %d",
			len(gradient.components), len(b.components))
	}
	for i, component := range gradient.components {
		if !component.Equal(b.components[i]) {
			return errors.Wrapf(ErrShapeMismatch,
				"gradient components[%d] labels differ from the block's", i)
		}
	}
	if !gradient.properties.Equal(b.properties) {
		return errors.Wrapf(ErrShapeMismatch, "gradient properties labels differ from the block's")
	}
	if b.gradients == nil {
		b.gradients = make(map[string]*Block)
	}
	b.gradients[parameter] = gradient
	return nil
}

// Gradient returns the gradient of this block with respect to the given
// parameter. It fails with ErrNotFound if no such gradient was registered.
func (b *Block) Gradient(parameter string) (*Block, error) {
	gradient, found := b.gradients[parameter]
	if !found {
		return nil, errors.Wrapf(ErrNotFound,
			"no gradient with respect to %q in this block (have %v)", parameter, b.GradientsList())
	}
	return gradient, nil
}

// HasGradient returns whether a gradient is registered for the parameter.
func (b *Block) HasGradient(parameter string) bool {
	_, found := b.gradients[parameter]
	return found
}

// GradientsList returns the sorted names of the registered gradient
// parameters.
func (b *Block) GradientsList() []string {
	parameters := maps.Keys(b.gradients)
	slices.Sort(parameters)
	return parameters
}

// Clone returns a deep copy of this block: the array handle and all gradient
// blocks are cloned recursively. Labels tables are shared, they are
// immutable.
func (b *Block) Clone() *Block {
	clone := &Block{
		values:     b.values.Clone(),
		samples:    b.samples,
		components: slices.Clone(b.components),
		properties: b.properties,
	}
	if len(b.gradients) > 0 {
		clone.gradients = make(map[string]*Block, len(b.gradients))
		for parameter, gradient := range b.gradients {
			clone.gradients[parameter] = gradient.Clone()
		}
	}
	return clone
}

// String prints a per-axis summary of the block.
func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString("Block\n")
	fmt.Fprintf(&sb, "    samples (%d): %v\n", b.samples.Count(), b.samples.Names())
	componentNames := make([]string, 0, len(b.components))
	componentCounts := make([]int, 0, len(b.components))
	for _, component := range b.components {
		componentNames = append(componentNames, strings.Join(component.Names(), ", "))
		componentCounts = append(componentCounts, component.Count())
	}
	fmt.Fprintf(&sb, "    components %v: %v\n", componentCounts, componentNames)
	fmt.Fprintf(&sb, "    properties (%d): %v\n", b.properties.Count(), b.properties.Names())
	fmt.Fprintf(&sb, "    gradients: %v", b.GradientsList())
	return sb.String()
}

// componentsEqual reports whether two blocks have equal component tables.
func componentsEqual(a, b *Block) bool {
	if len(a.components) != len(b.components) {
		return false
	}
	for i := range a.components {
		if !a.components[i].Equal(b.components[i]) {
			return false
		}
	}
	return true
}
