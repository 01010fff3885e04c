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
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/backends/simplego"
	"github.com/blocksparse/blocksparse/types/labels"
)

// testLabels builds a Labels table, failing the test on invalid input.
func testLabels(t *testing.T, names []string, entries ...[]int32) *labels.Labels {
	t.Helper()
	l, err := labels.New(names, entries)
	require.NoError(t, err)
	return l
}

// testArray builds a float64 array with the given flat data and dimensions.
func testArray(t *testing.T, flat []float64, dimensions ...int) backends.Array {
	t.Helper()
	buf, err := simplego.FromFlat(flat, dimensions...)
	require.NoError(t, err)
	return buf
}

// flatOf extracts a copy of an array's float64 data.
func flatOf(t *testing.T, array backends.Array) []float64 {
	t.Helper()
	flat, err := simplego.CopyFlatData[float64](array)
	require.NoError(t, err)
	return flat
}

func TestNewBlockValidation(t *testing.T) {
	samples := testLabels(t, []string{"s"}, []int32{0}, []int32{1})
	properties := testLabels(t, []string{"p"}, []int32{0}, []int32{1}, []int32{2})
	values := testArray(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)

	block := must.M1(NewBlock(values, samples, nil, properties))
	require.Equal(t, 2, block.Rank())
	require.Equal(t, samples, block.Samples())
	require.Equal(t, properties, block.Properties())
	require.Empty(t, block.Components())

	// Rank disagrees with the number of label tables.
	component := testLabels(t, []string{"c"}, []int32{0})
	_, err := NewBlock(values, samples, []*labels.Labels{component}, properties)
	require.ErrorIs(t, err, ErrShapeMismatch)

	// Axis lengths disagree with the labels' entry counts.
	_, err = NewBlock(values, properties, nil, properties)
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NewBlock(values, samples, nil, samples)
	require.ErrorIs(t, err, ErrShapeMismatch)

	cube := testArray(t, []float64{1, 2, 3, 4, 5, 6}, 2, 1, 3)
	_, err = NewBlock(cube, samples, []*labels.Labels{properties}, properties)
	require.ErrorIs(t, err, ErrShapeMismatch)
	withComponent := must.M1(NewBlock(cube, samples, []*labels.Labels{component}, properties))
	require.Equal(t, 3, withComponent.Rank())
}

func TestBlockAxis(t *testing.T) {
	samples := testLabels(t, []string{"s"}, []int32{0})
	component := testLabels(t, []string{"c"}, []int32{0}, []int32{1})
	properties := testLabels(t, []string{"p"}, []int32{0}, []int32{1}, []int32{2})
	values := testArray(t, []float64{1, 2, 3, 4, 5, 6}, 1, 2, 3)
	block := must.M1(NewBlock(values, samples, []*labels.Labels{component}, properties))

	require.Equal(t, samples, must.M1(block.Axis(0)))
	require.Equal(t, component, must.M1(block.Axis(1)))
	require.Equal(t, properties, must.M1(block.Axis(2)))
	_, err := block.Axis(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = block.Axis(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestBlockGradients(t *testing.T) {
	samples := testLabels(t, []string{"s"}, []int32{0}, []int32{1})
	properties := testLabels(t, []string{"p"}, []int32{0})
	block := must.M1(NewBlock(testArray(t, []float64{1, 2}, 2, 1), samples, nil, properties))

	gradSamples := testLabels(t, []string{"sample"}, []int32{0}, []int32{1}, []int32{1})
	gradient := must.M1(NewBlock(testArray(t, []float64{0.1, 0.2, 0.3}, 3, 1), gradSamples, nil, properties))

	require.False(t, block.HasGradient("positions"))
	require.NoError(t, block.AddGradient("positions", gradient))
	require.True(t, block.HasGradient("positions"))
	require.Equal(t, gradient, must.M1(block.Gradient("positions")))

	err := block.AddGradient("positions", gradient)
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = block.Gradient("cell")
	require.ErrorIs(t, err, ErrNotFound)

	// Gradient properties must match the parent's.
	otherProperties := testLabels(t, []string{"q"}, []int32{0})
	mismatched := must.M1(NewBlock(testArray(t, []float64{0.1}, 1, 1), testLabels(t, []string{"sample"}, []int32{0}), nil, otherProperties))
	err = block.AddGradient("cell", mismatched)
	require.ErrorIs(t, err, ErrShapeMismatch)

	require.NoError(t, block.AddGradient("cell", gradient))
	require.Equal(t, []string{"cell", "positions"}, block.GradientsList())
}

func TestBlockClone(t *testing.T) {
	samples := testLabels(t, []string{"s"}, []int32{0})
	properties := testLabels(t, []string{"p"}, []int32{0})
	block := must.M1(NewBlock(testArray(t, []float64{1}, 1, 1), samples, nil, properties))
	gradient := must.M1(NewBlock(testArray(t, []float64{2}, 1, 1), samples, nil, properties))
	require.NoError(t, block.AddGradient("positions", gradient))

	clone := block.Clone()
	require.NotSame(t, block, clone)
	require.NotSame(t, block.values, clone.values)
	require.Equal(t, flatOf(t, block.values), flatOf(t, clone.values))
	require.Same(t, block.samples, clone.samples)

	// Gradient maps are independent.
	extra := must.M1(NewBlock(testArray(t, []float64{3}, 1, 1), samples, nil, properties))
	require.NoError(t, clone.AddGradient("cell", extra))
	require.False(t, block.HasGradient("cell"))
	require.NotSame(t, block.gradients["positions"], clone.gradients["positions"])
}

func TestBlockString(t *testing.T) {
	samples := testLabels(t, []string{"s"}, []int32{0})
	component := testLabels(t, []string{"c"}, []int32{0}, []int32{1})
	properties := testLabels(t, []string{"p"}, []int32{0})
	block := must.M1(NewBlock(testArray(t, []float64{1, 2}, 1, 2, 1), samples, []*labels.Labels{component}, properties))
	require.Contains(t, block.String(), "samples (1): [s]")
	require.Contains(t, block.String(), "properties (1): [p]")
}
