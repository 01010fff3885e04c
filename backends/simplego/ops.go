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

package simplego

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/types/shapes"
)

// Slice implements backends.Array: it gathers rows along one axis.
func (b *Buffer) Slice(axis int, rows []int) (backends.Array, error) {
	dims := b.shape.Dimensions
	if axis < 0 || axis >= len(dims) {
		return nil, errors.Errorf("Slice axis %d out-of-bounds for shape %s", axis, b.shape)
	}
	for _, row := range rows {
		if row < 0 || row >= dims[axis] {
			return nil, errors.Errorf("Slice row %d out-of-bounds for axis %d of shape %s", row, axis, b.shape)
		}
	}

	outer, inner := strides(dims, axis)
	newDims := slices.Clone(dims)
	newDims[axis] = len(rows)
	out := &Buffer{shape: shapes.Make(b.shape.DType, newDims...)}

	switch flat := b.flat.(type) {
	case []float16.Float16:
		out.flat = gatherAxis(flat, outer, dims[axis], inner, rows)
	case []float32:
		out.flat = gatherAxis(flat, outer, dims[axis], inner, rows)
	case []float64:
		out.flat = gatherAxis(flat, outer, dims[axis], inner, rows)
	case []int32:
		out.flat = gatherAxis(flat, outer, dims[axis], inner, rows)
	case []int64:
		out.flat = gatherAxis(flat, outer, dims[axis], inner, rows)
	default:
		return nil, errors.Errorf("buffer holds unsupported flat data %T", b.flat)
	}
	return out, nil
}

// Concat implements backends.Array: it concatenates arrays along one axis.
func (b *Buffer) Concat(axis int, others ...backends.Array) (backends.Array, error) {
	dims := b.shape.Dimensions
	if axis < 0 || axis >= len(dims) {
		return nil, errors.Errorf("Concat axis %d out-of-bounds for shape %s", axis, b.shape)
	}

	buffers := make([]*Buffer, 0, 1+len(others))
	buffers = append(buffers, b)
	concatDim := dims[axis]
	for _, other := range others {
		buf, ok := other.(*Buffer)
		if !ok {
			return nil, errors.Errorf("cannot concatenate a simplego buffer with a %T array", other)
		}
		if buf.shape.DType != b.shape.DType || buf.shape.Rank() != b.shape.Rank() {
			return nil, errors.Errorf("cannot concatenate %s with %s", b.shape, buf.shape)
		}
		for ax, dim := range buf.shape.Dimensions {
			if ax != axis && dim != dims[ax] {
				return nil, errors.Errorf("cannot concatenate %s with %s along axis %d", b.shape, buf.shape, axis)
			}
		}
		concatDim += buf.shape.Dimensions[axis]
		buffers = append(buffers, buf)
	}

	outer, inner := strides(dims, axis)
	chunks := make([]int, len(buffers))
	for i, buf := range buffers {
		chunks[i] = buf.shape.Dimensions[axis] * inner
	}
	newDims := slices.Clone(dims)
	newDims[axis] = concatDim
	out := &Buffer{shape: shapes.Make(b.shape.DType, newDims...)}

	switch b.flat.(type) {
	case []float16.Float16:
		out.flat = concatChunks(flats[float16.Float16](buffers), outer, chunks)
	case []float32:
		out.flat = concatChunks(flats[float32](buffers), outer, chunks)
	case []float64:
		out.flat = concatChunks(flats[float64](buffers), outer, chunks)
	case []int32:
		out.flat = concatChunks(flats[int32](buffers), outer, chunks)
	case []int64:
		out.flat = concatChunks(flats[int64](buffers), outer, chunks)
	default:
		return nil, errors.Errorf("buffer holds unsupported flat data %T", b.flat)
	}
	return out, nil
}

// Reshape implements backends.Array. The flat data is shared, not copied.
func (b *Buffer) Reshape(dimensions ...int) (backends.Array, error) {
	newShape := shapes.Make(b.shape.DType, dimensions...)
	if newShape.Size() != b.shape.Size() {
		return nil, errors.Errorf("cannot reshape %s to %s: total size changes", b.shape, newShape)
	}
	return &Buffer{shape: newShape, flat: b.flat}, nil
}

// SwapAxes implements backends.Array: it transposes two axes.
func (b *Buffer) SwapAxes(axis1, axis2 int) (backends.Array, error) {
	dims := b.shape.Dimensions
	if axis1 < 0 || axis1 >= len(dims) || axis2 < 0 || axis2 >= len(dims) {
		return nil, errors.Errorf("SwapAxes(%d, %d) out-of-bounds for shape %s", axis1, axis2, b.shape)
	}
	if axis1 == axis2 {
		return b, nil
	}

	newDims := slices.Clone(dims)
	newDims[axis1], newDims[axis2] = newDims[axis2], newDims[axis1]
	srcIdx := transposedIndices(dims, axis1, axis2)
	out := &Buffer{shape: shapes.Make(b.shape.DType, newDims...)}

	switch flat := b.flat.(type) {
	case []float16.Float16:
		out.flat = gather(flat, srcIdx)
	case []float32:
		out.flat = gather(flat, srcIdx)
	case []float64:
		out.flat = gather(flat, srcIdx)
	case []int32:
		out.flat = gather(flat, srcIdx)
	case []int64:
		out.flat = gather(flat, srcIdx)
	default:
		return nil, errors.Errorf("buffer holds unsupported flat data %T", b.flat)
	}
	return out, nil
}

// strides returns the product of the dimensions before (outer) and after
// (inner) the given axis.
func strides(dims []int, axis int) (outer, inner int) {
	outer, inner = 1, 1
	for _, dim := range dims[:axis] {
		outer *= dim
	}
	for _, dim := range dims[axis+1:] {
		inner *= dim
	}
	return
}

// gatherAxis copies the given rows of the middle axis, preserving the outer
// and inner axes. inner elements per row are contiguous.
func gatherAxis[T any](flat []T, outer, dim, inner int, rows []int) []T {
	out := make([]T, outer*len(rows)*inner)
	pos := 0
	for o := 0; o < outer; o++ {
		base := o * dim * inner
		for _, row := range rows {
			copy(out[pos:pos+inner], flat[base+row*inner:base+(row+1)*inner])
			pos += inner
		}
	}
	return out
}

// gather copies flat[srcIdx[i]] into position i.
func gather[T any](flat []T, srcIdx []int) []T {
	out := make([]T, len(srcIdx))
	for i, j := range srcIdx {
		out[i] = flat[j]
	}
	return out
}

// concatChunks interleaves the parts: for every outer step, each part
// contributes its chunk of contiguous elements.
func concatChunks[T any](parts [][]T, outer int, chunks []int) []T {
	total := 0
	for _, chunk := range chunks {
		total += chunk
	}
	out := make([]T, outer*total)
	pos := 0
	for o := 0; o < outer; o++ {
		for i, part := range parts {
			copy(out[pos:pos+chunks[i]], part[o*chunks[i]:(o+1)*chunks[i]])
			pos += chunks[i]
		}
	}
	return out
}

// flats extracts the typed flat slices of the given buffers. It must only be
// called after the dtypes were checked to match.
func flats[T any](buffers []*Buffer) [][]T {
	result := make([][]T, len(buffers))
	for i, buf := range buffers {
		result[i] = buf.flat.([]T)
	}
	return result
}

// transposedIndices maps every position of the transposed array to its
// source position in the original flat data.
func transposedIndices(dims []int, axis1, axis2 int) []int {
	rank := len(dims)
	srcStrides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		srcStrides[axis] = stride
		stride *= dims[axis]
	}

	newDims := slices.Clone(dims)
	newDims[axis1], newDims[axis2] = newDims[axis2], newDims[axis1]
	newStrides := slices.Clone(srcStrides)
	newStrides[axis1], newStrides[axis2] = newStrides[axis2], newStrides[axis1]

	size := 1
	for _, dim := range dims {
		size *= dim
	}
	srcIdx := make([]int, size)
	coords := make([]int, rank)
	for i := range srcIdx {
		src := 0
		for axis := range coords {
			src += coords[axis] * newStrides[axis]
		}
		srcIdx[i] = src

		// Row-major increment over the transposed dimensions.
		for axis := rank - 1; axis >= 0; axis-- {
			coords[axis]++
			if coords[axis] < newDims[axis] {
				break
			}
			coords[axis] = 0
		}
	}
	return srcIdx
}
