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
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/types/shapes"
)

// Buffer for the simplego backend holds a shape and the flat data.
//
// flat is always a slice of the Go type for shape.DType. The flat slice may
// be shared between buffers (Reshape shares it), so it is never mutated
// after the buffer is built.
type Buffer struct {
	shape shapes.Shape
	flat  any
}

// Compile-time check:
var _ backends.Array = (*Buffer)(nil)

// FromFlat creates a Buffer with the given dimensions, set with the flattened
// values given in data (row-major). The data is copied.
func FromFlat[T dtypes.Supported](data []T, dimensions ...int) (*Buffer, error) {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if !supportedDType(dtype) {
		return nil, errors.Errorf("simplego backend does not support dtype %s", dtype)
	}
	if len(data) != shape.Size() {
		return nil, errors.Errorf("simplego.FromFlat: got %d values for shape %s (size %d)",
			len(data), shape, shape.Size())
	}
	return &Buffer{shape: shape, flat: slices.Clone(data)}, nil
}

// CopyFlatData returns a copy of the flat data of the given array, which
// must be a simplego Buffer of the corresponding dtype.
func CopyFlatData[T dtypes.Supported](array backends.Array) ([]T, error) {
	buf, ok := array.(*Buffer)
	if !ok {
		return nil, errors.Errorf("array is a %T, not a simplego *Buffer", array)
	}
	flat, ok := buf.flat.([]T)
	if !ok {
		return nil, errors.Errorf("buffer holds %s values, not %T", buf.shape.DType, flat)
	}
	return slices.Clone(flat), nil
}

func supportedDType(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Float16, dtypes.Float32, dtypes.Float64, dtypes.Int32, dtypes.Int64:
		return true
	}
	return false
}

// Shape implements backends.Array.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// String pretty-prints the buffer shape and memory usage.
func (b *Buffer) String() string {
	return fmt.Sprintf("simplego.Buffer%s: %s", b.shape, humanize.Bytes(uint64(b.shape.Memory())))
}

// Clone implements backends.Array: it returns an independently-owned copy.
func (b *Buffer) Clone() backends.Array {
	clone := &Buffer{shape: b.shape.Clone()}
	switch flat := b.flat.(type) {
	case []float16.Float16:
		clone.flat = slices.Clone(flat)
	case []float32:
		clone.flat = slices.Clone(flat)
	case []float64:
		clone.flat = slices.Clone(flat)
	case []int32:
		clone.flat = slices.Clone(flat)
	case []int64:
		clone.flat = slices.Clone(flat)
	default:
		exceptions.Panicf("simplego.Buffer holds unsupported flat data %T", b.flat)
	}
	return clone
}
