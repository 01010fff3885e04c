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

// Package simplego implements the default, pure-Go array backend.
//
// It holds every array as a flat Go slice of the underlying dtype, and
// implements the gather/concatenate/reshape/transpose contract with plain
// strided copies. It supports Float16 (via github.com/x448/float16),
// Float32, Float64, Int32 and Int64.
//
// Importing the package registers the backend under the name "go":
//
//	import _ "github.com/blocksparse/blocksparse/backends/simplego"
package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/types/shapes"
)

// BackendName to use in backends.NewWithConfig to choose this backend.
const BackendName = "go"

// Backend implements backends.Backend with pure Go slices.
// It is stateless, all the data lives in the Buffer handles.
type Backend struct{}

// Compile-time check:
var _ backends.Backend = (*Backend)(nil)

func init() {
	backends.Register(BackendName, func(config string) (backends.Backend, error) {
		if config != "" {
			return nil, errors.Errorf("simplego backend takes no configuration, got %q", config)
		}
		return New(), nil
	})
}

// New creates a simplego Backend.
func New() *Backend { return &Backend{} }

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "simplego: pure Go arrays (Float16, Float32, Float64, Int32, Int64)"
}

// Zeros implements backends.Backend: it creates a zero-initialized array.
// Like shapes.Make it panics on negative dimensions or unsupported dtypes.
func (b *Backend) Zeros(dtype dtypes.DType, dimensions ...int) backends.Array {
	shape := shapes.Make(dtype, dimensions...)
	buf := &Buffer{shape: shape}
	switch dtype {
	case dtypes.Float16:
		buf.flat = make([]float16.Float16, shape.Size())
	case dtypes.Float32:
		buf.flat = make([]float32, shape.Size())
	case dtypes.Float64:
		buf.flat = make([]float64, shape.Size())
	case dtypes.Int32:
		buf.flat = make([]int32, shape.Size())
	case dtypes.Int64:
		buf.flat = make([]int64, shape.Size())
	default:
		exceptions.Panicf("simplego backend does not support dtype %s", dtype)
	}
	return buf
}
