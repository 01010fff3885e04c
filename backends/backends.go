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

// Package backends defines the interface an array backend needs to implement
// to store the dense data of block-sparse tensors.
//
// The tensors package never touches array memory directly: blocks hold
// opaque Array handles and only ever ask for their shape, gather rows along
// one axis, concatenate handles, reshape or swap axes. Allocation, device
// placement and arithmetic kernels all belong to the backend.
//
// A default pure-Go backend lives in backends/simplego; importing it
// registers it under the name "go".
package backends

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/blocksparse/blocksparse/types/shapes"
)

// ErrBackend is the sentinel every error escaping an Array operation is
// wrapped with by the tensors package: backend failures propagate without
// interpretation, but errors.Is(err, backends.ErrBackend) identifies them.
var ErrBackend = errors.New("array backend error")

// Array is an opaque handle to a dense array owned by a backend.
//
// Handles are immutable and cheap to share: every operation returns a new
// handle, and implementations are expected to share the underlying data
// where the operation allows it (Reshape, Clone-on-write, etc.).
// All operations must be safe to invoke concurrently from multiple
// goroutines.
type Array interface {
	// Shape returns the shape (dtype and dimensions) of the array.
	Shape() shapes.Shape

	// Slice gathers the given rows along one axis: the result has the same
	// shape except dimensions[axis] == len(rows). Row indices may repeat and
	// come in any order.
	Slice(axis int, rows []int) (Array, error)

	// Concat concatenates this array with others along the given axis. All
	// arrays must have the same dtype and the same dimensions on every other
	// axis.
	Concat(axis int, others ...Array) (Array, error)

	// Reshape returns an array with the same data viewed with the given
	// dimensions. The total size must not change.
	Reshape(dimensions ...int) (Array, error)

	// SwapAxes returns the array transposed on the two given axes.
	SwapAxes(axis1, axis2 int) (Array, error)

	// Clone returns an independently-owned deep copy.
	Clone() Array
}

// Backend creates arrays. The rest of the Array API hangs off the handles
// themselves, so most code only needs a Backend to build initial data.
type Backend interface {
	// Name returns the short name the backend was registered under.
	Name() string

	// Description is a longer description of the backend that can be used to pretty-print.
	Description() string

	// Zeros creates a zero-initialized array of the given shape.
	Zeros(dtype dtypes.DType, dimensions ...int) Array
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under the given name. The constructor
// receives the backend-specific part of the configuration string.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	if _, found := registeredConstructors[name]; found {
		klog.Warningf("backends.Register: re-registering backend %q", name)
	}
	registeredConstructors[name] = constructor
	klog.V(1).Infof("backends.Register: registered array backend %q", name)
}

// DefaultConfig is the backend configuration to use if the environment
// variable is not set. See NewWithConfig for the format.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend
// configuration. The format is "<backend_name>:<backend_configuration>".
const ConfigEnvVar = "BLOCKSPARSE_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
//  1. The environment variable BLOCKSPARSE_BACKEND, if set.
//  2. The package variable DefaultConfig, if set.
//  3. The first registered backend, with an empty configuration.
//
// It panics if no backend was registered or the configuration is invalid.
func New() Backend {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates a Backend from a configuration string formatted as
// "<backend_name>:<backend_configuration>". The name part may be omitted, in
// which case the first registered backend is used.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered array backends -- import the default one with import _ "github.com/blocksparse/blocksparse/backends/simplego"`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	backend, err := constructor(backendConfig)
	if err != nil {
		exceptions.Panicf("failed to construct backend %q: %+v", backendName, err)
	}
	return backend
}
