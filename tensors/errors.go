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
	"github.com/pkg/errors"

	"github.com/blocksparse/blocksparse/backends"
	"github.com/blocksparse/blocksparse/types/labels"
)

// Every failure in this package is a caller-supplied invariant violation,
// detected synchronously, before any observable mutation: there are no
// transient or retryable errors. Each error wraps one of the sentinels
// below, recoverable with errors.Is.
var (
	// ErrInvalidSelection indicates selection labels whose names are not a
	// subset of the target labels' names. Aliases labels.ErrInvalidSelection.
	ErrInvalidSelection = labels.ErrInvalidSelection

	// ErrIndexOutOfRange indicates an axis (or other positional) index
	// beyond a block's rank.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrBlockOutOfRange indicates a block index >= Map.Count in BlockByID.
	//
	// It is deliberately distinct from both ErrIndexOutOfRange and
	// ErrNotFound: iteration protocols probe increasing indices and use this
	// error as the end-of-sequence signal, which must not be confused with a
	// failed label lookup.
	ErrBlockOutOfRange = errors.New("block index out of range")

	// ErrNotFound indicates that no block matches a single-block selection,
	// or that a gradient parameter is absent.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousSelection indicates that more than one block matches a
	// single-block selection.
	ErrAmbiguousSelection = errors.New("ambiguous selection")

	// ErrInvalidArgument indicates a malformed selection shape, e.g. a
	// multi-entry Labels passed where a single entry is required.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicate indicates a gradient parameter name that is already
	// registered.
	ErrDuplicate = errors.New("duplicate")

	// ErrShapeMismatch indicates axis labels that disagree with an array
	// shape or with each other: block construction with wrong axis lengths,
	// gradients whose components/properties differ from their parent's, or
	// merged blocks whose non-target axes differ.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrGradientMismatch indicates blocks being merged whose gradient
	// parameter sets (or gradient structures) disagree.
	ErrGradientMismatch = errors.New("gradient mismatch")
)

// backendError wraps an error surfaced by the array backend, unmodified:
// errors.Is(err, backends.ErrBackend) identifies it, Unwrap exposes the
// original cause.
type backendError struct {
	cause error
}

func (e *backendError) Error() string {
	return "array backend error: " + e.cause.Error()
}

func (e *backendError) Unwrap() error { return e.cause }

func (e *backendError) Is(target error) bool { return target == backends.ErrBackend }

// wrapBackend tags err as a backend failure. It returns nil for a nil err.
func wrapBackend(err error) error {
	if err == nil {
		return nil
	}
	return &backendError{cause: err}
}
