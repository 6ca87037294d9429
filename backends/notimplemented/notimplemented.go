// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package notimplemented implements a backends.Backend whose operations all return an error wrapping
// backends.ErrNotImplemented.
//
// This can help bootstrap any backend implementation, or create mock backends for tests: embed Backend
// and override only the operations needed.
package notimplemented

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
)

// NotImplementedError is returned by every method.
//
// It doesn't contain a stack, attach a stack to with with errors.Wrapf(ErrNotImplemented, "...") when using it.
var NotImplementedError = backends.ErrNotImplemented

// Backend is a dummy backend that can be embedded to create mock backends.
type Backend struct{}

var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return "notimplemented"
}

// String returns the same as Name.
func (b *Backend) String() string {
	return b.Name()
}

// Description is a longer description of the Backend.
func (b *Backend) Description() string {
	return "Not Implemented Backend (mock backend for testing)"
}

// Pad returns NotImplementedError.
func (b *Backend) Pad(_, _ *tensors.Tensor, _ ...backends.PadAxis) (*tensors.Tensor, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Pad()")
}

// ConvertDType returns NotImplementedError.
func (b *Backend) ConvertDType(_ *tensors.Tensor, dtype dtypes.DType) (*tensors.Tensor, error) {
	return nil, errors.Wrapf(NotImplementedError, "in ConvertDType(dtype=%s)", dtype)
}

// Dilation2D returns NotImplementedError.
func (b *Backend) Dilation2D(_, _ *tensors.Tensor, _ backends.Dilation2DParams) (*tensors.Tensor, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Dilation2D()")
}

// Finalize is a no-op.
func (b *Backend) Finalize() {}
