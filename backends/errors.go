// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import "github.com/pkg/errors"

// Errors reported by morphology operations. They are always returned wrapped with a description of the
// offending values, use errors.Is to test for them.
var (
	// ErrInvalidPaddingMode is returned for a padding mode string other than VALID, SAME or explicit sizes.
	ErrInvalidPaddingMode = errors.New("invalid padding mode")

	// ErrIncompatibleShapes is returned when the kernel footprint doesn't fit the padded input, for wrong
	// ranks or for a channel mismatch between the input and the structuring element.
	ErrIncompatibleShapes = errors.New("incompatible shapes")

	// ErrUnsupportedLayout is returned for any layout other than NHWC.
	ErrUnsupportedLayout = errors.New("unsupported layout")

	// ErrDTypeMismatch is returned when the input and structuring element dtypes don't match (other than
	// the Uint8 input with Int8 structuring element pair), or a dtype is not supported.
	ErrDTypeMismatch = errors.New("dtype mismatch")

	// ErrInvalidArgument is returned for non-positive strides or rates, and negative padding sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotImplemented is returned by backends for operations they don't support.
	ErrNotImplemented = errors.New("not implemented")
)
