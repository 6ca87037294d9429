// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Layout is the tag describing the order of the axes of an image tensor, e.g. "NHWC".
type Layout string

const (
	// NHWC is the batch, height, width, channels layout: the only one supported.
	NHWC Layout = "NHWC"

	// NCHW is the channels-first layout. It is recognized but not supported.
	NCHW Layout = "NCHW"
)

// Normalize returns the upper-case version of the layout, and NHWC for the empty layout.
func (l Layout) Normalize() Layout {
	if l == "" {
		return NHWC
	}
	return Layout(strings.ToUpper(string(l)))
}

// CheckLayout returns an error wrapping ErrUnsupportedLayout if the layout is not NHWC.
func CheckLayout(layout Layout) error {
	if layout.Normalize() != NHWC {
		return errors.Wrapf(ErrUnsupportedLayout, "layout %q, only %q is supported", layout, NHWC)
	}
	return nil
}

// SupportedDTypes lists the dtypes accepted by Dilation2D.
var SupportedDTypes = []dtypes.DType{
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64,
	dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64,
}

// IsSupportedDType returns whether dtype is one of SupportedDTypes.
func IsSupportedDType(dtype dtypes.DType) bool {
	for _, supported := range SupportedDTypes {
		if supported == dtype {
			return true
		}
	}
	return false
}

// ParseDType parses a dtype name (case-insensitive, e.g. "float32" or "Uint8") into one of SupportedDTypes.
func ParseDType(name string) (dtypes.DType, error) {
	for _, dtype := range SupportedDTypes {
		if strings.EqualFold(dtype.String(), name) {
			return dtype, nil
		}
	}
	return dtypes.InvalidDType, errors.Wrapf(ErrDTypeMismatch, "unknown or unsupported dtype %q", name)
}

// CheckDTypes verifies that the input and structuring element dtypes are supported and compatible: they
// must be equal, except for the Uint8 input with an Int8 structuring element pair. The output dtype must be
// supported as well.
func CheckDTypes(input, structuringElement, output dtypes.DType) error {
	for _, dtype := range []dtypes.DType{input, structuringElement, output} {
		if !IsSupportedDType(dtype) {
			return errors.Wrapf(ErrDTypeMismatch, "dtype %s is not supported", dtype)
		}
	}
	if input == structuringElement {
		return nil
	}
	if input == dtypes.Uint8 && structuringElement == dtypes.Int8 {
		return nil
	}
	return errors.Wrapf(ErrDTypeMismatch, "input dtype %s and structuring element dtype %s are incompatible",
		input, structuringElement)
}
