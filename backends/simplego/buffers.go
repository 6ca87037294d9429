// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
)

// newFlat allocates a zero-initialized flat slice of the Go type corresponding to dtype.
func newFlat(dtype dtypes.DType, size int) any {
	return reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), size, size).Interface()
}

// scalarTensor returns a scalar tensor of the given dtype holding value, converted to dtype's Go type.
func scalarTensor(dtype dtypes.DType, value any) *tensors.Tensor {
	flat := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), 1, 1)
	flat.Index(0).Set(reflect.ValueOf(value).Convert(dtype.GoType()))
	return tensors.FromFlatAny(shapes.Make(dtype), flat.Interface())
}

// borderValue returns the scalar the border is filled with: zero, or the lowest value of dtype
// (-Inf for floats) if neutral is set.
func borderValue(dtype dtypes.DType, neutral bool) *tensors.Tensor {
	if !neutral {
		return tensors.FromShape(shapes.Make(dtype))
	}
	return scalarTensor(dtype, dtype.LowestValue())
}
