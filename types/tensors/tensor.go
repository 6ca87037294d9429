// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a `Tensor`, an immutable representation of a dense multi-dimensional array.
//
// A Tensor is defined by its shape (a data type and its axes dimensions) and its content, stored as a flat
// (row-major) Go slice of the type corresponding to the DType (e.g.: `[]float32` for dtypes.Float32).
//
// There are various ways to construct a Tensor, all of them copy the given data:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions, and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2}) // Tensor with [[1,2], [3,4]]
//
//   - FromValue[S MultiDimensionSlice](value S): works with the scalar supported `DType`s
//     as well as with any arbitrary multidimensional slice of them. Slices of rank > 1 must be regular, that is
//     all the sub-slices must have the same shape. Example:
//
//     t := FromValue([][]float32{{1,2}, {3, 5}, {7, 11}})
//
//   - FromAnyValue(value any): same as FromValue but non-generic.
//
// Backends that compute new values allocate the flat slice themselves and hand it over with FromFlatAny,
// which takes ownership of the slice without copying.
package tensors

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/xslices"
	"github.com/pkg/errors"
)

// Tensor represents an immutable multidimensional array, defined by its shape (a dtypes.DType and its axes'
// dimensions) and its content stored as a flat (1D) slice of values.
//
// Since it is never modified after construction, it is safe to read from multiple goroutines.
type Tensor struct {
	shape shapes.Shape

	// flat holds the data, a slice of the Go type corresponding to shape.DType.
	flat any
}

// Shape of the tensor, includes DType.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
// It is a shortcut to `Tensor.Shape().DType`.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank returns the rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor. An alias to Tensor.Shape().Memory().
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the Tensor is in a valid state: it is not nil, and it has a valid shape.
func (t *Tensor) Ok() bool {
	return t != nil && t.shape.Ok() && t.flat != nil
}

// AssertValid panics if the tensor is nil or its shape is invalid.
func (t *Tensor) AssertValid() {
	if t == nil {
		panic(errors.New("Tensor is nil"))
	}
	if !t.shape.Ok() || t.flat == nil {
		panic(errors.New("Tensor shape is invalid"))
	}
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size)
	return &Tensor{shape: shape.Clone(), flat: flatV.Interface()}
}

// FromFlatAny returns a Tensor that takes ownership of flat, which must be a slice of the Go type
// corresponding to shape.DType with exactly shape.Size() elements.
//
// The caller must not change flat afterwards. It is how backends return freshly computed outputs.
func FromFlatAny(shape shapes.Shape, flat any) *Tensor {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	flatV := reflect.ValueOf(flat)
	wantType := reflect.SliceOf(shape.DType.GoType())
	if flatV.Type() != wantType {
		exceptions.Panicf("FromFlatAny(%s): flat data has type %s, wanted %s", shape, flatV.Type(), wantType)
	}
	if flatV.Len() != shape.Size() {
		exceptions.Panicf("FromFlatAny(%s): flat data has %d elements, but shape size is %d",
			shape, flatV.Len(), shape.Size())
	}
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// FromScalar creates a tensor with the given scalar.
// The `DType` is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
// The `DType` is inferred from the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	flat := xslices.SliceWithValue(shape.Size(), value)
	if goInts, ok := any(flat).([]int); ok {
		return fromGoInts(shape, goInts)
	}
	return FromFlatAny(shape, flat)
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
//
// It panics if len(data) doesn't match the size of the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	if goInts, ok := any(data).([]int); ok {
		return fromGoInts(shape, goInts)
	}
	flat := make([]T, len(data))
	copy(flat, data)
	return FromFlatAny(shape, flat)
}

// fromGoInts converts Go's `int`, whose dtype is platform dependent, to the flat type of the shape.
func fromGoInts(shape shapes.Shape, data []int) *Tensor {
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	goType := shape.DType.GoType()
	for ii, v := range data {
		flatV.Index(ii).Set(reflect.ValueOf(v).Convert(goType))
	}
	return t
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
//
// The data is owned by the Tensor and must not be changed.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) {
	t.AssertValid()
	accessFn(t.flat)
}

// FlatAny returns the flat data owned by the tensor, as a slice of the Go type corresponding to its DType.
// It must not be changed.
func (t *Tensor) FlatAny() any {
	t.AssertValid()
	return t.flat
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
//
// It is the "generics" version of Tensor.ConstFlatData(). It panics if T doesn't match the tensor's DType.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.AssertValid()
	flat, ok := t.flat.([]T)
	if !ok {
		var v T
		exceptions.Panicf("ConstFlatData[%T] is incompatible with Tensor's dtype %s", v, t.shape.DType)
	}
	accessFn(flat)
}

// CopyFlatData returns a copy of the flat data of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var flatCopy []T
	ConstFlatData(t, func(flat []T) {
		flatCopy = make([]T, len(flat))
		copy(flatCopy, flat)
	})
	return flatCopy
}

// ToScalar returns the scalar value of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor, or if it is not a scalar.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	if !t.shape.IsScalar() {
		var v T
		exceptions.Panicf("ToScalar[%T] requires scalar Tensor, got shape %s instead", v, t.shape)
	}
	var value T
	ConstFlatData(t, func(flat []T) { value = flat[0] })
	return value
}

// Strides returns the strides for each axis. This can be handy when manipulating the flat data.
func (t *Tensor) Strides() []int {
	return t.shape.Strides()
}
