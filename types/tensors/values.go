// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/xslices"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no recursions in
// generics' constraint definitions, so we enumerate up to 4 levels of slices, enough for NHWC images.
// FromAnyValue works with any number of levels.
type MultiDimensionSlice interface {
	int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | float16.Float16 | bfloat16.BFloat16 |
		[]int | []int8 | []int16 | []int32 | []int64 | []uint8 | []uint16 | []uint32 | []uint64 | []float32 | []float64 | []float16.Float16 | []bfloat16.BFloat16 |
		[][]int | [][]int8 | [][]int16 | [][]int32 | [][]int64 | [][]uint8 | [][]uint16 | [][]uint32 | [][]uint64 | [][]float32 | [][]float64 | [][]float16.Float16 | [][]bfloat16.BFloat16 |
		[][][]int | [][][]int8 | [][][]int16 | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint16 | [][][]uint32 | [][][]uint64 | [][][]float32 | [][][]float64 | [][][]float16.Float16 | [][][]bfloat16.BFloat16 |
		[][][][]int | [][][][]int8 | [][][][]int16 | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint16 | [][][][]uint32 | [][][][]uint64 | [][][][]float32 | [][][][]float64 | [][][][]float16.Float16 | [][][][]bfloat16.BFloat16
}

// FromValue returns a tensor constructed from the given multi-dimension slice (or scalar).
// If the rank of the `value` is larger than 1, the shape of all sub-slices must be the same.
//
// It panics if the shape is not regular.
//
// Notice that FromFlatDataAndDimensions is much faster if speed here is a concern.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue.
// The input is expected to be either a scalar or a slice of slices with homogeneous dimensions.
// If the input is a tensor already, it is simply returned.
//
// It panics with an error if `value` type is unsupported or the shape is not regular.
func FromAnyValue(value any) *Tensor {
	if valueT, ok := value.(*Tensor); ok {
		return valueT
	}
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.Wrapf(err, "cannot create shape from %T", value))
	}
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	goType := shape.DType.GoType()
	pos := 0
	copyLeavesRecursively(flatV, reflect.ValueOf(value), goType, &pos)
	return t
}

// copyLeavesRecursively copies the leaves of a multi-dimension slice to the flat slice, converting
// each value to goType (needed for Go's `int`).
func copyLeavesRecursively(flatV, valueV reflect.Value, goType reflect.Type, pos *int) {
	if valueV.Kind() == reflect.Slice {
		for ii := range valueV.Len() {
			copyLeavesRecursively(flatV, valueV.Index(ii), goType, pos)
		}
		return
	}
	flatV.Index(*pos).Set(valueV.Convert(goType))
	*pos++
}

func shapeForValue(v any) (shape shapes.Shape, err error) {
	err = shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	if t == nil {
		return errors.New("cannot convert nil to a tensor")
	}
	switch t.Kind() {
	case reflect.Slice:
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for Tensor conversion: %T", v.Interface())
		}
		if err := shapeForValueRecursive(shape, v.Index(0), t); err != nil {
			return err
		}

		// Other elements must have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			if err := shapeForValueRecursive(&shapeTest, v.Index(ii), t); err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %q, and %q", shape, shapeTest)
			}
		}
	case reflect.Pointer:
		return errors.Errorf("cannot convert Pointer (%s) to a concrete value for tensors", t)
	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a value concrete tensor type (maybe type not supported yet?)", t)
		}
	}
	return nil
}

// Value returns a multidimensional slice (except if shape is a scalar) containing a copy of the values stored
// in the tensor.
// This is expensive, and usually only used for smaller tensors in tests and to print results.
func (t *Tensor) Value() any {
	t.AssertValid()
	flatV := reflect.ValueOf(t.flat)
	if t.shape.IsScalar() {
		return flatV.Index(0).Interface()
	}
	flatCopyV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopyV, flatV)
	return sliceRecursively(flatCopyV, t.shape.Dimensions, t.shape.Strides()).Interface()
}

// sliceRecursively creates multi-dimensional slices pointing to the flat data.
func sliceRecursively(data reflect.Value, dimensions, strides []int) reflect.Value {
	if len(dimensions) == 1 {
		return data
	}
	resultT := data.Type()
	for range len(dimensions) - 1 {
		resultT = reflect.SliceOf(resultT)
	}
	slice := reflect.MakeSlice(resultT, dimensions[0], dimensions[0])
	for ii := range dimensions[0] {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		slice.Index(ii).Set(sliceRecursively(subData, dimensions[1:], strides[1:]))
	}
	return slice
}

// Equal checks whether t == otherTensor: same shape and exactly the same values.
// If they are the same pointer they are considered equal. Notice NaN values are never equal.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	v0, v1 := reflect.ValueOf(t.flat), reflect.ValueOf(otherTensor.flat)
	for ii := range v0.Len() {
		if !v0.Index(ii).Equal(v1.Index(ii)) {
			return false
		}
	}
	return true
}

// InDelta checks whether Abs(t - otherTensor) <= delta for every element, after converting them to float64.
// The shapes must be equal. NaNs match NaNs and infinities must match exactly.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	return xslices.InDelta(ToFloat64s(t), ToFloat64s(otherTensor), delta)
}

// ToFloat64s returns a copy of the tensor values converted to float64.
//
// It panics for non-numeric dtypes.
func ToFloat64s(t *Tensor) []float64 {
	t.AssertValid()
	switch flat := t.flat.(type) {
	case []float16.Float16:
		return xslices.Map(flat, func(v float16.Float16) float64 { return float64(v.Float32()) })
	case []bfloat16.BFloat16:
		return xslices.Map(flat, func(v bfloat16.BFloat16) float64 { return float64(v.Float32()) })
	}
	flatV := reflect.ValueOf(t.flat)
	float64Type := reflect.TypeOf(float64(0))
	if !flatV.Type().Elem().ConvertibleTo(float64Type) || flatV.Type().Elem().Kind() == reflect.Bool {
		exceptions.Panicf("ToFloat64s: dtype %s is not numeric", t.shape.DType)
	}
	values := make([]float64, flatV.Len())
	for ii := range values {
		values[ii] = flatV.Index(ii).Convert(float64Type).Float()
	}
	return values
}

// maxStringSize is the number of elements above which String only prints a summary.
const maxStringSize = 64

// String converts to string, printing the values if the tensor is not too large.
func (t *Tensor) String() string {
	if !t.Ok() {
		return "<invalid tensor>"
	}
	if t.Size() > maxStringSize {
		return t.Summary(8)
	}
	return fmt.Sprintf("%s: %v", t.shape, t.Value())
}

// Summary returns the shape followed by the first numValues values of the flat data.
func (t *Tensor) Summary(numValues int) string {
	if !t.Ok() {
		return "<invalid tensor>"
	}
	flatV := reflect.ValueOf(t.flat)
	n := min(numValues, flatV.Len())
	parts := make([]string, n)
	for ii := range n {
		parts[ii] = fmt.Sprintf("%v", flatV.Index(ii).Interface())
	}
	if n < flatV.Len() {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("%s: flat=[%s]", t.shape, strings.Join(parts, " "))
}

// FromFloat64s creates a tensor of the given dtype and dimensions from float64 values, converted
// with Go's conversion rules (truncation towards zero for integer dtypes).
//
// It panics if the dtype is not numeric or the number of values doesn't match the dimensions.
func FromFloat64s(dtype dtypes.DType, values []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dtype, dimensions...)
	if len(values) != shape.Size() {
		exceptions.Panicf("FromFloat64s(%s): got %d values, but dimensions size is %d", shape, len(values), shape.Size())
	}
	var flat any
	switch dtype {
	case dtypes.Float32:
		flat = castFloat64s[float32](values)
	case dtypes.Float64:
		flat = castFloat64s[float64](values)
	case dtypes.Int8:
		flat = castFloat64s[int8](values)
	case dtypes.Int16:
		flat = castFloat64s[int16](values)
	case dtypes.Int32:
		flat = castFloat64s[int32](values)
	case dtypes.Int64:
		flat = castFloat64s[int64](values)
	case dtypes.Uint8:
		flat = castFloat64s[uint8](values)
	case dtypes.Uint16:
		flat = castFloat64s[uint16](values)
	case dtypes.Uint32:
		flat = castFloat64s[uint32](values)
	case dtypes.Uint64:
		flat = castFloat64s[uint64](values)
	case dtypes.Float16:
		flat = xslices.Map(values, func(v float64) float16.Float16 { return float16.Fromfloat32(float32(v)) })
	case dtypes.BFloat16:
		flat = xslices.Map(values, func(v float64) bfloat16.BFloat16 { return bfloat16.FromFloat32(float32(v)) })
	default:
		exceptions.Panicf("FromFloat64s: dtype %s not supported", dtype)
	}
	return FromFlatAny(shape, flat)
}

func castFloat64s[T dtypes.NumberNotComplex](values []float64) []T {
	return xslices.Map(values, func(v float64) T { return T(v) })
}
