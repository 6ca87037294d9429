// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFromShape(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Int16, 2, 3))
	require.True(t, tensor.Ok())
	assert.Equal(t, dtypes.Int16, tensor.DType())
	assert.Equal(t, 2, tensor.Rank())
	assert.Equal(t, 6, tensor.Size())
	assert.Equal(t, uintptr(12), tensor.Memory())
	assert.Equal(t, []int16{0, 0, 0, 0, 0, 0}, CopyFlatData[int16](tensor))
	assert.Equal(t, [][]int16{{0, 0, 0}, {0, 0, 0}}, tensor.Value())

	require.Panics(t, func() { FromShape(shapes.Invalid()) })
	var nilTensor *Tensor
	require.False(t, nilTensor.Ok())
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	tensor := FromFlatDataAndDimensions(data, 1, 2, 3)
	data[0] = 100
	assert.Equal(t, [][][]float32{{{1, 2, 3}, {4, 5, 6}}}, tensor.Value(), "data must be copied")
	assert.Equal(t, []int{6, 3, 1}, tensor.Strides())

	// Modifying a copy doesn't change the tensor.
	flatCopy := CopyFlatData[float32](tensor)
	flatCopy[1] = -1
	ConstFlatData(tensor, func(flat []float32) {
		assert.Equal(t, float32(2), flat[1])
	})

	require.Panics(t, func() { FromFlatDataAndDimensions([]float32{1, 2, 3}, 2, 2) })
	require.Panics(t, func() { ConstFlatData(tensor, func(flat []float64) {}) })

	// Go's int uses the platform dtype.
	ints := FromFlatDataAndDimensions([]int{1, -2, 3}, 3)
	assert.Equal(t, dtypes.FromGenericsType[int](), ints.DType())
	assert.Equal(t, []float64{1, -2, 3}, ToFloat64s(ints))
}

func TestFromScalarAndDimensions(t *testing.T) {
	tensor := FromScalarAndDimensions(int8(-7), 2, 2)
	assert.Equal(t, [][]int8{{-7, -7}, {-7, -7}}, tensor.Value())

	scalar := FromScalar(float64(3))
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 3.0, ToScalar[float64](scalar))
	assert.Equal(t, 3.0, scalar.Value())
	require.Panics(t, func() { ToScalar[float64](tensor) })
}

func TestFromValue(t *testing.T) {
	tensor := FromValue([][]uint8{{1, 2}, {3, 4}, {5, 6}})
	assert.Equal(t, "(Uint8)[3 2]", tensor.Shape().String())
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6}, CopyFlatData[uint8](tensor))

	ints := FromValue([][]int{{1, 2}, {3, 4}})
	assert.Equal(t, []float64{1, 2, 3, 4}, ToFloat64s(ints))

	// Irregular shapes panic.
	require.Panics(t, func() { FromAnyValue([][]float32{{1, 2}, {3}}) })
	require.Panics(t, func() { FromAnyValue([]float32{}) })
	require.Panics(t, func() { FromAnyValue("string") })

	// Tensors are passed through.
	require.Same(t, tensor, FromAnyValue(tensor))
}

func TestFromFlatAny(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 2)
	tensor := FromFlatAny(shape, []float32{1, 2})
	assert.Equal(t, []float32{1, 2}, tensor.Value())
	require.Panics(t, func() { FromFlatAny(shape, []float64{1, 2}) })
	require.Panics(t, func() { FromFlatAny(shape, []float32{1, 2, 3}) })
}

func TestEqualAndInDelta(t *testing.T) {
	t0 := FromValue([][]float32{{1, 2}, {3, 4}})
	t1 := FromValue([][]float32{{1, 2}, {3, 4}})
	t2 := FromValue([][]float32{{1, 2}, {3, 4.01}})
	t3 := FromValue([]float32{1, 2, 3, 4})
	assert.True(t, t0.Equal(t1))
	assert.False(t, t0.Equal(t2))
	assert.False(t, t0.Equal(t3))
	assert.True(t, t0.InDelta(t2, 0.1))
	assert.False(t, t0.InDelta(t2, 0.001))
	assert.False(t, t0.InDelta(t3, 1))

	inf := FromValue([]float64{math.Inf(-1), 1})
	assert.True(t, inf.InDelta(FromValue([]float64{math.Inf(-1), 1}), 0))
	assert.False(t, inf.InDelta(FromValue([]float64{0, 1}), 1e9))
}

func TestHalfPrecision(t *testing.T) {
	f16 := FromValue([]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)})
	assert.Equal(t, dtypes.Float16, f16.DType())
	assert.Equal(t, []float64{1.5, -2}, ToFloat64s(f16))

	bf16 := FromFlatDataAndDimensions([]bfloat16.BFloat16{bfloat16.FromFloat32(0.5), bfloat16.FromFloat32(8)}, 2)
	assert.Equal(t, dtypes.BFloat16, bf16.DType())
	assert.Equal(t, []float64{0.5, 8}, ToFloat64s(bf16))

	require.Panics(t, func() { ToFloat64s(FromValue([]int8{1}).withDType(dtypes.Bool)) })
}

// withDType is a test helper that builds a zero tensor of the same dimensions with another dtype.
func (t *Tensor) withDType(dtype dtypes.DType) *Tensor {
	return FromShape(t.shape.WithDType(dtype))
}

func TestString(t *testing.T) {
	tensor := FromValue([][]int32{{1, 2}, {3, 4}})
	assert.Equal(t, "(Int32)[2 2]: [[1 2] [3 4]]", tensor.String())

	large := FromShape(shapes.Make(dtypes.Uint8, 10, 10))
	assert.Equal(t, "(Uint8)[10 10]: flat=[0 0 0 0 0 0 0 0 ...]", large.String())
}

func TestFromFloat64s(t *testing.T) {
	values := []float64{-1.7, 0, 2.9, 300}
	assert.Equal(t, []int16{-1, 0, 2, 300}, CopyFlatData[int16](FromFloat64s(dtypes.Int16, values, 2, 2)))
	assert.Equal(t, []float32{-1.7, 0, 2.9, 300}, CopyFlatData[float32](FromFloat64s(dtypes.Float32, values, 4)))
	f16 := FromFloat64s(dtypes.Float16, []float64{0.5, -4}, 2)
	assert.Equal(t, []float64{0.5, -4}, ToFloat64s(f16))
	require.Panics(t, func() { FromFloat64s(dtypes.Bool, []float64{1}, 1) })
	require.Panics(t, func() { FromFloat64s(dtypes.Float32, values, 3) })
}
