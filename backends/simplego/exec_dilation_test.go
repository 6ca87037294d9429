// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/gomlx/morphology/types/xslices"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// dilationParams returns the parameters with the given strides, rates and (top, bottom, left, right) paddings.
func dilationParams(strides, rates [2]int, top, bottom, left, right int) backends.Dilation2DParams {
	return backends.Dilation2DParams{
		Strides:  strides,
		Rates:    rates,
		Paddings: [2][2]int{{top, bottom}, {left, right}},
	}
}

var ones = [2]int{1, 1}

// referenceDilation2D is a direct, slow, float64 version of the dilation, reading fill outside the input.
func referenceDilation2D(input, structuringElement *tensors.Tensor, params backends.Dilation2DParams, fill float64) (
	values []float64, dims []int) {
	in, se := tensors.ToFloat64s(input), tensors.ToFloat64s(structuringElement)
	batchSize, height, width, channels := input.Shape().Dim(0), input.Shape().Dim(1), input.Shape().Dim(2), input.Shape().Dim(3)
	kernelHeight, kernelWidth := structuringElement.Shape().Dim(0), structuringElement.Shape().Dim(1)
	pads := params.Paddings
	effH := (kernelHeight-1)*params.Rates[0] + 1
	effW := (kernelWidth-1)*params.Rates[1] + 1
	outH := (height+pads[0][0]+pads[0][1]-effH)/params.Strides[0] + 1
	outW := (width+pads[1][0]+pads[1][1]-effW)/params.Strides[1] + 1
	for b := range batchSize {
		for i := range outH {
			for j := range outW {
				for c := range channels {
					best := math.Inf(-1)
					for di := range kernelHeight {
						for dj := range kernelWidth {
							y := i*params.Strides[0] + di*params.Rates[0] - pads[0][0]
							x := j*params.Strides[1] + dj*params.Rates[1] - pads[1][0]
							v := fill
							if y >= 0 && y < height && x >= 0 && x < width {
								v = in[((b*height+y)*width+x)*channels+c]
							}
							best = max(best, v+se[(di*kernelWidth+dj)*channels+c])
						}
					}
					values = append(values, best)
				}
			}
		}
	}
	return values, []int{batchSize, outH, outW, channels}
}

// randomTensor with integer values in [low, high).
func randomTensor(rng *rand.Rand, dtype dtypes.DType, low, high int, dims ...int) *tensors.Tensor {
	shape := shapes.Make(dtype, dims...)
	values := make([]float64, shape.Size())
	for ii := range values {
		values[ii] = float64(low + rng.IntN(high-low))
	}
	return tensors.FromFloat64s(dtype, values, dims...)
}

func TestDilation2D_Scenarios(t *testing.T) {
	// 5x5 single channel image with values 1..25, 3x3 zero structuring element.
	input := tensors.FromFlatDataAndDimensions(xslices.Iota(float32(1), 25), 1, 5, 5, 1)
	se := tensors.FromShape(shapes.Make(dtypes.Float32, 3, 3, 1))

	t.Run("VALID is 3x3 max-pool", func(t *testing.T) {
		output := must.M1(backend.Dilation2D(input, se, dilationParams(ones, ones, 0, 0, 0, 0)))
		assert.Equal(t, [][][][]float32{{
			{{13}, {14}, {15}},
			{{18}, {19}, {20}},
			{{23}, {24}, {25}},
		}}, output.Value())
	})

	t.Run("SAME keeps 5x5", func(t *testing.T) {
		output := must.M1(backend.Dilation2D(input, se, dilationParams(ones, ones, 1, 1, 1, 1)))
		require.Equal(t, []int{1, 5, 5, 1}, output.Shape().Dimensions)
		// Positive inputs: the zero border never wins, the max is the bottom-right neighbor.
		flat := tensors.CopyFlatData[float32](output)
		for i := range 5 {
			for j := range 5 {
				want := float32(min(i+1, 4)*5 + min(j+1, 4) + 1)
				require.Equalf(t, want, flat[i*5+j], "output[%d, %d]", i, j)
			}
		}
	})

	t.Run("rate 2 gives 1x1", func(t *testing.T) {
		seValues := make([]float32, 9)
		seValues[4] = 100 // Center tap reads input (2, 2) = 13.
		seWithCenter := tensors.FromFlatDataAndDimensions(seValues, 3, 3, 1)
		output := must.M1(backend.Dilation2D(input, seWithCenter, dilationParams(ones, [2]int{2, 2}, 0, 0, 0, 0)))
		assert.Equal(t, [][][][]float32{{{{113}}}}, output.Value())

		output = must.M1(backend.Dilation2D(input, se, dilationParams(ones, [2]int{2, 2}, 0, 0, 0, 0)))
		assert.Equal(t, [][][][]float32{{{{25}}}}, output.Value())
	})

	t.Run("strides", func(t *testing.T) {
		output := must.M1(backend.Dilation2D(input, se, dilationParams([2]int{2, 2}, ones, 0, 0, 0, 0)))
		assert.Equal(t, [][][][]float32{{
			{{13}, {15}},
			{{23}, {25}},
		}}, output.Value())
	})

	t.Run("1x1 zero kernel is the identity", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(42, 7))
		x := randomTensor(rng, dtypes.Float32, -50, 50, 2, 4, 3, 2)
		zero := tensors.FromShape(shapes.Make(dtypes.Float32, 1, 1, 2))
		output := must.M1(backend.Dilation2D(x, zero, dilationParams(ones, ones, 0, 0, 0, 0)))
		require.True(t, x.Equal(output))
	})

	t.Run("channels are independent", func(t *testing.T) {
		x := tensors.FromValue([][][][]int32{{{{1, -1}, {2, -2}}}})
		k := tensors.FromValue([][][]int32{{{0, 10}}})
		output := must.M1(backend.Dilation2D(x, k, dilationParams(ones, ones, 0, 0, 0, 0)))
		assert.Equal(t, [][][][]int32{{{{1, 9}, {2, 8}}}}, output.Value())
	})
}

func TestDilation2D_NegativeInputBorder(t *testing.T) {
	// All negative input with SAME padding: the zero border wins on the edges.
	input := tensors.FromScalarAndDimensions(float32(-5), 1, 3, 3, 1)
	se := tensors.FromShape(shapes.Make(dtypes.Float32, 3, 3, 1))
	params := dilationParams(ones, ones, 1, 1, 1, 1)
	output := must.M1(backend.Dilation2D(input, se, params))
	assert.Equal(t, [][][][]float32{{
		{{0}, {0}, {0}},
		{{0}, {-5}, {0}},
		{{0}, {0}, {0}},
	}}, output.Value())

	// NeutralPadding: the border never wins.
	params.NeutralPadding = true
	output = must.M1(backend.Dilation2D(input, se, params))
	require.True(t, output.Equal(input), "got %s", output)

	// Same for integers.
	intInput := tensors.FromScalarAndDimensions(int16(-5), 1, 2, 2, 1)
	intSE := tensors.FromShape(shapes.Make(dtypes.Int16, 2, 2, 1))
	output = must.M1(backend.Dilation2D(intInput, intSE, dilationParams(ones, ones, 1, 0, 1, 0)))
	assert.Equal(t, [][][][]int16{{{{0}, {0}}, {{0}, {-5}}}}, output.Value())
	intParams := dilationParams(ones, ones, 1, 0, 1, 0)
	intParams.NeutralPadding = true
	output = must.M1(backend.Dilation2D(intInput, intSE, intParams))
	require.True(t, output.Equal(intInput), "got %s", output)
}

func TestDilation2D_Reference(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	testCases := []struct {
		dims, kernelDims []int
		params           backends.Dilation2DParams
	}{
		{[]int{1, 5, 5, 1}, []int{3, 3, 1}, dilationParams(ones, ones, 0, 0, 0, 0)},
		{[]int{2, 7, 6, 3}, []int{3, 2, 3}, dilationParams(ones, ones, 1, 1, 0, 1)},
		{[]int{2, 9, 8, 2}, []int{3, 3, 2}, dilationParams([2]int{2, 3}, ones, 1, 2, 1, 1)},
		{[]int{1, 10, 11, 2}, []int{2, 3, 2}, dilationParams([2]int{2, 1}, [2]int{3, 2}, 0, 0, 2, 2)},
		{[]int{3, 4, 4, 1}, []int{4, 4, 1}, dilationParams([2]int{3, 3}, [2]int{2, 2}, 3, 3, 3, 3)},
		{[]int{1, 1, 1, 4}, []int{1, 1, 4}, dilationParams(ones, ones, 0, 0, 0, 0)},
	}
	for _, dtype := range []dtypes.DType{dtypes.Float32, dtypes.Float64, dtypes.Int32, dtypes.Int64, dtypes.Int16} {
		for ii, tc := range testCases {
			t.Run(fmt.Sprintf("%s-%d", dtype, ii), func(t *testing.T) {
				input := randomTensor(rng, dtype, -100, 100, tc.dims...)
				se := randomTensor(rng, dtype, -10, 10, tc.kernelDims...)
				output := must.M1(backend.Dilation2D(input, se, tc.params))
				want, wantDims := referenceDilation2D(input, se, tc.params, 0)
				require.Equal(t, wantDims, output.Shape().Dimensions)
				require.Equal(t, want, tensors.ToFloat64s(output))

				neutralParams := tc.params
				neutralParams.NeutralPadding = true
				output = must.M1(backend.Dilation2D(input, se, neutralParams))
				want, _ = referenceDilation2D(input, se, tc.params, math.Inf(-1))
				require.Equal(t, want, tensors.ToFloat64s(output))
			})
		}
	}
}

func TestDilation2D_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	se := randomTensor(rng, dtypes.Float64, -3, 3, 3, 3, 2)

	t.Run("VALID independent of neutral padding", func(t *testing.T) {
		input := randomTensor(rng, dtypes.Float64, -20, 20, 2, 6, 7, 2)
		params := dilationParams([2]int{2, 1}, ones, 0, 0, 0, 0)
		zeroBorder := must.M1(backend.Dilation2D(input, se, params))
		params.NeutralPadding = true
		neutralBorder := must.M1(backend.Dilation2D(input, se, params))
		require.True(t, zeroBorder.Equal(neutralBorder))
	})

	t.Run("monotonicity", func(t *testing.T) {
		input := randomTensor(rng, dtypes.Float64, -20, 20, 1, 8, 8, 2)
		increment := randomTensor(rng, dtypes.Float64, 0, 5, 1, 8, 8, 2)
		largerValues := tensors.ToFloat64s(input)
		for ii, delta := range tensors.ToFloat64s(increment) {
			largerValues[ii] += delta
		}
		larger := tensors.FromFloat64s(dtypes.Float64, largerValues, 1, 8, 8, 2)
		params := dilationParams(ones, [2]int{2, 1}, 2, 2, 1, 1)
		out0 := tensors.ToFloat64s(must.M1(backend.Dilation2D(input, se, params)))
		out1 := tensors.ToFloat64s(must.M1(backend.Dilation2D(larger, se, params)))
		for ii := range out0 {
			require.LessOrEqualf(t, out0[ii], out1[ii], "position %d", ii)
		}
	})

	t.Run("parallel equals serial", func(t *testing.T) {
		input := randomTensor(rng, dtypes.Float64, -20, 20, 3, 17, 13, 2)
		params := dilationParams(ones, ones, 1, 1, 1, 1)
		serial := must.M1(newBackend("parallelism=0"))
		unlimited := must.M1(newBackend("parallelism=-1"))
		limited := must.M1(newBackend("parallelism=2"))
		want := must.M1(serial.Dilation2D(input, se, params))
		require.True(t, want.Equal(must.M1(unlimited.Dilation2D(input, se, params))))
		require.True(t, want.Equal(must.M1(limited.Dilation2D(input, se, params))))
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		input := randomTensor(rng, dtypes.Float64, -20, 20, 1, 4, 4, 2)
		inputCopy := tensors.FromFloat64s(dtypes.Float64, tensors.ToFloat64s(input), 1, 4, 4, 2)
		_ = must.M1(backend.Dilation2D(input, se, dilationParams(ones, ones, 1, 1, 1, 1)))
		require.True(t, input.Equal(inputCopy))
	})
}

func TestDilation2D_DTypes(t *testing.T) {
	t.Run("uint8 input with int8 structuring element", func(t *testing.T) {
		input := tensors.FromValue([][][][]uint8{{{{200}, {10}}}})
		se := tensors.FromValue([][][]int8{{{-1}}})
		params := dilationParams(ones, ones, 0, 0, 0, 0)

		// Output dtype defaults to the input's: -1 converted to uint8 wraps to 255, and so does the sum.
		output := must.M1(backend.Dilation2D(input, se, params))
		assert.Equal(t, [][][][]uint8{{{{199}, {9}}}}, output.Value())

		params.OutputDType = dtypes.Int16
		output = must.M1(backend.Dilation2D(input, se, params))
		assert.Equal(t, [][][][]int16{{{{199}, {9}}}}, output.Value())
	})

	t.Run("integer overflow wraps", func(t *testing.T) {
		input := tensors.FromValue([][][][]int8{{{{120}}}})
		se := tensors.FromValue([][][]int8{{{10}}})
		output := must.M1(backend.Dilation2D(input, se, dilationParams(ones, ones, 0, 0, 0, 0)))
		assert.Equal(t, [][][][]int8{{{{-126}}}}, output.Value())
	})

	t.Run("output dtype", func(t *testing.T) {
		input := tensors.FromValue([][][][]int32{{{{1}, {2}}, {{3}, {4}}}})
		se := tensors.FromValue([][][]int32{{{1}, {0}}})
		params := dilationParams(ones, ones, 0, 0, 0, 0)
		params.OutputDType = dtypes.Float64
		output := must.M1(backend.Dilation2D(input, se, params))
		assert.Equal(t, [][][][]float64{{{{2}}, {{4}}}}, output.Value())
	})

	t.Run("half precision", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		input32 := randomTensor(rng, dtypes.Float32, -30, 30, 2, 6, 5, 3)
		se32 := randomTensor(rng, dtypes.Float32, -5, 5, 2, 3, 3)
		params := dilationParams([2]int{1, 2}, ones, 1, 0, 1, 1)
		want := must.M1(backend.Dilation2D(input32, se32, params))
		for _, dtype := range []dtypes.DType{dtypes.Float16, dtypes.BFloat16} {
			input := must.M1(backend.ConvertDType(input32, dtype))
			se := must.M1(backend.ConvertDType(se32, dtype))
			output := must.M1(backend.Dilation2D(input, se, params))
			require.Equal(t, dtype, output.DType())
			// Small integers are exact in both half precision formats.
			require.Equal(t, tensors.ToFloat64s(want), tensors.ToFloat64s(output))
		}

		// Float32 input with a Float16 output is rounded to half precision before the addition.
		input := tensors.FromValue([][][][]float32{{{{1.0001}}}})
		se := tensors.FromValue([][][]float32{{{0}}})
		params = dilationParams(ones, ones, 0, 0, 0, 0)
		params.OutputDType = dtypes.Float16
		output := must.M1(backend.Dilation2D(input, se, params))
		assert.Equal(t, [][][][]float16.Float16{{{{float16.Fromfloat32(1.0001)}}}}, output.Value())
	})
}

func TestDilation2D_Errors(t *testing.T) {
	input := tensors.FromShape(shapes.Make(dtypes.Float32, 1, 5, 5, 3))
	se := tensors.FromShape(shapes.Make(dtypes.Float32, 3, 3, 3))
	valid := dilationParams(ones, ones, 0, 0, 0, 0)

	params := valid
	params.Layout = backends.NCHW
	_, err := backend.Dilation2D(input, se, params)
	require.ErrorIs(t, err, backends.ErrUnsupportedLayout)

	params = valid
	params.Layout = "nhwc"
	_, err = backend.Dilation2D(input, se, params)
	require.NoError(t, err)

	_, err = backend.Dilation2D(input, tensors.FromShape(shapes.Make(dtypes.Float64, 3, 3, 3)), valid)
	require.ErrorIs(t, err, backends.ErrDTypeMismatch)

	_, err = backend.Dilation2D(input, tensors.FromShape(shapes.Make(dtypes.Float32, 3, 3, 1)), valid)
	require.ErrorIs(t, err, backends.ErrIncompatibleShapes)

	_, err = backend.Dilation2D(input, tensors.FromShape(shapes.Make(dtypes.Float32, 6, 3, 3)), valid)
	require.ErrorIs(t, err, backends.ErrIncompatibleShapes)

	params = valid
	params.Strides = [2]int{0, 1}
	_, err = backend.Dilation2D(input, se, params)
	require.ErrorIs(t, err, backends.ErrInvalidArgument)

	params = valid
	params.Rates = [2]int{1, 0}
	_, err = backend.Dilation2D(input, se, params)
	require.ErrorIs(t, err, backends.ErrInvalidArgument)

	params = valid
	params.Paddings[0][0] = -1
	_, err = backend.Dilation2D(input, se, params)
	require.ErrorIs(t, err, backends.ErrInvalidArgument)

	params = valid
	params.OutputDType = dtypes.Bool
	_, err = backend.Dilation2D(input, se, params)
	require.ErrorIs(t, err, backends.ErrDTypeMismatch)

	_, err = backend.Dilation2D(nil, se, valid)
	require.ErrorIs(t, err, backends.ErrInvalidArgument)
}
