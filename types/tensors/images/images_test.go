// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package images

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := range 2 {
		for x := range 3 {
			img.Set(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(20 * y), B: 200, A: 255})
		}
	}
	return img
}

func TestTensorToFromImage(t *testing.T) {
	img := testImage()
	for _, dtype := range []dtypes.DType{dtypes.Float32, dtypes.Float64, dtypes.Uint8, dtypes.Int32, dtypes.Float16} {
		t.Run(dtype.String(), func(t *testing.T) {
			imgTensor := ToTensor(dtype).Single(img)
			assert.Equal(t, []int{1, 2, 3, 3}, imgTensor.Shape().Dimensions)
			assert.Equal(t, dtype, imgTensor.DType())
			imgBack := ToImage().Single(imgTensor).(*image.NRGBA)
			require.Equal(t, img.Pix, imgBack.Pix)
		})
	}

	withAlpha := ToTensor(dtypes.Uint8).WithAlpha().Batch([]image.Image{img, img})
	assert.Equal(t, []int{2, 2, 3, 4}, withAlpha.Shape().Dimensions)
	values := tensors.ToFloat64s(withAlpha)
	assert.Equal(t, []float64{0, 0, 200, 255}, values[:4])
	assert.Equal(t, []float64{10, 0, 200, 255}, values[4:8])
	assert.Len(t, ToImage().Batch(withAlpha), 2)
}

func TestGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Pix = []uint8{0, 64, 128, 255}
	grayTensor := ToTensor(dtypes.Uint8).Gray().Single(img)
	assert.Equal(t, []int{1, 2, 2, 1}, grayTensor.Shape().Dimensions)
	assert.Equal(t, []float64{0, 64, 128, 255}, tensors.ToFloat64s(grayTensor))

	imgBack := ToImage().Single(grayTensor).(*image.Gray)
	assert.Equal(t, img.Pix, imgBack.Pix)

	// Float values are scaled to [0, 1] and clipped back.
	floatTensor := tensors.FromValue([][][]float32{{{-0.5}, {0.5}}, {{1}, {2}}})
	grayBack := ToImage().Single(floatTensor).(*image.Gray)
	assert.Equal(t, []uint8{0, 128, 255, 255}, grayBack.Pix)

	// NaN and infinities.
	nanTensor := tensors.FromValue([][][]float64{{{math.NaN()}, {math.Inf(1)}}, {{math.Inf(-1)}, {math.NaN()}}})
	nanBack := ToImage().Single(nanTensor).(*image.Gray)
	assert.Equal(t, []uint8{0, 255, 0, 0}, nanBack.Pix)
}

func TestErrors(t *testing.T) {
	require.Panics(t, func() { ToTensor(dtypes.Float32).Batch(nil) })
	small := image.NewGray(image.Rect(0, 0, 1, 1))
	require.Panics(t, func() { ToTensor(dtypes.Float32).Batch([]image.Image{testImage(), small}) })
	require.Panics(t, func() { ToImage().Single(tensors.FromValue([]float32{1, 2})) })
	require.Panics(t, func() { ToImage().Single(tensors.FromValue([][][]float32{{{1, 2}}})) })
}
