// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package images provides functions to transform images back and forth from NHWC tensors.
package images

import (
	"image"
	"image/color"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"k8s.io/klog/v2"
)

// ToTensorConfig holds the configuration returned by the ToTensor function. Once
// configured, use Single or Batch to actually convert.
type ToTensorConfig struct {
	channels int
	maxValue float64
	dtype    dtypes.DType
}

// ToTensor converts an image (or batch) to a tensor.
//
// It returns a configuration object that can be further configured. Once set, use Single or Batch
// methods to convert an image or a batch of images.
func ToTensor(dtype dtypes.DType) *ToTensorConfig {
	tt := &ToTensorConfig{
		channels: 3,
		maxValue: 1.0,
		dtype:    dtype,
	}
	if !dtype.IsFloat() {
		// Use 255 for integer types.
		tt.maxValue = 255.0
	}
	return tt
}

// WithAlpha configures the conversion to include the alpha channel, so the converted tensor will have 4 channels.
// The default is dropping the alpha channel.
func (tt *ToTensorConfig) WithAlpha() *ToTensorConfig {
	tt.channels = 4
	return tt
}

// Gray configures the conversion to a single luminance channel, using color.Gray16Model.
func (tt *ToTensorConfig) Gray() *ToTensorConfig {
	tt.channels = 1
	return tt
}

// MaxValue sets the MaxValue of each channel. It defaults to 1.0 for float dtypes and 255 for integer types.
func (tt *ToTensorConfig) MaxValue(v float64) *ToTensorConfig {
	tt.maxValue = v
	return tt
}

// Single converts the given img to a tensor shaped `[1, height, width, channels]`.
//
// It panics in case of error.
func (tt *ToTensorConfig) Single(img image.Image) *tensors.Tensor {
	return tt.Batch([]image.Image{img})
}

// Batch converts the given images to a tensor shaped `[batch_size, height, width, channels]`.
// All images must have the same size.
//
// It panics in case of error.
func (tt *ToTensorConfig) Batch(images []image.Image) *tensors.Tensor {
	if len(images) == 0 {
		exceptions.Panicf("images.ToTensor requires at least one image")
	}
	imgSize := images[0].Bounds().Size()
	shape := shapes.Make(tt.dtype, len(images), imgSize.Y, imgSize.X, tt.channels)
	values := make([]float64, 0, shape.Size())
	for imgIdx, img := range images {
		if !img.Bounds().Size().Eq(imgSize) {
			exceptions.Panicf("image[%d] has size %s, but image[0] has size %s -- they must all be the same",
				imgIdx, img.Bounds().Size(), imgSize)
		}
		minPt := img.Bounds().Min
		for y := range imgSize.Y {
			for x := range imgSize.X {
				pixel := img.At(minPt.X+x, minPt.Y+y)
				if tt.channels == 1 {
					gray := color.Gray16Model.Convert(pixel).(color.Gray16)
					values = append(values, tt.scale(uint32(gray.Y)))
					continue
				}
				r, g, b, a := pixel.RGBA()
				values = append(values, tt.scale(r), tt.scale(g), tt.scale(b))
				if tt.channels == 4 {
					values = append(values, tt.scale(a))
				}
			}
		}
	}
	klog.V(2).Infof("images.ToTensor: converted %d images to %s", len(images), shape)
	return tensors.FromFloat64s(tt.dtype, values, shape.Dimensions...)
}

// scale converts a 16 bits color channel value (as returned by color.Color.RGBA) to [0, maxValue].
// Integer dtypes are rounded to the nearest value.
func (tt *ToTensorConfig) scale(val uint32) float64 {
	v := float64(val) * tt.maxValue / float64(0xFFFF)
	if !tt.dtype.IsFloat() {
		v = math.Round(v)
	}
	return v
}

// ToImageConfig holds the configuration returned by the ToImage function. Once
// configured, use Single or Batch to actually convert a tensor to image(s).
type ToImageConfig struct {
	maxValue float64
}

// ToImage returns a configuration that can be used to convert tensors to Images.
// Use Single or Batch to convert single images or batch of images at once.
//
// Tensors with 1 channel are converted to *image.Gray, with 3 or 4 channels to *image.NRGBA.
func ToImage() *ToImageConfig {
	return &ToImageConfig{}
}

// MaxValue sets the MaxValue of each channel. It defaults to 1.0 for float dtypes and 255 for integer types.
// Values are clipped to [0, MaxValue], and NaN is converted to 0.
func (ti *ToImageConfig) MaxValue(v float64) *ToImageConfig {
	ti.maxValue = v
	return ti
}

// Single converts a tensor shaped `[height, width, channels]` or `[1, height, width, channels]` to an image.
//
// It panics in case of error.
func (ti *ToImageConfig) Single(t *tensors.Tensor) image.Image {
	imgs := ti.Batch(t)
	if len(imgs) != 1 {
		exceptions.Panicf("images.ToImage.Single given tensor with %d images, shape %s", len(imgs), t.Shape())
	}
	return imgs[0]
}

// Batch converts a tensor shaped `[batch_size, height, width, channels]` to a collection of images.
//
// It panics in case of error.
func (ti *ToImageConfig) Batch(t *tensors.Tensor) []image.Image {
	var numImages, height, width, channels int
	dims := t.Shape().Dimensions
	switch t.Rank() {
	case 3:
		numImages, height, width, channels = 1, dims[0], dims[1], dims[2]
	case 4:
		numImages, height, width, channels = dims[0], dims[1], dims[2], dims[3]
	default:
		exceptions.Panicf("invalid tensor shape %s for images.ToImage conversion, must be either rank-3 or rank-4",
			t.Shape())
	}
	if channels != 1 && channels != 3 && channels != 4 {
		exceptions.Panicf("images.ToImage invalid tensor shape %s, with %d channels: only images with 1, 3 or 4 channels are supported",
			t.Shape(), channels)
	}
	maxValue := ti.maxValue
	if maxValue == 0 {
		if t.DType().IsFloat() {
			maxValue = 1.0
		} else {
			maxValue = 255.0
		}
	}

	values := tensors.ToFloat64s(t)
	toUint8 := func(v float64) uint8 {
		if math.IsNaN(v) {
			return 0
		}
		v = math.Round(255 * (v / maxValue))
		return uint8(max(0, min(255, v)))
	}
	images := make([]image.Image, 0, numImages)
	pos := 0
	for range numImages {
		rect := image.Rect(0, 0, width, height)
		if channels == 1 {
			img := image.NewGray(rect)
			for h := range height {
				for w := range width {
					img.Pix[h*img.Stride+w] = toUint8(values[pos])
					pos++
				}
			}
			images = append(images, img)
			continue
		}
		img := image.NewNRGBA(rect)
		for h := range height {
			for w := range width {
				for d := range channels {
					img.Pix[h*img.Stride+w*4+d] = toUint8(values[pos])
					pos++
				}
				if channels < 4 {
					img.Pix[h*img.Stride+w*4+3] = 255 // Alpha channel.
				}
			}
		}
		images = append(images, img)
	}
	return images
}
