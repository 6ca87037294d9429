// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the shape resulting from operations and validates its inputs.
//
// This can be useful for new backends to test and help plan for buffer space for temporary or output buffers.
//
// Errors wrap the sentinel errors in the backends package, test them with errors.Is.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/backends/padding"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/pkg/errors"
)

// EffectiveKernelSize returns the footprint of a kernel with the dilation rate holes: (kernelSize-1)*rate + 1.
func EffectiveKernelSize(kernelSize, rate int) int {
	return (kernelSize-1)*rate + 1
}

// Dilation2DOutputSize returns the output spatial dimensions:
//
//	out = floor((in - effectiveKernel + padBefore + padAfter) / stride) + 1
//
// It returns an error wrapping backends.ErrIncompatibleShapes if the effective kernel is larger than the
// padded input (negative numerator), and backends.ErrInvalidArgument for non-positive strides or kernels.
func Dilation2DOutputSize(inputHeight, inputWidth, effectiveKernelHeight, effectiveKernelWidth, strideHeight, strideWidth int,
	pads padding.Paddings) (outputHeight, outputWidth int, err error) {
	if strideHeight < 1 || strideWidth < 1 {
		err = errors.Wrapf(backends.ErrInvalidArgument, "strides (%d, %d) must be positive", strideHeight, strideWidth)
		return
	}
	if effectiveKernelHeight < 1 || effectiveKernelWidth < 1 {
		err = errors.Wrapf(backends.ErrInvalidArgument, "effective kernel size (%d, %d) must be positive",
			effectiveKernelHeight, effectiveKernelWidth)
		return
	}
	if pads.Top < 0 || pads.Left < 0 || pads.Bottom < 0 || pads.Right < 0 {
		err = errors.Wrapf(backends.ErrInvalidArgument, "paddings %s must be non-negative", pads)
		return
	}
	numeratorHeight := inputHeight - effectiveKernelHeight + pads.Top + pads.Bottom
	numeratorWidth := inputWidth - effectiveKernelWidth + pads.Left + pads.Right
	if numeratorHeight < 0 || numeratorWidth < 0 {
		err = errors.Wrapf(backends.ErrIncompatibleShapes,
			"effective kernel (%d, %d) is larger than the padded input (%d, %d)",
			effectiveKernelHeight, effectiveKernelWidth,
			inputHeight+pads.Top+pads.Bottom, inputWidth+pads.Left+pads.Right)
		return
	}
	outputHeight = numeratorHeight/strideHeight + 1
	outputWidth = numeratorWidth/strideWidth + 1
	return
}

// Dilation2DOp returns the output shape of a 2D dilation of an NHWC input shaped
// `[batch, height, width, channels]` with a structuring element shaped `[kernelHeight, kernelWidth, channels]`.
//
// The output is shaped `[batch, outputHeight, outputWidth, channels]`, with the given output dtype.
// Channels are never mixed, so the structuring element must have exactly as many channels as the input.
func Dilation2DOp(input, structuringElement shapes.Shape, strides, rates [2]int, pads padding.Paddings,
	outputDType dtypes.DType) (shapes.Shape, error) {
	if !input.Ok() || !structuringElement.Ok() {
		return shapes.Invalid(), errors.Wrapf(backends.ErrIncompatibleShapes,
			"invalid input %s or structuring element %s shapes", input, structuringElement)
	}
	if input.Rank() != 4 {
		return shapes.Invalid(), errors.Wrapf(backends.ErrIncompatibleShapes,
			"input must be rank-4 [batch, height, width, channels], got %s", input)
	}
	if structuringElement.Rank() != 3 {
		return shapes.Invalid(), errors.Wrapf(backends.ErrIncompatibleShapes,
			"structuring element must be rank-3 [height, width, channels], got %s", structuringElement)
	}
	if err := backends.CheckDTypes(input.DType, structuringElement.DType, outputDType); err != nil {
		return shapes.Invalid(), err
	}
	inputChannels, kernelChannels := input.Dim(3), structuringElement.Dim(2)
	if inputChannels != kernelChannels {
		return shapes.Invalid(), errors.Wrapf(backends.ErrIncompatibleShapes,
			"input has %d channels but the structuring element has %d (groups=%d/%d), they must be the same",
			inputChannels, kernelChannels, inputChannels, kernelChannels)
	}
	for axis, rate := range rates {
		if rate < 1 {
			return shapes.Invalid(), errors.Wrapf(backends.ErrInvalidArgument, "rates[%d]=%d must be >= 1", axis, rate)
		}
	}
	effectiveKernelHeight := EffectiveKernelSize(structuringElement.Dim(0), rates[0])
	effectiveKernelWidth := EffectiveKernelSize(structuringElement.Dim(1), rates[1])
	outputHeight, outputWidth, err := Dilation2DOutputSize(input.Dim(1), input.Dim(2),
		effectiveKernelHeight, effectiveKernelWidth, strides[0], strides[1], pads)
	if err != nil {
		return shapes.Invalid(), errors.WithMessagef(err, "Dilation2D(input=%s, structuringElement=%s)", input, structuringElement)
	}
	return shapes.Make(outputDType, input.Dim(0), outputHeight, outputWidth, inputChannels), nil
}

// PadOp returns the shape of the operand padded with axesConfig: each axis grows by Start+End.
// There must be at most operand.Rank() axesConfig values, missing ones mean no padding.
func PadOp(operand shapes.Shape, axesConfig ...backends.PadAxis) (shapes.Shape, error) {
	if !operand.Ok() {
		return shapes.Invalid(), errors.Wrapf(backends.ErrIncompatibleShapes, "PadOp: invalid operand shape %s", operand)
	}
	if len(axesConfig) > operand.Rank() {
		return shapes.Invalid(), errors.Wrapf(backends.ErrIncompatibleShapes,
			"PadOp: %d axes configured, but operand %s has rank %d", len(axesConfig), operand, operand.Rank())
	}
	dims := slices.Clone(operand.Dimensions)
	for axis, config := range axesConfig {
		if config.Start < 0 || config.End < 0 {
			return shapes.Invalid(), errors.Wrapf(backends.ErrInvalidArgument,
				"PadOp: axis %d padding %+v must be non-negative", axis, config)
		}
		dims[axis] += config.Start + config.End
	}
	return shapes.Make(operand.DType, dims...), nil
}
