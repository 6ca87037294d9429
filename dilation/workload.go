// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dilation

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/backends/padding"
	"github.com/gomlx/morphology/backends/shapeinference"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/pkg/errors"
)

// Workload describes one dilation call, with every parameter resolved. It is used for diagnostics.
type Workload struct {
	DType, OutputDType dtypes.DType

	Batch, InHeight, InWidth, InChannels int

	// Groups is InChannels / KernelChannels, it is always 1: channels are never mixed.
	Groups int

	OutChannels               int
	KernelHeight, KernelWidth int
	Paddings                  padding.Paddings
	StrideHeight, StrideWidth int
	RateHeight, RateWidth     int
	OutHeight, OutWidth       int
}

// NewWorkload validates the configuration for the given input and structuring element shapes, and
// returns the resolved Workload.
func NewWorkload(input, structuringElement shapes.Shape, config Config) (*Workload, error) {
	strategy, err := strategyFor(config.Layout)
	if err != nil {
		return nil, err
	}
	return newWorkload(strategy, input, structuringElement, config)
}

func newWorkload(strategy Strategy, input, structuringElement shapes.Shape, config Config) (*Workload, error) {
	for axis, name := range []string{"height", "width"} {
		if config.Strides[axis] < 1 {
			return nil, errors.Wrapf(backends.ErrInvalidArgument, "stride for %s is %d, it must be >= 1",
				name, config.Strides[axis])
		}
		if config.Rates[axis] < 1 {
			return nil, errors.Wrapf(backends.ErrInvalidArgument, "rate for %s is %d, it must be >= 1",
				name, config.Rates[axis])
		}
	}
	dims, err := strategy.ImageDims(input)
	if err != nil {
		return nil, err
	}
	if structuringElement.Rank() != 3 {
		return nil, errors.Wrapf(backends.ErrIncompatibleShapes,
			"structuring element must be rank-3 [height, width, channels], got %s", structuringElement)
	}
	kernelChannels := structuringElement.Dim(2)
	if dims.Channels != kernelChannels {
		return nil, errors.Wrapf(backends.ErrIncompatibleShapes,
			"groups = input channels (%d) / structuring element channels (%d) must be exactly 1",
			dims.Channels, kernelChannels)
	}
	outputDType := config.OutputDType
	if outputDType == dtypes.InvalidDType {
		outputDType = input.DType
	}
	if err := backends.CheckDTypes(input.DType, structuringElement.DType, outputDType); err != nil {
		return nil, err
	}

	w := &Workload{
		DType:        input.DType,
		OutputDType:  outputDType,
		Batch:        dims.Batch,
		InHeight:     dims.Height,
		InWidth:      dims.Width,
		InChannels:   dims.Channels,
		Groups:       dims.Channels / kernelChannels,
		OutChannels:  dims.Channels,
		KernelHeight: structuringElement.Dim(0),
		KernelWidth:  structuringElement.Dim(1),
		StrideHeight: config.Strides[0],
		StrideWidth:  config.Strides[1],
		RateHeight:   config.Rates[0],
		RateWidth:    config.Rates[1],
	}
	effectiveKernelHeight, effectiveKernelWidth := w.EffectiveKernel()
	w.Paddings, err = config.Padding.Resolve(w.InHeight, w.InWidth, effectiveKernelHeight, effectiveKernelWidth,
		w.StrideHeight, w.StrideWidth)
	if err != nil {
		return nil, err
	}
	w.OutHeight, w.OutWidth, err = shapeinference.Dilation2DOutputSize(w.InHeight, w.InWidth,
		effectiveKernelHeight, effectiveKernelWidth, w.StrideHeight, w.StrideWidth, w.Paddings)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// EffectiveKernel returns the kernel footprint with the rate holes: (kernel-1)*rate + 1, for height and width.
func (w *Workload) EffectiveKernel() (height, width int) {
	return shapeinference.EffectiveKernelSize(w.KernelHeight, w.RateHeight),
		shapeinference.EffectiveKernelSize(w.KernelWidth, w.RateWidth)
}

// Params returns the backend parameters for the workload.
func (w *Workload) Params(layout backends.Layout, neutralPadding bool) backends.Dilation2DParams {
	return backends.Dilation2DParams{
		Strides:        [2]int{w.StrideHeight, w.StrideWidth},
		Rates:          [2]int{w.RateHeight, w.RateWidth},
		Paddings:       w.Paddings.PerAxis(),
		OutputDType:    w.OutputDType,
		Layout:         layout.Normalize(),
		NeutralPadding: neutralPadding,
	}
}

// OutputShape returns the NHWC shape of the output.
func (w *Workload) OutputShape() shapes.Shape {
	return shapes.Make(w.OutputDType, w.Batch, w.OutHeight, w.OutWidth, w.OutChannels)
}

// NumTaps is the number of (input + structuring element) candidates evaluated: one per output element and
// structuring element position.
func (w *Workload) NumTaps() int {
	return w.Batch * w.OutHeight * w.OutWidth * w.OutChannels * w.KernelHeight * w.KernelWidth
}

// InputMemory is the number of bytes of the input.
func (w *Workload) InputMemory() uintptr {
	return uintptr(w.Batch*w.InHeight*w.InWidth*w.InChannels) * uintptr(w.DType.Size())
}

// OutputMemory is the number of bytes of the output.
func (w *Workload) OutputMemory() uintptr {
	return w.OutputShape().Memory()
}

// String implements fmt.Stringer.
func (w *Workload) String() string {
	return fmt.Sprintf("Dilation2D(%s -> %s: input=[%d %d %d %d], kernel=%dx%d, strides=%dx%d, rates=%dx%d, "+
		"paddings=%s, groups=%d, output=[%d %d %d %d])",
		w.DType, w.OutputDType, w.Batch, w.InHeight, w.InWidth, w.InChannels,
		w.KernelHeight, w.KernelWidth, w.StrideHeight, w.StrideWidth, w.RateHeight, w.RateWidth,
		w.Paddings, w.Groups, w.Batch, w.OutHeight, w.OutWidth, w.OutChannels)
}
