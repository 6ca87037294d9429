// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dilation computes the 2D grayscale morphological dilation of a batch of images.
//
// For an input shaped [batch, height, width, channels] (NHWC) and a structuring element shaped
// [kernel_height, kernel_width, channels]:
//
//	output[b, i, j, c] = max_{di, dj} padded[b, i*stride_h + di*rate_h, j*stride_w + dj*rate_w, c] + se[di, dj, c]
//
// Channels are processed independently. Example:
//
//	output, err := dilation.Dilation2D(images, se).PadSame().Strides(2).Done()
//
// The computation is done by a backend: by default the one returned by backends.New(), so you will need to
// import one, e.g.:
//
//	import _ "github.com/gomlx/morphology/backends/default"
//
// All errors wrap one of the sentinel errors in package backends, and can be tested with errors.Is.
package dilation

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/backends/padding"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config holds the parameters of a dilation. Start from DefaultConfig.
type Config struct {
	// Strides for height and width, all must be >= 1.
	Strides [2]int

	// Rates for height and width: the spacing between the structuring element taps. All must be >= 1.
	Rates [2]int

	// Padding specification, the zero value is VALID (no padding).
	Padding padding.Spec

	// OutputDType of the result. If left as dtypes.InvalidDType, the input dtype is used.
	OutputDType dtypes.DType

	// Layout of the input, it must be registered with RegisterLayout. The empty value means NHWC.
	Layout backends.Layout

	// NeutralPadding makes the border never win the maximum (as if filled with the lowest value of the dtype),
	// instead of the default zero-filled border.
	NeutralPadding bool
}

// DefaultConfig returns strides and rates of 1, no padding, the input dtype and the NHWC layout.
func DefaultConfig() Config {
	return Config{
		Strides: [2]int{1, 1},
		Rates:   [2]int{1, 1},
		Padding: padding.Valid(),
		Layout:  backends.NHWC,
	}
}

// Compute the dilation of input by structuringElement with the given backend and configuration.
//
// It validates every parameter before any computation: there is no partial output.
func Compute(backend backends.Backend, input, structuringElement *tensors.Tensor, config Config) (*tensors.Tensor, error) {
	if backend == nil {
		return nil, errors.Wrap(backends.ErrInvalidArgument, "Compute: nil backend")
	}
	if !input.Ok() || !structuringElement.Ok() {
		return nil, errors.Wrap(backends.ErrInvalidArgument, "Compute: input or structuring element is nil or invalid")
	}
	strategy, err := strategyFor(config.Layout)
	if err != nil {
		return nil, err
	}
	workload, err := newWorkload(strategy, input.Shape(), structuringElement.Shape(), config)
	if err != nil {
		return nil, errors.WithMessagef(err, "Dilation2D(input=%s, structuringElement=%s)",
			input.Shape(), structuringElement.Shape())
	}
	klog.V(1).Infof("dilation: %s on backend %q", workload, backend.Name())
	output, err := strategy.Compute(backend, input, structuringElement, workload.Params(config.Layout, config.NeutralPadding))
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q failed to compute %s", backend.Name(), workload)
	}
	return output, nil
}

// Builder configures a dilation. Create it with Dilation2D, and finish it with Done, MustDone or Workload.
//
// Configuration errors are kept and returned by Done (the first one only).
type Builder struct {
	input, structuringElement *tensors.Tensor
	backend                   backends.Backend
	config                    Config
	err                       error
}

// Dilation2D prepares the dilation of input (shaped [batch, height, width, channels]) by the structuring element
// (shaped [kernel_height, kernel_width, channels]).
//
// It returns a Builder that can be further configured. The defaults are strides and rates of 1, no padding
// (VALID), output dtype the same as the input and zero-filled padding.
func Dilation2D(input, structuringElement *tensors.Tensor) *Builder {
	return &Builder{
		input:              input,
		structuringElement: structuringElement,
		config:             DefaultConfig(),
	}
}

// setErr keeps the first error.
func (b *Builder) setErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Strides sets the same stride for height and width. The default is 1.
//
// The stride is how many steps to move between output positions: a value of 2 will halve the output size.
func (b *Builder) Strides(stride int) *Builder {
	return b.StridePerAxis(stride, stride)
}

// StridePerAxis sets the strides for height and width separately. The default is 1 for both.
func (b *Builder) StridePerAxis(height, width int) *Builder {
	if height < 1 || width < 1 {
		return b.setErr(errors.Wrapf(backends.ErrInvalidArgument, "strides (%d, %d) must be >= 1", height, width))
	}
	b.config.Strides = [2]int{height, width}
	return b
}

// Rates sets the same rate for height and width. The default is 1.
//
// The rate is the spacing between the structuring element taps: the effective footprint is (kernel-1)*rate + 1.
func (b *Builder) Rates(rate int) *Builder {
	return b.RatePerAxis(rate, rate)
}

// RatePerAxis sets the rates for height and width separately. The default is 1 for both.
func (b *Builder) RatePerAxis(height, width int) *Builder {
	if height < 1 || width < 1 {
		return b.setErr(errors.Wrapf(backends.ErrInvalidArgument, "rates (%d, %d) must be >= 1", height, width))
	}
	b.config.Rates = [2]int{height, width}
	return b
}

// Padding sets the padding specification, see package padding.
func (b *Builder) Padding(spec padding.Spec) *Builder {
	b.config.Padding = spec
	return b
}

// PadSame pads so that the output spatial size is ceil(input_size / stride).
func (b *Builder) PadSame() *Builder {
	return b.Padding(padding.Same())
}

// NoPadding removes any padding (VALID). This is the default.
func (b *Builder) NoPadding() *Builder {
	return b.Padding(padding.Valid())
}

// OutputDType sets the dtype of the output. Both operands are converted to it before the addition.
// The default is the input dtype.
func (b *Builder) OutputDType(dtype dtypes.DType) *Builder {
	b.config.OutputDType = dtype
	return b
}

// OutputDTypeName sets the output dtype by name, e.g. "float32".
func (b *Builder) OutputDTypeName(name string) *Builder {
	dtype, err := backends.ParseDType(name)
	if err != nil {
		return b.setErr(err)
	}
	return b.OutputDType(dtype)
}

// Layout sets the layout of the input. The default is NHWC.
func (b *Builder) Layout(layout backends.Layout) *Builder {
	b.config.Layout = layout
	return b
}

// Backend sets the backend used to compute. The default is backends.New().
func (b *Builder) Backend(backend backends.Backend) *Builder {
	b.backend = backend
	return b
}

// NeutralPadding makes the padded border never win the maximum. By default, the border is filled with zeros,
// which wins over negative inputs.
func (b *Builder) NeutralPadding() *Builder {
	b.config.NeutralPadding = true
	return b
}

// Config returns the configuration built so far.
func (b *Builder) Config() Config {
	return b.config
}

// Done computes the dilation and returns the result.
func (b *Builder) Done() (*tensors.Tensor, error) {
	if b.err != nil {
		return nil, b.err
	}
	backend := b.backend
	if backend == nil {
		var err error
		backend, err = backends.New()
		if err != nil {
			return nil, err
		}
	}
	return Compute(backend, b.input, b.structuringElement, b.config)
}

// MustDone is like Done, but panics on error.
func (b *Builder) MustDone() *tensors.Tensor {
	output, err := b.Done()
	if err != nil {
		panic(err)
	}
	return output
}

// Workload validates the configuration and returns the resolved Workload, without computing anything.
func (b *Builder) Workload() (*Workload, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.input.Ok() || !b.structuringElement.Ok() {
		return nil, errors.Wrap(backends.ErrInvalidArgument, "Workload: input or structuring element is nil or invalid")
	}
	return NewWorkload(b.input.Shape(), b.structuringElement.Shape(), b.config)
}
