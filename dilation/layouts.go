// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dilation

import (
	"slices"
	"sync"

	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
)

// ImageDims are the dimensions of an image tensor, independent of the order of its axes.
type ImageDims struct {
	Batch, Height, Width, Channels int
}

// Strategy implements the dilation for one layout of the input tensor.
type Strategy interface {
	// ImageDims returns the dimensions of an input image, or an error wrapping backends.ErrIncompatibleShapes.
	ImageDims(input shapes.Shape) (ImageDims, error)

	// Compute the dilation with the fully resolved parameters.
	Compute(backend backends.Backend, input, structuringElement *tensors.Tensor,
		params backends.Dilation2DParams) (*tensors.Tensor, error)
}

var (
	muLayouts  sync.Mutex
	strategies = make(map[backends.Layout]Strategy)
)

// RegisterLayout registers the strategy for the given layout, replacing any previous one.
// The layout tag is case-insensitive.
func RegisterLayout(layout backends.Layout, strategy Strategy) {
	muLayouts.Lock()
	defer muLayouts.Unlock()
	strategies[layout.Normalize()] = strategy
}

// Layouts returns the registered layouts, sorted.
func Layouts() []backends.Layout {
	muLayouts.Lock()
	defer muLayouts.Unlock()
	layouts := make([]backends.Layout, 0, len(strategies))
	for layout := range strategies {
		layouts = append(layouts, layout)
	}
	slices.Sort(layouts)
	return layouts
}

// strategyFor returns the strategy registered for layout, or an error wrapping backends.ErrUnsupportedLayout.
func strategyFor(layout backends.Layout) (Strategy, error) {
	muLayouts.Lock()
	defer muLayouts.Unlock()
	strategy, found := strategies[layout.Normalize()]
	if !found {
		registered := make([]backends.Layout, 0, len(strategies))
		for l := range strategies {
			registered = append(registered, l)
		}
		slices.Sort(registered)
		return nil, errors.Wrapf(backends.ErrUnsupportedLayout, "layout %q, registered layouts are %v", layout, registered)
	}
	return strategy, nil
}

func init() {
	RegisterLayout(backends.NHWC, nhwcStrategy{})
}

// nhwcStrategy handles [batch, height, width, channels] inputs, directly supported by the backends.
type nhwcStrategy struct{}

func (nhwcStrategy) ImageDims(input shapes.Shape) (ImageDims, error) {
	if input.Rank() != 4 {
		return ImageDims{}, errors.Wrapf(backends.ErrIncompatibleShapes,
			"NHWC input must be rank-4 [batch, height, width, channels], got %s", input)
	}
	return ImageDims{Batch: input.Dim(0), Height: input.Dim(1), Width: input.Dim(2), Channels: input.Dim(3)}, nil
}

func (nhwcStrategy) Compute(backend backends.Backend, input, structuringElement *tensors.Tensor,
	params backends.Dilation2DParams) (*tensors.Tensor, error) {
	params.Layout = backends.NHWC
	return backend.Dilation2D(input, structuringElement, params)
}
