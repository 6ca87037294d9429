// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/gomlx/morphology/types/tensors/numpy"
	"github.com/gomlx/morphology/types/xslices"
	"github.com/pkg/errors"
)

// parseStructuringElement creates the structuring element shaped [height, width, channels] described by spec:
//
//   - "square:N": flat N x N square.
//   - "rect:HxW": flat H x W rectangle.
//   - "disk:R": flat disk of radius R, in a (2R+1) x (2R+1) window. Only for float dtypes, positions
//     outside the disk are set to -Inf.
//   - "<path>.npy": values read from a numpy file, shaped [height, width] (replicated on all channels)
//     or [height, width, channels].
//
// inputDType is the dtype of the input image, the structuring element is converted to it unless the file
// holds a compatible dtype.
func parseStructuringElement(spec string, inputDType dtypes.DType, channels int) (*tensors.Tensor, error) {
	if strings.HasSuffix(strings.ToLower(spec), ".npy") {
		return loadStructuringElement(spec, inputDType, channels)
	}
	kind, arg, found := strings.Cut(spec, ":")
	if !found {
		return nil, errors.Wrapf(backends.ErrInvalidArgument,
			"structuring element %q must be \"square:N\", \"rect:HxW\", \"disk:R\" or a .npy file", spec)
	}
	switch strings.ToLower(kind) {
	case "square":
		size, err := parsePositive(arg)
		if err != nil {
			return nil, errors.WithMessagef(err, "structuring element %q", spec)
		}
		return flatRectangle(inputDType, size, size, channels), nil

	case "rect":
		heightStr, widthStr, found := strings.Cut(strings.ToLower(arg), "x")
		if !found {
			return nil, errors.Wrapf(backends.ErrInvalidArgument, "structuring element %q: rect takes HxW", spec)
		}
		height, err := parsePositive(heightStr)
		if err != nil {
			return nil, errors.WithMessagef(err, "structuring element %q", spec)
		}
		width, err := parsePositive(widthStr)
		if err != nil {
			return nil, errors.WithMessagef(err, "structuring element %q", spec)
		}
		return flatRectangle(inputDType, height, width, channels), nil

	case "disk":
		if !inputDType.IsFloat() {
			return nil, errors.Wrapf(backends.ErrInvalidArgument,
				"structuring element %q: disk requires a float dtype, got %s", spec, inputDType)
		}
		radius, err := strconv.Atoi(arg)
		if err != nil || radius < 0 {
			return nil, errors.Wrapf(backends.ErrInvalidArgument,
				"structuring element %q: radius must be a non-negative integer", spec)
		}
		return flatDisk(inputDType, radius, channels), nil
	}
	return nil, errors.Wrapf(backends.ErrInvalidArgument, "unknown structuring element kind %q in %q", kind, spec)
}

func parsePositive(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 {
		return 0, errors.Wrapf(backends.ErrInvalidArgument, "%q is not a positive integer", s)
	}
	return v, nil
}

func flatRectangle(dtype dtypes.DType, height, width, channels int) *tensors.Tensor {
	return tensors.FromFloat64s(dtype, make([]float64, height*width*channels), height, width, channels)
}

func flatDisk(dtype dtypes.DType, radius, channels int) *tensors.Tensor {
	size := 2*radius + 1
	values := xslices.SliceWithValue(size*size*channels, math.Inf(-1))
	for y := range size {
		for x := range size {
			dy, dx := y-radius, x-radius
			if dy*dy+dx*dx > radius*radius {
				continue
			}
			for c := range channels {
				values[(y*size+x)*channels+c] = 0
			}
		}
	}
	return tensors.FromFloat64s(dtype, values, size, size, channels)
}

func loadStructuringElement(filePath string, inputDType dtypes.DType, channels int) (*tensors.Tensor, error) {
	se, err := numpy.FromNpyFile(filePath)
	if err != nil {
		return nil, err
	}
	dtype := se.DType()
	if backends.CheckDTypes(inputDType, dtype, inputDType) != nil {
		dtype = inputDType
	}
	dims := se.Shape().Dimensions
	switch se.Rank() {
	case 2:
		values := tensors.ToFloat64s(se)
		replicated := make([]float64, 0, len(values)*channels)
		for _, v := range values {
			for range channels {
				replicated = append(replicated, v)
			}
		}
		return tensors.FromFloat64s(dtype, replicated, dims[0], dims[1], channels), nil
	case 3:
		if dtype == se.DType() {
			return se, nil
		}
		return tensors.FromFloat64s(dtype, tensors.ToFloat64s(se), dims...), nil
	}
	return nil, errors.Wrapf(backends.ErrIncompatibleShapes,
		"structuring element in %q must be rank-2 or rank-3, got %s", filePath, se.Shape())
}

// parsePair parses a flag with 1 or 2 values into a [height, width] pair.
func parsePair(name string, values []int) ([2]int, error) {
	switch len(values) {
	case 1:
		return [2]int{values[0], values[0]}, nil
	case 2:
		return [2]int{values[0], values[1]}, nil
	}
	return [2]int{}, errors.Wrapf(backends.ErrInvalidArgument, "-%s takes 1 or 2 values, got %v", name, values)
}
