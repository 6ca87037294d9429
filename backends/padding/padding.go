// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package padding resolves a padding specification (VALID, SAME or explicit sizes) into the number of
// pixels to add on each side of an image: top, left, bottom and right.
package padding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/morphology/backends"
	"github.com/pkg/errors"
)

// Mode of a padding specification.
type Mode int

const (
	// ModeValid means no padding.
	ModeValid Mode = iota

	// ModeSame pads so the output spatial size is ceil(input_size / stride).
	ModeSame

	// ModeExplicit uses the given number of pixels on each side.
	ModeExplicit
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeValid:
		return "VALID"
	case ModeSame:
		return "SAME"
	case ModeExplicit:
		return "EXPLICIT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Spec is a padding specification. The zero value is VALID.
//
// Create it with Valid, Same, Uniform, Symmetric, Explicit or Parse.
type Spec struct {
	mode Mode

	// sizes holds top, left, bottom, right for ModeExplicit.
	sizes [4]int
}

// Valid returns the specification for no padding.
func Valid() Spec { return Spec{mode: ModeValid} }

// Same returns the specification that pads so that the output size is ceil(input_size / stride).
func Same() Spec { return Spec{mode: ModeSame} }

// Uniform pads all four sides with p pixels.
func Uniform(p int) Spec { return Explicit(p, p, p, p) }

// Symmetric pads top and bottom with ph pixels, left and right with pw pixels.
func Symmetric(ph, pw int) Spec { return Explicit(ph, pw, ph, pw) }

// Explicit pads each side with the given number of pixels.
func Explicit(top, left, bottom, right int) Spec {
	return Spec{mode: ModeExplicit, sizes: [4]int{top, left, bottom, right}}
}

// FromSizes creates an explicit specification from 1 (uniform), 2 (symmetric: height, width)
// or 4 (top, left, bottom, right) values.
func FromSizes(sizes ...int) (Spec, error) {
	switch len(sizes) {
	case 1:
		return Uniform(sizes[0]), nil
	case 2:
		return Symmetric(sizes[0], sizes[1]), nil
	case 4:
		return Explicit(sizes[0], sizes[1], sizes[2], sizes[3]), nil
	default:
		return Spec{}, errors.Wrapf(backends.ErrInvalidPaddingMode,
			"explicit padding takes 1, 2 or 4 sizes, got %d (%v)", len(sizes), sizes)
	}
}

// Parse a padding specification: "VALID" or "SAME" (case-insensitive), or comma-separated explicit
// sizes: "p", "ph,pw" or "top,left,bottom,right".
//
// Unknown modes return an error wrapping backends.ErrInvalidPaddingMode.
func Parse(spec string) (Spec, error) {
	trimmed := strings.TrimSpace(spec)
	switch strings.ToUpper(trimmed) {
	case "VALID":
		return Valid(), nil
	case "SAME":
		return Same(), nil
	}
	parts := strings.Split(trimmed, ",")
	sizes := make([]int, len(parts))
	for ii, part := range parts {
		size, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Spec{}, errors.Wrapf(backends.ErrInvalidPaddingMode,
				"padding %q is not VALID, SAME or a list of 1, 2 or 4 integers", spec)
		}
		sizes[ii] = size
	}
	return FromSizes(sizes...)
}

// Mode returns the mode of the specification.
func (s Spec) Mode() Mode { return s.mode }

// String implements fmt.Stringer. It returns a value accepted by Parse.
func (s Spec) String() string {
	if s.mode != ModeExplicit {
		return s.mode.String()
	}
	return fmt.Sprintf("%d,%d,%d,%d", s.sizes[0], s.sizes[1], s.sizes[2], s.sizes[3])
}

// Paddings is a resolved padding: the number of pixels added to each side, all non-negative.
type Paddings struct {
	Top, Left, Bottom, Right int
}

// PerAxis returns the paddings as {before, after} pairs for the height and width axes.
func (p Paddings) PerAxis() [2][2]int {
	return [2][2]int{{p.Top, p.Bottom}, {p.Left, p.Right}}
}

// String implements fmt.Stringer.
func (p Paddings) String() string {
	return fmt.Sprintf("(top=%d, left=%d, bottom=%d, right=%d)", p.Top, p.Left, p.Bottom, p.Right)
}

// IsZero returns whether there is no padding on any side.
func (p Paddings) IsZero() bool { return p == Paddings{} }

// Resolve the specification into the number of pixels for each side.
//
// The effective kernel sizes must have the dilation rate already folded in: (kernel-1)*rate + 1.
// Input sizes and strides are only used by SAME.
//
// It returns an error wrapping backends.ErrInvalidArgument for negative explicit sizes, non-positive
// strides or kernel sizes, and backends.ErrInvalidPaddingMode for an unknown mode.
func (s Spec) Resolve(inputHeight, inputWidth, effectiveKernelHeight, effectiveKernelWidth, strideHeight, strideWidth int) (Paddings, error) {
	if effectiveKernelHeight < 1 || effectiveKernelWidth < 1 {
		return Paddings{}, errors.Wrapf(backends.ErrInvalidArgument,
			"effective kernel size (%d, %d) must be positive", effectiveKernelHeight, effectiveKernelWidth)
	}
	switch s.mode {
	case ModeValid:
		return Paddings{}, nil

	case ModeExplicit:
		for _, size := range s.sizes {
			if size < 0 {
				return Paddings{}, errors.Wrapf(backends.ErrInvalidArgument,
					"explicit padding %s must be non-negative", s)
			}
		}
		return Paddings{Top: s.sizes[0], Left: s.sizes[1], Bottom: s.sizes[2], Right: s.sizes[3]}, nil

	case ModeSame:
		if strideHeight < 1 || strideWidth < 1 {
			return Paddings{}, errors.Wrapf(backends.ErrInvalidArgument,
				"strides (%d, %d) must be positive", strideHeight, strideWidth)
		}
		top, bottom := samePaddingForAxis(inputHeight, effectiveKernelHeight, strideHeight)
		left, right := samePaddingForAxis(inputWidth, effectiveKernelWidth, strideWidth)
		return Paddings{Top: top, Left: left, Bottom: bottom, Right: right}, nil

	default:
		return Paddings{}, errors.Wrapf(backends.ErrInvalidPaddingMode, "unknown padding mode %s", s.mode)
	}
}

// samePaddingForAxis returns the padding (before, after) for one axis, the smaller half goes before.
func samePaddingForAxis(inputSize, effectiveKernel, stride int) (before, after int) {
	outputSize := (inputSize + stride - 1) / stride
	total := max((outputSize-1)*stride+effectiveKernel-inputSize, 0)
	before = total / 2
	after = total - before
	return
}
