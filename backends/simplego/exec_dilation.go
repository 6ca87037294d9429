// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/backends/padding"
	"github.com/gomlx/morphology/backends/shapeinference"
	"github.com/gomlx/morphology/internal/workerspool"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Dilation2D ====================================================================================================

// Dilation2D implements backends.Backend.
//
// Both operands are converted to the output dtype, the input is padded (with zeros, or with the lowest value
// of the dtype if params.NeutralPadding is set), and the output rows are computed in parallel.
// Float16 and BFloat16 are computed in float32 and rounded once at the end.
func (b *Backend) Dilation2D(input, structuringElement *tensors.Tensor, params backends.Dilation2DParams) (
	output *tensors.Tensor, err error) {
	if err = b.checkOk("Dilation2D"); err != nil {
		return
	}
	if !input.Ok() || !structuringElement.Ok() {
		return nil, errors.Wrap(backends.ErrInvalidArgument, "Dilation2D: input or structuring element is nil or invalid")
	}
	if err = backends.CheckLayout(params.Layout); err != nil {
		return nil, errors.WithMessage(err, "Dilation2D")
	}
	if params.OutputDType == dtypes.InvalidDType {
		params.OutputDType = input.DType()
	}
	pads := padding.Paddings{
		Top: params.Paddings[0][0], Bottom: params.Paddings[0][1],
		Left: params.Paddings[1][0], Right: params.Paddings[1][1],
	}
	outputShape, err := shapeinference.Dilation2DOp(input.Shape(), structuringElement.Shape(),
		params.Strides, params.Rates, pads, params.OutputDType)
	if err != nil {
		return nil, err
	}
	exc := exceptions.TryCatch[error](func() {
		output, err = b.dilation2D(input, structuringElement, params, pads)
	})
	if exc != nil {
		return nil, errors.WithMessage(exc, "Dilation2D")
	}
	if err != nil {
		return nil, err
	}
	if !output.Shape().Equal(outputShape) {
		exceptions.Panicf("Dilation2D: computed output shape %s, but expected %s", output.Shape(), outputShape)
	}
	return output, nil
}

// dilationGeometry holds the dimensions a dilation kernel needs, all in number of elements.
type dilationGeometry struct {
	batchSize, paddedHeight, paddedWidth, channels int
	kernelHeight, kernelWidth                      int
	outputHeight, outputWidth                      int
	strides, rates                                 [2]int

	// skipBorder makes the kernel ignore taps outside the interior rows and columns of the padded input.
	// Windows entirely in the border take the border value.
	skipBorder                 bool
	interiorRows, interiorCols [2]int
	border                     any
}

type dilationFnType = func(workers *workerspool.Pool, padded, structuringElement, output any, g dilationGeometry)

var dilationDTypeMap = NewDTypeMap("Dilation2D")

func init() {
	dilationDTypeMap.Register(dtypes.Int8, execDilation2DGeneric[int8])
	dilationDTypeMap.Register(dtypes.Int16, execDilation2DGeneric[int16])
	dilationDTypeMap.Register(dtypes.Int32, execDilation2DGeneric[int32])
	dilationDTypeMap.Register(dtypes.Int64, execDilation2DGeneric[int64])
	dilationDTypeMap.Register(dtypes.Uint8, execDilation2DGeneric[uint8])
	dilationDTypeMap.Register(dtypes.Uint16, execDilation2DGeneric[uint16])
	dilationDTypeMap.Register(dtypes.Uint32, execDilation2DGeneric[uint32])
	dilationDTypeMap.Register(dtypes.Uint64, execDilation2DGeneric[uint64])
	dilationDTypeMap.Register(dtypes.Float32, execDilation2DGeneric[float32])
	dilationDTypeMap.Register(dtypes.Float64, execDilation2DGeneric[float64])
}

// computeDType returns the dtype used to compute the dilation for the given output dtype.
func computeDType(outputDType dtypes.DType) dtypes.DType {
	if outputDType == dtypes.Float16 || outputDType == dtypes.BFloat16 {
		return dtypes.Float32
	}
	return outputDType
}

// dilation2D assumes the shapes and dtypes have been validated.
func (b *Backend) dilation2D(input, structuringElement *tensors.Tensor, params backends.Dilation2DParams,
	pads padding.Paddings) (*tensors.Tensor, error) {
	outputDType := params.OutputDType
	workDType := computeDType(outputDType)

	// Both operands are first converted to the output dtype: for half precision this rounds them before
	// they are widened to float32.
	input = b.convertIfNeeded(b.convertIfNeeded(input, outputDType), workDType)
	structuringElement = b.convertIfNeeded(b.convertIfNeeded(structuringElement, outputDType), workDType)

	border := borderValue(workDType, params.NeutralPadding)
	padded := input
	if !pads.IsZero() {
		var err error
		padded, err = b.Pad(input, border,
			backends.PadAxis{}, backends.PadAxis{Start: pads.Top, End: pads.Bottom},
			backends.PadAxis{Start: pads.Left, End: pads.Right})
		if err != nil {
			return nil, err
		}
	}

	seDims := structuringElement.Shape().Dimensions
	g := dilationGeometry{
		batchSize:    padded.Shape().Dim(0),
		paddedHeight: padded.Shape().Dim(1),
		paddedWidth:  padded.Shape().Dim(2),
		channels:     padded.Shape().Dim(3),
		kernelHeight: seDims[0],
		kernelWidth:  seDims[1],
		strides:      params.Strides,
		rates:        params.Rates,
		skipBorder:   params.NeutralPadding && !pads.IsZero(),
		interiorRows: [2]int{pads.Top, pads.Top + input.Shape().Dim(1)},
		interiorCols: [2]int{pads.Left, pads.Left + input.Shape().Dim(2)},
		border:       border.FlatAny(),
	}
	g.outputHeight = (g.paddedHeight-shapeinference.EffectiveKernelSize(g.kernelHeight, g.rates[0]))/g.strides[0] + 1
	g.outputWidth = (g.paddedWidth-shapeinference.EffectiveKernelSize(g.kernelWidth, g.rates[1]))/g.strides[1] + 1
	klog.V(2).Infof("simplego.Dilation2D: padded=%s, structuringElement=%s, paddings=%s, output=[%d %d %d %d] (%s)",
		padded.Shape(), structuringElement.Shape(), pads, g.batchSize, g.outputHeight, g.outputWidth, g.channels, workDType)

	outputFlat := newFlat(workDType, g.batchSize*g.outputHeight*g.outputWidth*g.channels)
	dilationFn := dilationDTypeMap.Get(workDType).(dilationFnType)
	dilationFn(b.workers, padded.FlatAny(), structuringElement.FlatAny(), outputFlat, g)
	output := tensors.FromFlatAny(
		shapes.Make(workDType, g.batchSize, g.outputHeight, g.outputWidth, g.channels), outputFlat)
	return b.convertIfNeeded(output, outputDType), nil
}

// execDilation2DGeneric computes the output rows (batch, i) in parallel. For each output position and channel it
// takes the maximum of padded + structuringElement over the dilated footprint, starting from the first sample.
//
// With g.skipBorder, taps in the border are ignored: for integer dtypes the lowest value plus a negative
// structuring element value wraps around.
func execDilation2DGeneric[T PODNumericConstraints](workers *workerspool.Pool, paddedAny, structuringElementAny, outputAny any, g dilationGeometry) {
	padded := paddedAny.([]T)
	structuringElement := structuringElementAny.([]T)
	output := outputAny.([]T)
	border := g.border.([]T)[0]

	paddedRowStride := g.paddedWidth * g.channels
	paddedImageStride := g.paddedHeight * paddedRowStride
	kernelRowStride := g.kernelWidth * g.channels
	outputRowSize := g.outputWidth * g.channels
	tapRowStep := g.rates[0] * paddedRowStride
	tapColStep := g.rates[1] * g.channels

	workers.ParallelFor(g.batchSize*g.outputHeight, func(row int) {
		batchIdx, outputRowIdx := row/g.outputHeight, row%g.outputHeight
		outputRow := output[row*outputRowSize : (row+1)*outputRowSize]
		windowRow := outputRowIdx * g.strides[0]
		rowStart := batchIdx*paddedImageStride + windowRow*paddedRowStride
		for outputColIdx := range g.outputWidth {
			windowCol := outputColIdx * g.strides[1]
			windowStart := rowStart + windowCol*g.channels
			outputPixel := outputRow[outputColIdx*g.channels : (outputColIdx+1)*g.channels]
			for channel := range g.channels {
				var acc T
				found := false
				for di := range g.kernelHeight {
					if g.skipBorder {
						y := windowRow + di*g.rates[0]
						if y < g.interiorRows[0] || y >= g.interiorRows[1] {
							continue
						}
					}
					paddedPos := windowStart + di*tapRowStep + channel
					kernelPos := di*kernelRowStride + channel
					for dj := range g.kernelWidth {
						if g.skipBorder {
							x := windowCol + dj*g.rates[1]
							if x < g.interiorCols[0] || x >= g.interiorCols[1] {
								paddedPos += tapColStep
								kernelPos += g.channels
								continue
							}
						}
						if value := padded[paddedPos] + structuringElement[kernelPos]; !found || value > acc {
							acc = value
							found = true
						}
						paddedPos += tapColStep
						kernelPos += g.channels
					}
				}
				if !found {
					acc = border
				}
				outputPixel[channel] = acc
			}
		}
	})
}
