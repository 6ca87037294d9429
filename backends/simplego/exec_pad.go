// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/backends/shapeinference"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Pad ====================================================================================================

// Pad implements backends.Backend.
func (b *Backend) Pad(operand, fillValue *tensors.Tensor, axesConfig ...backends.PadAxis) (output *tensors.Tensor, err error) {
	if err = b.checkOk("Pad"); err != nil {
		return
	}
	if !operand.Ok() || !fillValue.Ok() {
		return nil, errors.Wrap(backends.ErrInvalidArgument, "Pad: operand or fill value is nil or invalid")
	}
	if !fillValue.IsScalar() {
		return nil, errors.Wrapf(backends.ErrInvalidArgument, "Pad: fill value must be a scalar, got %s", fillValue.Shape())
	}
	if fillValue.DType() != operand.DType() {
		return nil, errors.Wrapf(backends.ErrDTypeMismatch, "Pad: fill value dtype %s doesn't match operand dtype %s",
			fillValue.DType(), operand.DType())
	}
	if !padDTypeMap.Has(operand.DType()) {
		return nil, errors.Wrapf(backends.ErrDTypeMismatch, "Pad: dtype %s not supported", operand.DType())
	}
	outputShape, err := shapeinference.PadOp(operand.Shape(), axesConfig...)
	if err != nil {
		return nil, err
	}
	if exc := exceptions.TryCatch[error](func() { output = b.pad(operand, fillValue, outputShape, axesConfig) }); exc != nil {
		return nil, errors.WithMessage(exc, "Pad")
	}
	return output, nil
}

// pad assumes the arguments have been validated.
func (b *Backend) pad(operand, fillValue *tensors.Tensor, outputShape shapes.Shape, axesConfig []backends.PadAxis) *tensors.Tensor {
	starts := make([]int, operand.Rank())
	for axis, config := range axesConfig {
		starts[axis] = config.Start
	}
	output := newFlat(outputShape.DType, outputShape.Size())
	padFn := padDTypeMap.Get(operand.DType()).(padFnType)
	padFn(operand.Shape(), operand.FlatAny(), fillValue.FlatAny(), outputShape, output, starts)
	return tensors.FromFlatAny(outputShape, output)
}

type padFnType = func(operandShape shapes.Shape, operand, fill any, outputShape shapes.Shape, output any, starts []int)

var padDTypeMap = NewDTypeMap("Pad")

func init() {
	padDTypeMap.Register(dtypes.Int8, execPadGeneric[int8])
	padDTypeMap.Register(dtypes.Int16, execPadGeneric[int16])
	padDTypeMap.Register(dtypes.Int32, execPadGeneric[int32])
	padDTypeMap.Register(dtypes.Int64, execPadGeneric[int64])
	padDTypeMap.Register(dtypes.Uint8, execPadGeneric[uint8])
	padDTypeMap.Register(dtypes.Uint16, execPadGeneric[uint16])
	padDTypeMap.Register(dtypes.Uint32, execPadGeneric[uint32])
	padDTypeMap.Register(dtypes.Uint64, execPadGeneric[uint64])
	padDTypeMap.Register(dtypes.Float32, execPadGeneric[float32])
	padDTypeMap.Register(dtypes.Float64, execPadGeneric[float64])
	padDTypeMap.Register(dtypes.Float16, execPadGeneric[float16.Float16])
	padDTypeMap.Register(dtypes.BFloat16, execPadGeneric[bfloat16.BFloat16])
}

// execPadGeneric fills the output with the fill value, and then copies the operand, one row of its last axis at a
// time, shifted by starts.
func execPadGeneric[T any](operandShape shapes.Shape, operandAny, fillAny any, outputShape shapes.Shape, outputAny any, starts []int) {
	operand, output := operandAny.([]T), outputAny.([]T)
	fill := fillAny.([]T)[0]
	for ii := range output {
		output[ii] = fill
	}
	rank := operandShape.Rank()
	if rank == 0 {
		output[0] = operand[0]
		return
	}

	// Iterate over the rows of the last axis of the operand.
	rowLen := operandShape.Dimensions[rank-1]
	outputStrides := outputShape.Strides()
	rowsShape := shapes.Make(operandShape.DType, operandShape.Dimensions[:rank-1]...)
	for rowIdx, indices := range rowsShape.Iter() {
		outputPos := starts[rank-1]
		for axis, idx := range indices {
			outputPos += (idx + starts[axis]) * outputStrides[axis]
		}
		operandPos := rowIdx * rowLen
		copy(output[outputPos:outputPos+rowLen], operand[operandPos:operandPos+rowLen])
	}
}
