// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// ConvertDType ====================================================================================================

// ConvertDType implements backends.Backend. Values are converted with Go's conversion rules, and half precision
// values are converted through float32.
func (b *Backend) ConvertDType(operand *tensors.Tensor, dtype dtypes.DType) (*tensors.Tensor, error) {
	if err := b.checkOk("ConvertDType"); err != nil {
		return nil, err
	}
	if !operand.Ok() {
		return nil, errors.Wrap(backends.ErrInvalidArgument, "ConvertDType: operand is nil or invalid")
	}
	for _, dt := range []dtypes.DType{operand.DType(), dtype} {
		if !backends.IsSupportedDType(dt) {
			return nil, errors.Wrapf(backends.ErrDTypeMismatch, "ConvertDType(%s -> %s): dtype %s not supported",
				operand.DType(), dtype, dt)
		}
	}
	return b.convertDType(operand, dtype), nil
}

// convertDType always returns a new tensor, even if the dtype is the same.
func (b *Backend) convertDType(operand *tensors.Tensor, dtype dtypes.DType) *tensors.Tensor {
	shape := operand.Shape().WithDType(dtype)
	output := newFlat(dtype, shape.Size())
	convertFn := convertDTypePairMap.Get(operand.DType(), dtype).(convertFnType)
	convertFn(operand.FlatAny(), output)
	return tensors.FromFlatAny(shape, output)
}

// convertIfNeeded returns operand itself if it already has the requested dtype.
func (b *Backend) convertIfNeeded(operand *tensors.Tensor, dtype dtypes.DType) *tensors.Tensor {
	if operand.DType() == dtype {
		return operand
	}
	return b.convertDType(operand, dtype)
}

type convertFnType = func(operand, output any)

var convertDTypePairMap = NewDTypePairMap("ConvertDType")

func init() {
	registerConvertPOD[int8]()
	registerConvertPOD[int16]()
	registerConvertPOD[int32]()
	registerConvertPOD[int64]()
	registerConvertPOD[uint8]()
	registerConvertPOD[uint16]()
	registerConvertPOD[uint32]()
	registerConvertPOD[uint64]()
	registerConvertPOD[float32]()
	registerConvertPOD[float64]()

	// Manually register the half precision pairs.
	convertDTypePairMap.Register(dtypes.Float16, dtypes.Float16, execCopyFlat[float16.Float16])
	convertDTypePairMap.Register(dtypes.BFloat16, dtypes.BFloat16, execCopyFlat[bfloat16.BFloat16])
	convertDTypePairMap.Register(dtypes.Float16, dtypes.BFloat16, execConvertDTypeFloat16ToBFloat16)
	convertDTypePairMap.Register(dtypes.BFloat16, dtypes.Float16, execConvertDTypeBFloat16ToFloat16)
}

// registerConvertPOD registers the conversions from T to every other dtype, and from the half precision
// dtypes to T.
func registerConvertPOD[T PODNumericConstraints]() {
	dtype := dtypes.FromGenericsType[T]()
	convertDTypePairMap.Register(dtype, dtypes.Int8, execConvertDTypeGeneric[T, int8])
	convertDTypePairMap.Register(dtype, dtypes.Int16, execConvertDTypeGeneric[T, int16])
	convertDTypePairMap.Register(dtype, dtypes.Int32, execConvertDTypeGeneric[T, int32])
	convertDTypePairMap.Register(dtype, dtypes.Int64, execConvertDTypeGeneric[T, int64])
	convertDTypePairMap.Register(dtype, dtypes.Uint8, execConvertDTypeGeneric[T, uint8])
	convertDTypePairMap.Register(dtype, dtypes.Uint16, execConvertDTypeGeneric[T, uint16])
	convertDTypePairMap.Register(dtype, dtypes.Uint32, execConvertDTypeGeneric[T, uint32])
	convertDTypePairMap.Register(dtype, dtypes.Uint64, execConvertDTypeGeneric[T, uint64])
	convertDTypePairMap.Register(dtype, dtypes.Float32, execConvertDTypeGeneric[T, float32])
	convertDTypePairMap.Register(dtype, dtypes.Float64, execConvertDTypeGeneric[T, float64])
	convertDTypePairMap.Register(dtype, dtypes.Float16, execConvertDTypeToFloat16[T])
	convertDTypePairMap.Register(dtype, dtypes.BFloat16, execConvertDTypeToBFloat16[T])
	convertDTypePairMap.Register(dtypes.Float16, dtype, execConvertDTypeFromFloat16[T])
	convertDTypePairMap.Register(dtypes.BFloat16, dtype, execConvertDTypeFromBFloat16[T])
}

func execConvertDTypeGeneric[FromT PODNumericConstraints, ToT PODNumericConstraints](operand, output any) {
	operandFlat := operand.([]FromT)
	outputFlat := output.([]ToT)
	for idx, value := range operandFlat {
		outputFlat[idx] = ToT(value)
	}
}

func execCopyFlat[T any](operand, output any) {
	copy(output.([]T), operand.([]T))
}

func execConvertDTypeFromBFloat16[ToT PODNumericConstraints](operand, output any) {
	operandFlat := operand.([]bfloat16.BFloat16)
	outputFlat := output.([]ToT)
	for idx, value := range operandFlat {
		outputFlat[idx] = ToT(value.Float32())
	}
}

func execConvertDTypeToBFloat16[FromT PODNumericConstraints](operand, output any) {
	operandFlat := operand.([]FromT)
	outputFlat := output.([]bfloat16.BFloat16)
	for idx, value := range operandFlat {
		outputFlat[idx] = bfloat16.FromFloat32(float32(value))
	}
}

func execConvertDTypeFromFloat16[ToT PODNumericConstraints](operand, output any) {
	operandFlat := operand.([]float16.Float16)
	outputFlat := output.([]ToT)
	for idx, value := range operandFlat {
		outputFlat[idx] = ToT(value.Float32())
	}
}

func execConvertDTypeToFloat16[FromT PODNumericConstraints](operand, output any) {
	operandFlat := operand.([]FromT)
	outputFlat := output.([]float16.Float16)
	for idx, value := range operandFlat {
		outputFlat[idx] = float16.Fromfloat32(float32(value))
	}
}

func execConvertDTypeFloat16ToBFloat16(operand, output any) {
	operandFlat := operand.([]float16.Float16)
	outputFlat := output.([]bfloat16.BFloat16)
	for idx, value := range operandFlat {
		outputFlat[idx] = bfloat16.FromFloat32(value.Float32())
	}
}

func execConvertDTypeBFloat16ToFloat16(operand, output any) {
	operandFlat := operand.([]bfloat16.BFloat16)
	outputFlat := output.([]float16.Float16)
	for idx, value := range operandFlat {
		outputFlat[idx] = float16.Fromfloat32(value.Float32())
	}
}
