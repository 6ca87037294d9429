// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// MaxDTypes is an upper bound on the dtype enum values handled by the maps.
const MaxDTypes = 32

// DTypeMap holds one implementation of a function per dtype, typically the instances of a generic function.
//
// The functions are stored as `any` and each user casts them back to their concrete function type.
type DTypeMap struct {
	Name  string
	fnMap [MaxDTypes]any
}

// NewDTypeMap creates a new map for a class of functions.
func NewDTypeMap(name string) *DTypeMap {
	return &DTypeMap{Name: name}
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeMap) Register(dtype dtypes.DType, fn any) {
	if dtype < 0 || dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
}

// Get the function registered for dtype. It panics if there is none.
func (d *DTypeMap) Get(dtype dtypes.DType) any {
	if dtype < 0 || dtype >= MaxDTypes || d.fnMap[dtype] == nil {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	return d.fnMap[dtype]
}

// Has returns whether there is a function registered for dtype.
func (d *DTypeMap) Has(dtype dtypes.DType) bool {
	return dtype >= 0 && dtype < MaxDTypes && d.fnMap[dtype] != nil
}

// DTypePairMap holds one implementation of a function per pair of dtypes, e.g. conversion functions.
type DTypePairMap struct {
	Name  string
	fnMap [MaxDTypes][MaxDTypes]any
}

// NewDTypePairMap creates a new map for a class of functions taking a pair of dtypes.
func NewDTypePairMap(name string) *DTypePairMap {
	return &DTypePairMap{Name: name}
}

// Register a function to handle the (from, to) pair of dtypes.
func (d *DTypePairMap) Register(from, to dtypes.DType, fn any) {
	if from < 0 || from >= MaxDTypes || to < 0 || to >= MaxDTypes {
		exceptions.Panicf("dtypes (%s, %s) not supported by %s", from, to, d.Name)
	}
	d.fnMap[from][to] = fn
}

// Get the function registered for the (from, to) pair. It panics if there is none.
func (d *DTypePairMap) Get(from, to dtypes.DType) any {
	if from < 0 || from >= MaxDTypes || to < 0 || to >= MaxDTypes || d.fnMap[from][to] == nil {
		exceptions.Panicf("dtypes (%s, %s) not supported by %s", from, to, d.Name)
	}
	return d.fnMap[from][to]
}

// PODNumericConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 and BFloat16 are not included because they are specialized types, not natively supported by Go.
type PODNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}
