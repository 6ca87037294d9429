// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceWithValue(t *testing.T) {
	assert.Equal(t, []int8{-3, -3, -3, -3, -3}, SliceWithValue[int8](5, -3))
	assert.Empty(t, SliceWithValue(0, 1.0))

	s := make([]float32, 7)
	FillSlice(s, float32(math.Inf(-1)))
	for _, v := range s {
		assert.True(t, math.IsInf(float64(v), -1))
	}
}

func TestIota(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5, 6}, Iota(3, 4))
	assert.Equal(t, []float32{-1, 0, 1}, Iota(float32(-1), 3))
}

func TestMapAndMax(t *testing.T) {
	count := 17
	in := Iota(0, count)
	out := Map(in, func(v int) int32 { return int32(v + 1) })
	for ii := 0; ii < count; ii++ {
		assert.Equalf(t, int32(ii+1), out[ii], "element %d doesn't match", ii)
	}
	assert.Equal(t, int32(17), Max(out))
	assert.Equal(t, 0, Max([]int{}))
}

func TestInDelta(t *testing.T) {
	assert.True(t, InDelta([]float64{1, 2, 3}, []float64{1, 2.05, 3}, 0.1))
	assert.False(t, InDelta([]float64{1, 2, 3}, []float64{1, 2.5, 3}, 0.1))
	assert.False(t, InDelta([]int{1, 2}, []int{1, 2, 3}, 0))
	nan := math.NaN()
	assert.True(t, InDelta([]float64{nan, math.Inf(-1)}, []float64{nan, math.Inf(-1)}, 0))
	assert.False(t, InDelta([]float64{nan}, []float64{0}, 1))
}

type stringerFloat float64

func (f stringerFloat) String() string {
	return fmt.Sprintf("%.02f", float64(f))
}

func TestFlag(t *testing.T) {
	f1Ptr := Flag("f1", []int{2, 3}, "f1 flag test", strconv.Atoi)
	assert.Equal(t, []int{2, 3}, *f1Ptr)
	require.NoError(t, flag.Set("f1", "3, 4,5"))
	assert.Equal(t, []int{3, 4, 5}, *f1Ptr)
	f1Flag := flag.Lookup("f1")
	require.NotNil(t, f1Flag)
	assert.Equal(t, "2,3", f1Flag.DefValue)
	require.Error(t, flag.Set("f1", "1,x"))
	assert.Equal(t, []int{3, 4, 5}, *f1Ptr, "failed parsing must not change the value")

	f2Ptr := Flag("f2", []stringerFloat{2.0, 3.0}, "f2 flag test",
		func(v string) (stringerFloat, error) {
			f, err := strconv.ParseFloat(v, 64)
			return stringerFloat(f), err
		})
	require.NoError(t, flag.Set("f2", "3,4,5"))
	assert.Equal(t, []stringerFloat{3, 4, 5}, *f2Ptr)
	assert.Equal(t, "2.00,3.00", flag.Lookup("f2").DefValue)
}
