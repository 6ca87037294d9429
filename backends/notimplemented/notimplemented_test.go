// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package notimplemented

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	var b backends.Backend = &Backend{}
	x := tensors.FromValue([]float32{1})
	_, err := b.Pad(x, tensors.FromScalar(float32(0)))
	require.ErrorIs(t, err, backends.ErrNotImplemented)
	_, err = b.ConvertDType(x, dtypes.Float64)
	require.ErrorIs(t, err, backends.ErrNotImplemented)
	_, err = b.Dilation2D(x, x, backends.Dilation2DParams{})
	require.ErrorIs(t, err, backends.ErrNotImplemented)
	require.Equal(t, "notimplemented", b.Name())
	b.Finalize()
}
