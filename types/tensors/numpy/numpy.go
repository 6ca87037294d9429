// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package numpy reads and writes tensors in NumPy's .npy file format (version 1.0 and 2.0 headers,
// little-endian data, C or Fortran order on reading).
package numpy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const magic = "\x93NUMPY"

// FromNpyFile reads a .npy file and returns a tensors.Tensor.
func FromNpyFile(filePath string) (*tensors.Tensor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	t, err := FromNpyReader(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	klog.V(1).Infof("numpy: read %s from %q", t.Shape(), filePath)
	return t, nil
}

// FromNpyReader reads a .npy file from an io.Reader and returns a tensors.Tensor.
func FromNpyReader(r io.Reader) (*tensors.Tensor, error) {
	preamble := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, errors.Wrapf(err, "failed to read magic string and version")
	}
	if string(preamble[:len(magic)]) != magic {
		return nil, errors.Errorf("invalid .npy file format: magic string mismatch")
	}
	major := preamble[len(magic)]

	var headerLen int
	switch {
	case major == 1:
		var headerLen16 uint16
		if err := binary.Read(r, binary.LittleEndian, &headerLen16); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length (v1.0)")
		}
		headerLen = int(headerLen16)
	case major >= 2:
		var headerLen32 uint32
		if err := binary.Read(r, binary.LittleEndian, &headerLen32); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length (v2.0+)")
		}
		headerLen = int(headerLen32)
	default:
		return nil, errors.Errorf("unsupported .npy version: %d.%d", major, preamble[len(magic)+1])
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrapf(err, "failed to read header")
	}
	descr, dims, fortranOrder, err := parseHeader(string(headerBytes))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(descr, ">") {
		return nil, errors.Errorf("big-endian .npy files (%q) are not supported", descr)
	}
	dtype, err := npyToDType(descr)
	if err != nil {
		return nil, err
	}
	for _, dim := range dims {
		if dim <= 0 {
			return nil, errors.Errorf("zero-sized .npy arrays (shape %v) are not supported", dims)
		}
	}

	shape := shapes.Make(dtype, dims...)
	flatV := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), shape.Size(), shape.Size())
	if err := binary.Read(r, binary.LittleEndian, flatV.Interface()); err != nil {
		return nil, errors.Wrapf(err, "failed to read tensor data (expected %d bytes)", shape.Memory())
	}
	if fortranOrder && shape.Rank() > 1 {
		flatV = fortranToC(shape, flatV)
	}
	return tensors.FromFlatAny(shape, flatV.Interface()), nil
}

// fortranToC transposes column-major data to row-major.
func fortranToC(shape shapes.Shape, fortranV reflect.Value) reflect.Value {
	fortranStrides := make([]int, shape.Rank())
	stride := 1
	for axis, dim := range shape.Dimensions {
		fortranStrides[axis] = stride
		stride *= dim
	}
	cV := reflect.MakeSlice(fortranV.Type(), fortranV.Len(), fortranV.Len())
	for cIdx, indices := range shape.Iter() {
		fortranIdx := 0
		for axis, axisIdx := range indices {
			fortranIdx += axisIdx * fortranStrides[axis]
		}
		cV.Index(cIdx).Set(fortranV.Index(fortranIdx))
	}
	return cV
}

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// parseHeader extracts descr, shape and fortran_order from a header like
// "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2, 3), }".
func parseHeader(header string) (descr string, dims []int, fortranOrder bool, err error) {
	m := reDescr.FindStringSubmatch(header)
	if len(m) < 2 {
		err = errors.Errorf("could not find 'descr' in .npy header: %q", header)
		return
	}
	descr = m[1]

	m = reFortran.FindStringSubmatch(header)
	if len(m) < 2 {
		err = errors.Errorf("could not find 'fortran_order' in .npy header: %q", header)
		return
	}
	fortranOrder = m[1] == "True"

	m = reShape.FindStringSubmatch(header)
	if len(m) < 2 {
		err = errors.Errorf("could not find 'shape' in .npy header: %q", header)
		return
	}
	dims = []int{}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			// Trailing comma, as in "(10,)".
			continue
		}
		dim, convErr := strconv.Atoi(part)
		if convErr != nil {
			err = errors.Wrapf(convErr, "invalid shape value %q in .npy header", part)
			return
		}
		dims = append(dims, dim)
	}
	return
}

var npyDTypes = map[string]dtypes.DType{
	"i1": dtypes.Int8,
	"u1": dtypes.Uint8,
	"i2": dtypes.Int16,
	"u2": dtypes.Uint16,
	"i4": dtypes.Int32,
	"u4": dtypes.Uint32,
	"i8": dtypes.Int64,
	"u8": dtypes.Uint64,
	"f2": dtypes.Float16,
	"f4": dtypes.Float32,
	"f8": dtypes.Float64,
}

// npyToDType converts a NumPy descr (e.g. "<f4") to a DType.
func npyToDType(descr string) (dtypes.DType, error) {
	key := strings.TrimLeft(descr, "<>=|")
	if dtype, found := npyDTypes[key]; found {
		return dtype, nil
	}
	return dtypes.InvalidDType, errors.Errorf("unsupported NumPy dtype %q", descr)
}

// dtypeToNpy converts a DType to the little-endian NumPy descr.
func dtypeToNpy(dtype dtypes.DType) (string, error) {
	for key, npyDType := range npyDTypes {
		if npyDType == dtype {
			if dtype.Size() == 1 {
				return "|" + key, nil
			}
			return "<" + key, nil
		}
	}
	return "", errors.Errorf("dtype %s cannot be saved to .npy", dtype)
}

// ToNpyWriter serializes a tensors.Tensor to an io.Writer in .npy format (version 1.0).
func ToNpyWriter(tensor *tensors.Tensor, w io.Writer) error {
	shape := tensor.Shape()
	descr, err := dtypeToNpy(shape.DType)
	if err != nil {
		return err
	}
	var shapeTuple string
	switch shape.Rank() {
	case 0:
		shapeTuple = "()"
	case 1:
		shapeTuple = fmt.Sprintf("(%d,)", shape.Dimensions[0])
	default:
		dimsStr := make([]string, shape.Rank())
		for ii, dim := range shape.Dimensions {
			dimsStr[ii] = strconv.Itoa(dim)
		}
		shapeTuple = fmt.Sprintf("(%s)", strings.Join(dimsStr, ", "))
	}

	// The preamble (10 bytes) plus the header, terminated by '\n', is padded with spaces to a multiple of 64.
	var headerBuf bytes.Buffer
	headerBuf.WriteString(fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple))
	for (len(magic)+4+headerBuf.Len()+1)%64 != 0 {
		headerBuf.WriteByte(' ')
	}
	headerBuf.WriteByte('\n')

	var preamble bytes.Buffer
	preamble.WriteString(magic)
	preamble.Write([]byte{1, 0})
	_ = binary.Write(&preamble, binary.LittleEndian, uint16(headerBuf.Len()))
	if _, err := w.Write(preamble.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy preamble")
	}
	if _, err := w.Write(headerBuf.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy header")
	}
	if err := binary.Write(w, binary.LittleEndian, tensor.FlatAny()); err != nil {
		return errors.Wrapf(err, "failed to write tensor data")
	}
	return nil
}

// ToNpyFile serializes a tensors.Tensor to a .npy file.
func ToNpyFile(tensor *tensors.Tensor, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npy file %q", filePath)
	}
	if err = ToNpyWriter(tensor, file); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close .npy file %q", filePath)
	}
	klog.V(1).Infof("numpy: wrote %s to %q", tensor.Shape(), filePath)
	return nil
}
