// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface an engine computing morphological operations needs to implement,
// and a registry of the available implementations.
//
// A backend is selected by name, and receives an optional backend-specific configuration string.
// See New and NewWithConfig.
//
// All methods return errors wrapping one of the sentinel errors in this package (ErrIncompatibleShapes,
// ErrDTypeMismatch, etc.), so callers can test them with errors.Is.
package backends

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Backend is the API that needs to be implemented by a morphology backend.
//
// Backends never modify their inputs: outputs are always freshly allocated tensors.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "go" for the pure Go backend.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Pad returns a copy of operand with a border of fillValue (a scalar of the same dtype) around each axis.
	// There must be at most `operand.Rank()` axesConfig values. Missing PadAxis are assumed to be zeros,
	// that is, no padding for those axes.
	Pad(operand, fillValue *tensors.Tensor, axesConfig ...PadAxis) (*tensors.Tensor, error)

	// ConvertDType converts operand to the given dtype, element-wise, with Go's conversion semantics.
	ConvertDType(operand *tensors.Tensor, dtype dtypes.DType) (*tensors.Tensor, error)

	// Dilation2D computes the grayscale dilation of an NHWC input with a [kernelHeight, kernelWidth, channels]
	// structuring element:
	//
	//	output[b, i, j, c] = max_{di, dj} padded[b, i*strides[0] + di*rates[0], j*strides[1] + dj*rates[1], c] + se[di, dj, c]
	//
	// Both operands are converted to params.OutputDType before the addition.
	Dilation2D(input, structuringElement *tensors.Tensor, params Dilation2DParams) (*tensors.Tensor, error)

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// PadAxis defines the amount of padding preceding one axis (Start) and at the end of the axis (End).
// This is used as a parameter for the Pad operation.
type PadAxis struct {
	Start, End int
}

// Dilation2DParams holds the static parameters of Backend.Dilation2D.
type Dilation2DParams struct {
	// Strides (height, width) of the output positions over the padded input. Both must be >= 1.
	Strides [2]int

	// Rates (height, width) is the spacing between the structuring element taps. Both must be >= 1.
	Rates [2]int

	// Paddings per spatial axis (height, width), each as {before, after}.
	Paddings [2][2]int

	// OutputDType of the result, and the dtype both operands are converted to before the addition.
	OutputDType dtypes.DType

	// Layout of the input, only NHWC is supported. The empty value defaults to NHWC.
	Layout Layout

	// NeutralPadding fills the border with the lowest value of OutputDType (-Inf for floats), so it never
	// wins the max. By default, the border is filled with zeros.
	NeutralPadding bool
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	muRegistry             sync.Mutex
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List the names of the registered backends, sorted.
func List() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific (e.g.: for the "go" backend, "parallelism=4").
const ConfigEnvVar = "MORPHOLOGY_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment MORPHOLOGY_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
func New() (Backend, error) {
	config, found := os.LookupEnv(ConfigEnvVar)
	if found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// MustNew returns a new default Backend, or panics if it fails.
func MustNew() Backend {
	backend, err := New()
	if err != nil {
		panic(err)
	}
	return backend
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific. If there is no ":", config is taken as the backend name,
// with an empty backend configuration. An empty config selects the first registered backend.
func NewWithConfig(config string) (Backend, error) {
	muRegistry.Lock()
	backendName := firstRegistered
	backendConfig := ""
	if config != "" {
		backendName = config
		if idx := strings.Index(config, ":"); idx != -1 {
			backendName = config[:idx]
			backendConfig = config[idx+1:]
		}
	}
	constructor, found := registeredConstructors[backendName]
	numRegistered := len(registeredConstructors)
	muRegistry.Unlock()

	if numRegistered == 0 {
		return nil, errors.Errorf(`no registered backends -- maybe import the pure Go one with import _ "github.com/gomlx/morphology/backends/simplego"?`)
	}
	if !found {
		return nil, errors.Errorf("can't find backend %q for configuration %q given, registered backends: %v",
			backendName, config, List())
	}
	backend, err := constructor(backendConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating backend %q", backendName)
	}
	klog.V(1).Infof("backends: using %q (%s)", backend.Name(), backend.Description())
	return backend, nil
}
