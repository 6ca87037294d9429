// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements a simple, and not very fast, but very portable backend in pure Go.
//
// It registers itself as "go" in the backends registry. Its configuration is a comma-separated list of
// "key=value" options:
//
//   - parallelism=N: maximum number of output rows computed in parallel. 0 disables parallelism,
//     -1 makes it unlimited. It defaults to runtime.NumCPU().
//
// Example: MORPHOLOGY_BACKEND="go:parallelism=4".
package simplego

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/internal/workerspool"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in MORPHOLOGY_BACKEND to specify this backend.
const BackendName = "go"

// Registers New() as the constructor for the "go" backend.
func init() {
	backends.Register(BackendName, New)
}

// New constructs a new SimpleGo Backend with the given configuration. See package documentation for
// the configuration options.
func New(config string) (backends.Backend, error) {
	return newBackend(config)
}

func newBackend(config string) (*Backend, error) {
	b := &Backend{workers: workerspool.New()}
	for _, option := range strings.Split(config, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		key, value, _ := strings.Cut(option, "=")
		switch key {
		case "parallelism":
			parallelism, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.Wrapf(backends.ErrInvalidArgument,
					"backend %q: parallelism=%q is not an integer", BackendName, value)
			}
			b.workers.SetMaxParallelism(parallelism)
		default:
			return nil, errors.Wrapf(backends.ErrInvalidArgument,
				"backend %q: unknown configuration option %q in %q", BackendName, option, config)
		}
	}
	klog.V(2).Infof("simplego: backend created with parallelism=%d", b.workers.MaxParallelism())
	return b, nil
}

// Backend implements the backends.Backend interface.
type Backend struct {
	// workers split the output rows of Dilation2D.
	workers *workerspool.Pool

	isFinalized atomic.Bool
}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return BackendName
}

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return fmt.Sprintf("Simple Go Portable Backend (parallelism=%d)", b.workers.MaxParallelism())
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.isFinalized.Store(true)
}

// checkOk returns an error if the backend has been finalized.
func (b *Backend) checkOk(opName string) error {
	if b == nil || b.isFinalized.Load() {
		return errors.Errorf("%s: backend %q is nil or has already been finalized", opName, BackendName)
	}
	return nil
}
