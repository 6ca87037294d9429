// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// dilate2d computes the grayscale morphological dilation of an image (or a .npy tensor) and saves the result.
//
// Usage:
//
//	dilate2d [flags] <input image or .npy> <output image or .npy>
//
// Example, a 5x5 max-filter keeping the image size:
//
//	dilate2d -se=square:5 -padding=same photo.png dilated.png
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gomlx/morphology/backends"
	_ "github.com/gomlx/morphology/backends/default"
	"github.com/gomlx/morphology/backends/padding"
	"github.com/gomlx/morphology/dilation"
	"github.com/gomlx/morphology/types/shapes"
	"github.com/gomlx/morphology/types/tensors"
	"github.com/gomlx/morphology/types/tensors/images"
	"github.com/gomlx/morphology/types/tensors/numpy"
	"github.com/gomlx/morphology/types/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagSE = flag.String("se", "square:3",
		`Structuring element: "square:N", "rect:HxW", "disk:R" (float dtypes only) or a .npy file `+
			"shaped [height, width] or [height, width, channels].")
	flagStrides = xslices.Flag("strides", []int{1}, "Strides: one value for both axes, or height,width.",
		strconv.Atoi)
	flagRates = xslices.Flag("rates", []int{1}, "Rates (spacing between the structuring element taps): "+
		"one value for both axes, or height,width.", strconv.Atoi)
	flagPadding = flag.String("padding", "valid",
		`Padding: "valid", "same" or explicit sizes "p", "ph,pw" or "top,left,bottom,right".`)
	flagDType = flag.String("dtype", "float32",
		"DType used to load images: float32 values are in [0, 1], integer values in [0, 255]. Ignored for .npy inputs.")
	flagOutputDType = flag.String("output_dtype", "", "DType of the result, by default the input dtype.")
	flagGray        = flag.Bool("gray", false, "Convert the image to a single luminance channel.")
	flagNeutral     = flag.Bool("neutral", false,
		"Padded border never wins the maximum, instead of being zero-filled.")
	flagBackend = flag.String("backend", "",
		fmt.Sprintf("Backend configuration, e.g. \"go:parallelism=4\". Defaults to $%s.", backends.ConfigEnvVar))
	flagWorkload = flag.Bool("workload", false, "Print a table describing the dilation.")
)

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] <input image or .npy> <output image or .npy>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(args[0], args[1]); err != nil {
		klog.Fatalf("dilate2d failed: %+v", err)
	}
}

func run(inputPath, outputPath string) error {
	input, err := loadInput(inputPath)
	if err != nil {
		return err
	}
	se, err := parseStructuringElement(*flagSE, input.DType(), input.Shape().Dim(-1))
	if err != nil {
		return err
	}

	builder := dilation.Dilation2D(input, se)
	strides, err := parsePair("strides", *flagStrides)
	if err != nil {
		return err
	}
	rates, err := parsePair("rates", *flagRates)
	if err != nil {
		return err
	}
	paddingSpec, err := padding.Parse(*flagPadding)
	if err != nil {
		return err
	}
	builder.StridePerAxis(strides[0], strides[1]).RatePerAxis(rates[0], rates[1]).Padding(paddingSpec)
	if *flagOutputDType != "" {
		builder.OutputDTypeName(*flagOutputDType)
	}
	if *flagNeutral {
		builder.NeutralPadding()
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}
	defer backend.Finalize()
	builder.Backend(backend)

	workload, err := builder.Workload()
	if err != nil {
		return err
	}
	start := time.Now()
	output, err := builder.Done()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	if *flagWorkload {
		fmt.Println(workloadTable(workload, backend, elapsed))
	}
	klog.V(1).Infof("dilation of %s computed in %s", input.Shape(), elapsed)
	return saveOutput(output, outputPath)
}

func newBackend() (backends.Backend, error) {
	if *flagBackend != "" {
		return backends.NewWithConfig(*flagBackend)
	}
	return backends.New()
}

func isNpy(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".npy")
}

// loadInput returns the input shaped [batch, height, width, channels].
func loadInput(inputPath string) (*tensors.Tensor, error) {
	if isNpy(inputPath) {
		input, err := numpy.FromNpyFile(inputPath)
		if err != nil {
			return nil, err
		}
		switch input.Rank() {
		case 4:
			return input, nil
		case 3:
			// Single image: add the batch axis.
			return tensors.FromFlatAny(shapes.Make(input.DType(), append([]int{1}, input.Shape().Dimensions...)...),
				input.FlatAny()), nil
		}
		return nil, errors.Wrapf(backends.ErrIncompatibleShapes,
			"input %q must be rank-3 [height, width, channels] or rank-4 NHWC, got %s", inputPath, input.Shape())
	}

	dtype, err := backends.ParseDType(*flagDType)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Open(inputPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", inputPath)
	}
	toTensor := images.ToTensor(dtype)
	if *flagGray {
		toTensor.Gray()
	}
	return toTensor.Single(img), nil
}

// saveOutput saves a .npy file, or one image per example in the batch.
func saveOutput(output *tensors.Tensor, outputPath string) error {
	if isNpy(outputPath) {
		return numpy.ToNpyFile(output, outputPath)
	}
	outputImages := images.ToImage().Batch(output)
	if len(outputImages) == 1 {
		return errors.Wrapf(imaging.Save(outputImages[0], outputPath), "failed to save image %q", outputPath)
	}
	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)
	for ii, img := range outputImages {
		imgPath := fmt.Sprintf("%s_%03d%s", base, ii, ext)
		if err := imaging.Save(img, imgPath); err != nil {
			return errors.Wrapf(err, "failed to save image %q", imgPath)
		}
		klog.V(1).Infof("saved %q", imgPath)
	}
	return nil
}
