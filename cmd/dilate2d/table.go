// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/morphology/backends"
	"github.com/gomlx/morphology/dilation"
	"github.com/muesli/termenv"
)

var (
	keyStyle   = lipgloss.NewStyle().Bold(true).Align(lipgloss.Right).PaddingLeft(1).PaddingRight(1)
	valueStyle = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func init() {
	// Follow NO_COLOR / CLICOLOR_FORCE, and drop colors when stdout is not a terminal.
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

// workloadTable renders the resolved parameters of the dilation.
func workloadTable(w *dilation.Workload, backend backends.Backend, elapsed time.Duration) string {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return valueStyle
		})
	effectiveHeight, effectiveWidth := w.EffectiveKernel()
	table.Row("backend", backend.Description())
	table.Row("dtype", fmt.Sprintf("%s -> %s", w.DType, w.OutputDType))
	table.Row("input", fmt.Sprintf("[%d, %d, %d, %d]", w.Batch, w.InHeight, w.InWidth, w.InChannels))
	table.Row("structuring element", fmt.Sprintf("%d x %d (effective %d x %d)",
		w.KernelHeight, w.KernelWidth, effectiveHeight, effectiveWidth))
	table.Row("strides", fmt.Sprintf("%d x %d", w.StrideHeight, w.StrideWidth))
	table.Row("rates", fmt.Sprintf("%d x %d", w.RateHeight, w.RateWidth))
	table.Row("paddings", w.Paddings.String())
	table.Row("output", w.OutputShape().String())
	table.Row("# taps", humanize.Comma(int64(w.NumTaps())))
	table.Row("input memory", humanize.Bytes(uint64(w.InputMemory())))
	table.Row("output memory", humanize.Bytes(uint64(w.OutputMemory())))
	table.Row("elapsed", elapsed.String())
	return titleStyle.Render("Dilation2D") + "\n" + table.Render()
}
