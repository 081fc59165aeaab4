package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"darkroom/internal/workflow"
)

const summaryDurationUnit = 10 * time.Millisecond

var (
	okStatus   = color.New(color.FgGreen)
	failStatus = color.New(color.FgRed)
	warnStatus = color.New(color.FgYellow)
)

func printSummary(out io.Writer, summary *workflow.Summary) {
	if len(summary.Galleries) == 0 {
		fmt.Fprintln(out, "No galleries found.")
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Gallery", "Processed", "Skipped", "Failed", "Status"})

	for _, g := range summary.Galleries {
		tw.AppendRow(table.Row{
			g.Gallery,
			strconv.Itoa(g.Processed),
			strconv.Itoa(g.Skipped),
			strconv.Itoa(g.Failed),
			galleryStatus(g),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	fmt.Fprintln(out, tw.Render())

	processed, skipped, failed := summary.Totals()
	line := fmt.Sprintf("%d processed, %d skipped, %d failed in %s",
		processed, skipped, failed, summary.Duration.Round(summaryDurationUnit))
	if galleryFailures := summary.GalleriesFailed(); galleryFailures > 0 {
		line += fmt.Sprintf(", %d galleries failed", galleryFailures)
		fmt.Fprintln(out, failStatus.Sprint(line))
		return
	}
	if failed > 0 {
		fmt.Fprintln(out, warnStatus.Sprint(line))
		return
	}
	fmt.Fprintln(out, okStatus.Sprint(line))
}

func galleryStatus(g workflow.GalleryStats) string {
	switch {
	case g.Err != nil:
		return failStatus.Sprintf("failed: %v", g.Err)
	case g.Failed > 0:
		return warnStatus.Sprint("partial")
	default:
		return okStatus.Sprint("ok")
	}
}
