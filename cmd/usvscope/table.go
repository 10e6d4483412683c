package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mousetube/usvscope/pkg/usvscope"
)

// renderReport formats one row per recording and a totals footer.
func renderReport(report *usvscope.BatchReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Recording", "Status", "Segment (s)", "Window (s)", "Detail", "Time"})

	var rendered, skipped, failed int
	for _, it := range report.Items {
		segment, window, detail := "-", "-", ""
		switch it.Status() {
		case "failed":
			failed++
			detail = it.Err.Error()
		case "skipped":
			skipped++
			if it.Outcome != nil && it.Outcome.SkipReason != nil {
				detail = it.Outcome.SkipReason.Error()
			}
		default:
			rendered++
			out := it.Outcome
			if out.Detection.Found {
				segment = fmt.Sprintf("%.3f-%.3f", out.StartTime, out.EndTime)
			}
			window = fmt.Sprintf("%.2f-%.2f", out.WindowStart, out.WindowEnd)
			detail = it.ImagePath
		}
		if it.Bytes > 0 {
			detail += " (" + humanize.Bytes(uint64(it.Bytes)) + " downloaded)"
		}
		name := it.Name
		if name == "" {
			name = it.Source
		}
		tw.AppendRow(table.Row{name, it.Status(), segment, window, detail, it.Elapsed.Round(time.Millisecond)})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d items", len(report.Items)),
		fmt.Sprintf("%d ok, %d skipped, %d failed", rendered, skipped, failed),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
