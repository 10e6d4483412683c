package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mousetube/usvscope/pkg/usvscope"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Render spectrograms for individual recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withService(cmd, nil, func(svc usvscope.Service) error {
				report := &usvscope.BatchReport{}
				for _, path := range args {
					rep, _ := svc.ProcessFile(runCtx, path)
					report.Items = append(report.Items, rep)
					if errors.Is(rep.Err, context.Canceled) {
						break
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
				return reportError(report)
			})
		},
	}
}

// reportError turns per-item failures into a single command error so the
// process exits non-zero. Skipped items are not failures.
func reportError(report *usvscope.BatchReport) error {
	failed := 0
	var first error
	for _, it := range report.Items {
		if it.Err != nil {
			failed++
			if first == nil {
				first = it.Err
			}
		}
	}
	switch failed {
	case 0:
		return nil
	case 1:
		return first
	default:
		return fmt.Errorf("%d recordings failed; first error: %w", failed, first)
	}
}
