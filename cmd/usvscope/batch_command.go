package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mousetube/usvscope/pkg/usvscope"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch --dir <dir>",
		Short: "Render every recording in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return errors.New("--dir is required")
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var extra []usvscope.Option
			if workers > 0 {
				extra = append(extra, usvscope.WithWorkers(workers))
			}
			return ctx.withService(cmd, extra, func(svc usvscope.Service) error {
				report, err := svc.ProcessDir(runCtx, dir)
				if report != nil {
					fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
				}
				if err != nil {
					return err
				}
				return reportError(report)
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of recordings")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel workers (default from config, one per CPU)")
	return cmd
}
