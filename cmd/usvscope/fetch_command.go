package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mousetube/usvscope/pkg/usvscope"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var listPath string
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "fetch --urls <file>",
		Short: "Download and render recordings listed one URL per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listPath == "" {
				return errors.New("--urls is required")
			}
			var (
				urls []string
				err  error
			)
			if listPath == "-" {
				urls, err = readLinks(cmd.InOrStdin())
			} else {
				urls, err = readLinkFile(listPath)
			}
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("no links in %s", listPath)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var extra []usvscope.Option
			if cmd.Flags().Changed("delay") {
				extra = append(extra, usvscope.WithRequestDelay(delay))
			}
			return ctx.withService(cmd, extra, func(svc usvscope.Service) error {
				report, err := svc.ProcessURLs(runCtx, urls)
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

	cmd.Flags().StringVarP(&listPath, "urls", "u", "", "File with one link per line, or - for stdin")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "Pause between downloads")
	return cmd
}

func readLinkFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open link list: %w", err)
	}
	defer f.Close()
	return readLinks(f)
}

// readLinks returns the non-empty lines of r, ignoring # comments.
func readLinks(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read link list: %w", err)
	}
	return urls, nil
}
