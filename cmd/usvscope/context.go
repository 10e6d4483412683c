package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mousetube/usvscope/internal/config"
	"github.com/mousetube/usvscope/pkg/logger"
	"github.com/mousetube/usvscope/pkg/usvscope"
)

// flagValues holds persistent flags; only flags the user actually set
// override the configuration file.
type flagValues struct {
	quality      string
	filteredOnly bool
	freqMin      float64
	freqMax      float64
	out          string
	skipExisting bool
	thumbnails   bool
	logLevel     string
}

type commandContext struct {
	configPath string
	flags      flagValues

	config *config.Config
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(c.configPath))
	if err != nil {
		return nil, err
	}
	c.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c.config = cfg
	return cfg, nil
}

func (c *commandContext) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("quality") {
		cfg.Analysis.Quality = strings.ToLower(strings.TrimSpace(c.flags.quality))
	}
	if changed("filtered-only") {
		cfg.Analysis.FilteredOnly = c.flags.filteredOnly
	}
	if changed("freq-min") {
		cfg.Analysis.FreqMin = c.flags.freqMin
	}
	if changed("freq-max") {
		cfg.Analysis.FreqMax = c.flags.freqMax
	}
	if changed("out") {
		cfg.Paths.Images = c.flags.out
	}
	if changed("skip-existing") {
		cfg.Batch.SkipExisting = c.flags.skipExisting
	}
	if changed("thumbnails") {
		cfg.Analysis.Thumbnails = c.flags.thumbnails
	}
	if changed("log-level") {
		cfg.Logging.Level = c.flags.logLevel
	}
}

func (c *commandContext) newLogger(cmd *cobra.Command) *logger.Logger {
	lc := c.config.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	lc.Colorize = lc.Output == os.Stderr && isatty.IsTerminal(os.Stderr.Fd())
	return logger.New(lc)
}

// withService builds a service from the loaded configuration plus any
// command-specific options and closes it when fn returns.
func (c *commandContext) withService(cmd *cobra.Command, extra []usvscope.Option, fn func(usvscope.Service) error) error {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	sink, err := usvscope.NewDirSink(cfg.Paths.Images)
	if err != nil {
		return err
	}
	log := c.newLogger(cmd)
	defer log.Sync()

	opts = append(opts, usvscope.WithSink(sink), usvscope.WithLogger(log))
	opts = append(opts, extra...)
	svc, err := usvscope.NewService(opts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer svc.Close()
	return fn(svc)
}
