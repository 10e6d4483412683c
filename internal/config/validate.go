package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.Images) == "" {
		return errors.New("paths.images must be set")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if _, err := spectral.QualityFromString(a.Quality); err != nil {
		return fmt.Errorf("analysis.quality: %w", err)
	}
	if a.FreqMin < 0 {
		return fmt.Errorf("analysis.freq_min must be non-negative, got %.0f", a.FreqMin)
	}
	if a.FreqMin >= a.FreqMax {
		return fmt.Errorf("analysis.freq_min (%.0f) must be below analysis.freq_max (%.0f)", a.FreqMin, a.FreqMax)
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("analysis.sample_rate must be positive, got %d", a.SampleRate)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must be non-negative, got %d", c.Batch.Workers)
	}
	if c.Batch.RequestDelaySeconds < 0 {
		return fmt.Errorf("batch.request_delay_seconds must be non-negative, got %g", c.Batch.RequestDelaySeconds)
	}
	return nil
}
