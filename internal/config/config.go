package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/mousetube/usvscope/pkg/logger"
	"github.com/mousetube/usvscope/pkg/usvscope"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
	"github.com/mousetube/usvscope/pkg/utils"
)

// ProjectFile is looked up in the working directory before the user config.
const ProjectFile = "usvscope.toml"

type Analysis struct {
	Quality      string  `toml:"quality"`
	FreqMin      float64 `toml:"freq_min"`
	FreqMax      float64 `toml:"freq_max"`
	FilteredOnly bool    `toml:"filtered_only"`
	SampleRate   int     `toml:"sample_rate"`
	Thumbnails   bool    `toml:"thumbnails"`
}

type Paths struct {
	Images string `toml:"images"`
	Temp   string `toml:"temp"`
}

type Batch struct {
	Workers             int     `toml:"workers"` // 0 means one per CPU
	RequestDelaySeconds float64 `toml:"request_delay_seconds"`
	SkipExisting        bool    `toml:"skip_existing"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// Config is the on-disk configuration of the usvscope CLI.
type Config struct {
	Analysis Analysis `toml:"analysis"`
	Paths    Paths    `toml:"paths"`
	Batch    Batch    `toml:"batch"`
	Logging  Logging  `toml:"logging"`
}

func Default() Config {
	return Config{
		Analysis: Analysis{
			Quality:    spectral.QualityMedium.String(),
			FreqMin:    spectral.DefaultFreqMin,
			FreqMax:    spectral.DefaultFreqMax,
			SampleRate: 300000,
		},
		Paths: Paths{
			Images: usvscope.DefaultImageDir,
			Temp:   os.TempDir(),
		},
		Batch: Batch{
			RequestDelaySeconds: 1,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultConfigPath is the per-user configuration file.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	return filepath.Join(dir, "usvscope", "config.toml"), nil
}

// Load reads the configuration at path, or the first of ./usvscope.toml and
// DefaultConfigPath when path is empty. Missing files yield the defaults.
// Environment overrides are applied after the file. It returns the resolved
// path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		_, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return path, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return path, true, nil
	}

	if info, err := os.Stat(ProjectFile); err == nil && !info.IsDir() {
		return ProjectFile, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// applyEnv lets USVSCOPE_* variables override file values.
func (c *Config) applyEnv() error {
	c.Analysis.Quality = getEnvOrDefault("USVSCOPE_QUALITY", c.Analysis.Quality)
	c.Paths.Images = getEnvOrDefault("USVSCOPE_IMAGE_DIR", c.Paths.Images)
	c.Paths.Temp = getEnvOrDefault("USVSCOPE_TEMP_DIR", c.Paths.Temp)
	c.Logging.Level = getEnvOrDefault("USVSCOPE_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("USVSCOPE_LOG_FORMAT", c.Logging.Format)

	if v := os.Getenv("USVSCOPE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("USVSCOPE_WORKERS: %w", err)
		}
		c.Batch.Workers = n
	}
	if v := os.Getenv("USVSCOPE_FILTERED_ONLY"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USVSCOPE_FILTERED_ONLY: %w", err)
		}
		c.Analysis.FilteredOnly = on
	}
	return nil
}

func (c *Config) normalize() {
	c.Analysis.Quality = strings.ToLower(strings.TrimSpace(c.Analysis.Quality))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if strings.TrimSpace(c.Paths.Temp) == "" {
		c.Paths.Temp = os.TempDir()
	}
}

// RequestDelay is the pause between two remote downloads.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Batch.RequestDelaySeconds * float64(time.Second))
}

// LoggerConfig translates the [logging] section.
func (c *Config) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(c.Logging.Level)
	lc.JSON = c.Logging.Format == "json"
	return lc
}

// Options turns the configuration into service options. The caller supplies
// the sink and logger.
func (c *Config) Options() ([]usvscope.Option, error) {
	q, err := spectral.QualityFromString(c.Analysis.Quality)
	if err != nil {
		return nil, err
	}
	opts := []usvscope.Option{
		usvscope.WithQuality(q),
		usvscope.WithBand(c.Analysis.FreqMin, c.Analysis.FreqMax),
		usvscope.WithFilteredOnly(c.Analysis.FilteredOnly),
		usvscope.WithSampleRate(c.Analysis.SampleRate),
		usvscope.WithThumbnails(c.Analysis.Thumbnails),
		usvscope.WithTempDir(c.Paths.Temp),
		usvscope.WithRequestDelay(c.RequestDelay()),
		usvscope.WithSkipExisting(c.Batch.SkipExisting),
	}
	if c.Batch.Workers > 0 {
		opts = append(opts, usvscope.WithWorkers(c.Batch.Workers))
	}
	return opts, nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// CreateSample writes the default configuration to path.
func CreateSample(path string) error {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}
	cfg := Default()
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return utils.WriteFileAtomic(path, data)
}
