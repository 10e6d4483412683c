package usvscope

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/mousetube/usvscope/pkg/usvscope/audio"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

type Config struct {
	Quality      spectral.Quality
	FreqMin      float64
	FreqMax      float64
	FilteredOnly bool

	// SampleRate is the rate non-WAV recordings are transcoded to.
	SampleRate int
	TempDir    string

	Workers      int
	RequestDelay time.Duration
	SkipExisting bool
	Thumbnails   bool
	HTTPClient   *http.Client

	Logger Logger
	Sink   Sink
}

type Option func(*Config)

func WithQuality(q spectral.Quality) Option {
	return func(c *Config) {
		c.Quality = q
	}
}

// WithBand sets the frequency band, in Hz, used for detection and rendering.
func WithBand(fmin, fmax float64) Option {
	return func(c *Config) {
		c.FreqMin = fmin
		c.FreqMax = fmax
	}
}

// WithFilteredOnly skips recordings without a detected segment and crops
// long recordings around the segment that was found.
func WithFilteredOnly(on bool) Option {
	return func(c *Config) {
		c.FilteredOnly = on
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithRequestDelay sets the pause between two consecutive remote downloads.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RequestDelay = d
	}
}

func WithSkipExisting(skip bool) Option {
	return func(c *Config) {
		c.SkipExisting = skip
	}
}

func WithThumbnails(on bool) Option {
	return func(c *Config) {
		c.Thumbnails = on
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithSink(sink Sink) Option {
	return func(c *Config) {
		c.Sink = sink
	}
}

func defaultConfig() *Config {
	return &Config{
		Quality:      spectral.QualityMedium,
		FreqMin:      spectral.DefaultFreqMin,
		FreqMax:      spectral.DefaultFreqMax,
		SampleRate:   audio.DefaultLoadRate,
		TempDir:      os.TempDir(),
		Workers:      runtime.NumCPU(),
		RequestDelay: time.Second,
		HTTPClient:   &http.Client{Timeout: 10 * time.Minute},
	}
}
