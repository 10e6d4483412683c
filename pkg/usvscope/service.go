package usvscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mousetube/usvscope/pkg/logger"
	"github.com/mousetube/usvscope/pkg/usvscope/audio"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
	"github.com/mousetube/usvscope/pkg/utils"
)

// DefaultImageDir is where images go when no sink is configured.
const DefaultImageDir = "images"

// usvService is the default implementation of the Service interface.
type usvService struct {
	cfg      *Config
	analyzer *Analyzer
	sink     Sink
	log      Logger
	ffmpeg   bool
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	if cfg.Sink == nil {
		sink, err := NewDirSink(DefaultImageDir)
		if err != nil {
			return nil, err
		}
		cfg.Sink = sink
	}

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis settings: %w", err)
	}

	return &usvService{
		cfg:      cfg,
		analyzer: analyzer,
		sink:     cfg.Sink,
		log:      cfg.Logger,
		ffmpeg:   audio.FFmpegAvailable(),
	}, nil
}

// ProcessFile analyzes a local recording and stores <stem>.png in the sink.
func (s *usvService) ProcessFile(ctx context.Context, path string) (*FileReport, error) {
	rep := s.processFile(ctx, s.log, path, utils.FileStem(path))
	return rep, rep.Err
}

func (s *usvService) processFile(ctx context.Context, log Logger, path, name string) *FileReport {
	start := time.Now()
	rep := &FileReport{Source: path, Name: name}
	defer func() { rep.Elapsed = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		rep.Err = err
		return rep
	}

	if s.cfg.SkipExisting {
		exists, err := s.sink.Exists(imageName(name))
		if err != nil {
			rep.Err = fmt.Errorf("checking existing image: %w", err)
			return rep
		}
		if exists {
			log.Infof("%s: image already exists, skipping", name)
			rep.Outcome = (&Outcome{Name: name}).skip(ErrAlreadyRendered)
			return rep
		}
	}

	w, err := s.load(ctx, log, path, name)
	if err != nil {
		rep.Err = err
		log.Errorf("%s: %v", name, err)
		return rep
	}

	out, err := s.analyzer.withLogger(log).Analyze(name, w)
	if err != nil {
		rep.Err = err
		log.Errorf("%s: %v", name, err)
		return rep
	}
	rep.Outcome = out
	if out.Skipped() {
		return rep
	}

	rep.ImagePath, err = s.sink.Put(ctx, imageName(name), out.Artifact.Image)
	if err != nil {
		rep.Err = err
		log.Errorf("%s: %v", name, err)
		return rep
	}
	if out.Thumbnail != nil {
		if _, err := s.sink.Put(ctx, name+".thumb.png", out.Thumbnail); err != nil {
			log.Warnf("%s: storing thumbnail: %v", name, err)
		}
	}
	log.Infof("%s: wrote %s (%s, window %.2f-%.2f s)",
		name, rep.ImagePath, humanize.Bytes(uint64(len(out.Artifact.Image))), out.WindowStart, out.WindowEnd)
	return rep
}

// load decodes WAV files at their native rate and transcodes everything
// else to the configured load rate first.
func (s *usvService) load(ctx context.Context, log Logger, path, name string) (spectral.Waveform, error) {
	probed := false
	if s.ffmpeg {
		if meta, err := audio.ReadMetadataFFmpeg(ctx, path); err == nil {
			probed = true
			log.Infof("%s: %.2f s, %d Hz, %s", name, meta.DurationSec, meta.SampleRate, meta.Format)
		} else {
			log.Debugf("%s: ffprobe: %v", name, err)
		}
	}

	var (
		samples []float64
		sr      int
		err     error
	)
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		samples, sr, err = audio.ReadWavAsFloat64(path)
	} else {
		err = audio.ErrUnsupportedFormat
	}

	if errors.Is(err, audio.ErrUnsupportedFormat) {
		if !s.ffmpeg {
			return spectral.Waveform{}, fmt.Errorf("%s: ffmpeg is required to decode this file: %w", name, err)
		}
		converted, cerr := audio.ConvertToMonoWAV(ctx, path, s.cfg.TempDir, audio.ConvertWAVConfig{
			SampleRate: s.cfg.SampleRate,
		})
		if cerr != nil {
			return spectral.Waveform{}, fmt.Errorf("audio conversion failed: %w", cerr)
		}
		defer utils.DeleteFile(converted)
		samples, sr, err = audio.ReadWavAsFloat64(converted)
	}
	if err != nil {
		return spectral.Waveform{}, fmt.Errorf("failed to read audio: %w", err)
	}

	w, err := spectral.NewWaveform(samples, sr)
	if err != nil {
		return spectral.Waveform{}, err
	}
	if !probed {
		log.Infof("%s: %.2f s, %d Hz, %s samples", name, w.Duration(), sr, humanize.Comma(int64(w.Len())))
	}
	return w, nil
}

func (s *usvService) Close() error {
	if c, ok := s.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func imageName(stem string) string { return stem + ".png" }

// withLogger returns a shallow copy of a that logs through log.
func (a *Analyzer) withLogger(log Logger) *Analyzer {
	cp := *a
	cp.log = log
	return &cp
}
