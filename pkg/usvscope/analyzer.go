package usvscope

import (
	"errors"
	"fmt"
	"math"

	"github.com/mousetube/usvscope/pkg/logger"
	"github.com/mousetube/usvscope/pkg/usvscope/detect"
	"github.com/mousetube/usvscope/pkg/usvscope/render"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

const (
	// CropMinDuration is the recording length from which filtered-only
	// mode crops around the detected segment.
	CropMinDuration = 10.0
	// CropLead and CropTail place the crop window relative to the
	// segment start.
	CropLead = 1.0
	CropTail = 9.0
)

// Analyzer runs the detection and rendering pipeline on in-memory
// waveforms. It keeps no state between calls and is safe for concurrent use.
type Analyzer struct {
	cfg     *Config
	fftSize int
	hop     int
	log     Logger
}

func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newAnalyzer(cfg)
}

func newAnalyzer(cfg *Config) (*Analyzer, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	fftSize, hop, err := cfg.Quality.Params()
	if err != nil {
		return nil, err
	}
	if cfg.FreqMin > cfg.FreqMax {
		return nil, fmt.Errorf("%w: freq min %.0f exceeds freq max %.0f", ErrInvalidInput, cfg.FreqMin, cfg.FreqMax)
	}
	return &Analyzer{cfg: cfg, fftSize: fftSize, hop: hop, log: cfg.Logger}, nil
}

// Analyze detects the most salient segment of w and renders the image the
// configuration calls for. Input problems are returned as errors; policy
// outcomes (no signal, band out of range, empty crop) end in StateSkipped
// with a SkipReason.
func (a *Analyzer) Analyze(name string, w spectral.Waveform) (*Outcome, error) {
	if w.Len() == 0 || w.SampleRate() <= 0 {
		return nil, fmt.Errorf("%w: %s: empty waveform", ErrInvalidInput, name)
	}

	out := &Outcome{Name: name, Duration: w.Duration()}
	out.enter(StateLoaded)
	sr := w.SampleRate()

	m, err := spectral.Transform(w, a.fftSize, a.hop)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	curve, err := spectral.ExtractBand(m, sr, a.cfg.FreqMin, a.cfg.FreqMax)
	if err != nil {
		if errors.Is(err, ErrBandOutOfRange) {
			// Skipped even when FilteredOnly is off: unlike a quiet
			// recording there is no full-signal image to fall back to,
			// since none of the band's rows exist in the spectrum.
			a.log.Warnf("%s: band %.0f-%.0f Hz is outside the spectrum at %d Hz (Nyquist %.0f Hz), skipping",
				name, a.cfg.FreqMin, a.cfg.FreqMax, sr, float64(sr)/2)
			return out.skip(err), nil
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	smoothed, threshold, err := detect.Threshold(curve)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	res := detect.Detect(smoothed, threshold, sr, a.hop)
	out.Detection = res
	out.enter(StateAnalyzed)
	a.log.Debugf("%s: %d frames, threshold %.2f dB, %d peaks, %d/%d runs validated",
		name, len(curve), threshold, len(res.Peaks), res.Validated, res.Candidates)

	lo, hi := 0, w.Len()
	switch {
	case !res.Found && a.cfg.FilteredOnly:
		a.log.Infof("%s: no signal above %.2f dB, skipping", name, threshold)
		return out.skip(ErrNoSignal), nil

	case !res.Found:
		a.log.Infof("%s: no signal detected, rendering the full recording", name)
		out.enter(StateFullSignal)

	case a.cfg.FilteredOnly && w.Duration() >= CropMinDuration:
		out.StartTime, out.EndTime, out.MeanPowerDB = res.StartTime, res.EndTime, res.MeanPowerDB
		lo, hi, err = cropWindow(res.StartTime, w.Len(), sr)
		if err != nil {
			a.log.Warnf("%s: %v", name, err)
			return out.skip(err), nil
		}
		out.enter(StateCropped)

	default:
		out.StartTime, out.EndTime, out.MeanPowerDB = res.StartTime, res.EndTime, res.MeanPowerDB
		out.enter(StateFullSignal)
	}
	if res.Found {
		a.log.Infof("%s: segment %.3f-%.3f s, mean power %.2f dB", name, res.StartTime, res.EndTime, res.MeanPowerDB)
	}

	clip := w.Slice(lo, hi)
	offset := float64(lo) / float64(sr)
	out.WindowStart = offset
	out.WindowEnd = float64(hi) / float64(sr)

	// The transform is recomputed on the final slice; frames from detection
	// were padded against the full recording.
	art, err := render.Spectrogram(clip, render.Params{
		Name:       name,
		FFTSize:    a.fftSize,
		Hop:        a.hop,
		FreqMin:    a.cfg.FreqMin,
		FreqMax:    a.cfg.FreqMax,
		TimeOffset: offset,
	})
	if err != nil {
		return nil, err
	}
	out.Artifact = art
	out.enter(StateRendered)

	if a.cfg.Thumbnails {
		thumb, err := render.Thumbnail(clip, 0, 0)
		if err != nil {
			a.log.Warnf("%s: thumbnail: %v", name, err)
		} else {
			out.Thumbnail = thumb
		}
	}

	out.enter(StateDone)
	return out, nil
}

// cropWindow returns the sample range [lo, hi) from CropLead seconds before
// the segment start to CropTail seconds after it, clamped to the signal.
//
// The window is always CropLead+CropTail seconds wide, even when the
// segment itself runs longer: the image shows the onset, and the segment
// end is still reported in the outcome.
func cropWindow(startTime float64, n, sampleRate int) (lo, hi int, err error) {
	lo = int(math.Round((startTime - CropLead) * float64(sampleRate)))
	hi = int(math.Round((startTime + CropTail) * float64(sampleRate)))
	lo = max(lo, 0)
	hi = min(hi, n)
	if hi <= lo {
		return 0, 0, fmt.Errorf("%w: %.3f-%.3f s lies outside a %d-sample recording",
			ErrEmptyCrop, startTime-CropLead, startTime+CropTail, n)
	}
	return lo, hi, nil
}

// AnalyzeAndRender is the single-call entry point: samples in, outcome out.
func AnalyzeAndRender(samples []float64, sampleRate int, quality spectral.Quality, filteredOnly bool, fmin, fmax float64) (*Outcome, error) {
	w, err := spectral.NewWaveform(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	a, err := NewAnalyzer(
		WithQuality(quality),
		WithFilteredOnly(filteredOnly),
		WithBand(fmin, fmax),
	)
	if err != nil {
		return nil, err
	}
	return a.Analyze("signal", w)
}
