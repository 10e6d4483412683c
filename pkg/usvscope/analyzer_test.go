package usvscope

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"reflect"
	"slices"
	"testing"

	"github.com/mousetube/usvscope/internal/testutil"
	"github.com/mousetube/usvscope/pkg/logger"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
	"go.uber.org/zap/zaptest"
)

const ultrasonicRate = 300000

func testLogger(t *testing.T) Logger {
	return logger.NewFromZap(zaptest.NewLogger(t))
}

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(append([]Option{WithLogger(testLogger(t))}, opts...)...)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func waveform(t *testing.T, samples []float64, sr int) spectral.Waveform {
	t.Helper()
	w, err := spectral.NewWaveform(samples, sr)
	if err != nil {
		t.Fatalf("NewWaveform: %v", err)
	}
	return w
}

func assertPNG(t *testing.T, img []byte) {
	t.Helper()
	if len(img) == 0 {
		t.Fatal("empty image")
	}
	if _, err := png.Decode(bytes.NewReader(img)); err != nil {
		t.Fatalf("image is not a valid PNG: %v", err)
	}
}

func TestAnalyzeSilenceSkipped(t *testing.T) {
	a := newTestAnalyzer(t, WithFilteredOnly(true))
	out, err := a.Analyze("silence", waveform(t, testutil.Silence(5*ultrasonicRate), ultrasonicRate))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !out.Skipped() {
		t.Fatalf("state = %v, want skipped", out.State)
	}
	if !errors.Is(out.SkipReason, ErrNoSignal) {
		t.Errorf("skip reason = %v, want ErrNoSignal", out.SkipReason)
	}
	if out.Artifact != nil {
		t.Error("skipped outcome should carry no artifact")
	}
}

func TestAnalyzeBurstCropped(t *testing.T) {
	samples := testutil.BurstInNoise(ultrasonicRate, 12, 50000, 3.0, 0.5)
	a := newTestAnalyzer(t, WithQuality(spectral.QualityMedium), WithFilteredOnly(true))

	out, err := a.Analyze("burst", waveform(t, samples, ultrasonicRate))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.State != StateDone {
		t.Fatalf("state = %v (skip reason %v), want done", out.State, out.SkipReason)
	}
	want := []State{StateLoaded, StateAnalyzed, StateCropped, StateRendered, StateDone}
	if !reflect.DeepEqual(out.Trace, want) {
		t.Errorf("trace = %v, want %v", out.Trace, want)
	}

	if out.StartTime < 2.0 || out.StartTime > 3.5 {
		t.Errorf("start time %.3f s outside [2.0, 3.5]", out.StartTime)
	}
	if out.EndTime < 3.0 || out.EndTime > 4.5 {
		t.Errorf("end time %.3f s outside [3.0, 4.5]", out.EndTime)
	}
	if out.WindowStart > out.StartTime {
		t.Errorf("crop starts at %.3f s, after the segment at %.3f s", out.WindowStart, out.StartTime)
	}
	if span := out.WindowEnd - out.WindowStart; math.Abs(span-10) > 1e-3 {
		t.Errorf("crop spans %.4f s, want 10", span)
	}
	if out.Artifact.TimeOffset != out.WindowStart {
		t.Errorf("x-axis offset %.3f, want crop start %.3f", out.Artifact.TimeOffset, out.WindowStart)
	}
	assertPNG(t, out.Artifact.Image)
}

func TestAnalyzeBurstFullSignal(t *testing.T) {
	samples := testutil.BurstInNoise(ultrasonicRate, 12, 50000, 3.0, 0.5)
	a := newTestAnalyzer(t, WithFilteredOnly(false))

	out, err := a.Analyze("burst", waveform(t, samples, ultrasonicRate))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.State != StateDone || !slices.Contains(out.Trace, StateFullSignal) {
		t.Fatalf("trace = %v, want a full-signal render", out.Trace)
	}
	if out.WindowStart != 0 || math.Abs(out.WindowEnd-12) > 1e-9 {
		t.Errorf("window = [%.3f, %.3f], want [0, 12]", out.WindowStart, out.WindowEnd)
	}
	if out.Artifact.TimeOffset != 0 || math.Abs(out.Artifact.Duration-12) > 1e-9 {
		t.Errorf("artifact covers %.3f s from %.3f, want 12 s from 0", out.Artifact.Duration, out.Artifact.TimeOffset)
	}
	assertPNG(t, out.Artifact.Image)
}

func TestAnalyzeNoSignalRendersFullWhenNotFiltered(t *testing.T) {
	a := newTestAnalyzer(t)
	out, err := a.Analyze("quiet", waveform(t, testutil.Silence(ultrasonicRate), ultrasonicRate))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.State != StateDone {
		t.Fatalf("state = %v, want done", out.State)
	}
	if out.Detection.Found || out.StartTime != 0 || out.EndTime != 0 {
		t.Errorf("silence should not report a segment: %+v", out.Detection)
	}
	assertPNG(t, out.Artifact.Image)
}

func TestAnalyzeShortRecordingNotCropped(t *testing.T) {
	samples := testutil.BurstInNoise(ultrasonicRate, 6, 50000, 2.0, 0.5)
	a := newTestAnalyzer(t, WithFilteredOnly(true))

	out, err := a.Analyze("short", waveform(t, samples, ultrasonicRate))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !out.Detection.Found {
		t.Fatalf("expected a detection, got %+v", out.Detection)
	}
	if slices.Contains(out.Trace, StateCropped) {
		t.Error("recordings shorter than 10 s should not be cropped")
	}
	if out.WindowStart != 0 || math.Abs(out.WindowEnd-6) > 1e-9 {
		t.Errorf("window = [%.3f, %.3f], want [0, 6]", out.WindowStart, out.WindowEnd)
	}
}

func TestAnalyzeAndRenderBandOutOfRange(t *testing.T) {
	samples := testutil.Noise(44100, 0.1, 8)
	out, err := AnalyzeAndRender(samples, 44100, spectral.QualityMedium, false, 200000, 250000)
	if err != nil {
		t.Fatalf("AnalyzeAndRender: %v", err)
	}
	if !out.Skipped() || !errors.Is(out.SkipReason, ErrBandOutOfRange) {
		t.Errorf("got state %v reason %v, want skipped with ErrBandOutOfRange", out.State, out.SkipReason)
	}
}

func TestAnalyzeAndRenderInputErrors(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		sr      int
		quality spectral.Quality
	}{
		{"empty", nil, ultrasonicRate, spectral.QualityMedium},
		{"zero rate", []float64{0, 1}, 0, spectral.QualityMedium},
		{"bad quality", []float64{0, 1}, ultrasonicRate, spectral.Quality(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AnalyzeAndRender(tt.samples, tt.sr, tt.quality, true, spectral.DefaultFreqMin, spectral.DefaultFreqMax)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAnalyzeAndRenderIdempotent(t *testing.T) {
	samples := testutil.BurstInNoise(ultrasonicRate, 2, 70000, 0.8, 0.3)
	run := func() *Outcome {
		out, err := AnalyzeAndRender(samples, ultrasonicRate, spectral.QualityLow, false, 20000, 150000)
		if err != nil {
			t.Fatalf("AnalyzeAndRender: %v", err)
		}
		return out
	}
	a, b := run(), run()
	if !bytes.Equal(a.Artifact.Image, b.Artifact.Image) {
		t.Error("images differ between identical runs")
	}
	if a.StartTime != b.StartTime || a.EndTime != b.EndTime || a.MeanPowerDB != b.MeanPowerDB {
		t.Errorf("timing differs: %v/%v/%v vs %v/%v/%v",
			a.StartTime, a.EndTime, a.MeanPowerDB, b.StartTime, b.EndTime, b.MeanPowerDB)
	}
}

func TestDetectionScaleInvariant(t *testing.T) {
	samples := testutil.BurstInNoise(ultrasonicRate, 6, 50000, 2.0, 0.5)
	a := newTestAnalyzer(t, WithFilteredOnly(true))

	base, err := a.Analyze("y", waveform(t, samples, ultrasonicRate))
	if err != nil {
		t.Fatal(err)
	}
	scaled, err := a.Analyze("2y", waveform(t, testutil.Scale(samples, 2), ultrasonicRate))
	if err != nil {
		t.Fatal(err)
	}
	if !base.Detection.Found {
		t.Fatal("expected a detection to compare")
	}
	if base.Detection.Segment != scaled.Detection.Segment {
		t.Errorf("segment changed under scaling: %+v vs %+v", base.Detection.Segment, scaled.Detection.Segment)
	}
	if !reflect.DeepEqual(base.Detection.Peaks, scaled.Detection.Peaks) {
		t.Errorf("peaks changed under scaling: %v vs %v", base.Detection.Peaks, scaled.Detection.Peaks)
	}
}

func TestCropWindow(t *testing.T) {
	const sr = 1000
	tests := []struct {
		name    string
		start   float64
		n       int
		lo, hi  int
		wantErr bool
	}{
		{"interior", 3.0, 12000, 2000, 12000, false},
		{"clamps left", 0.5, 12000, 0, 9500, false},
		{"clamps right", 11.5, 12000, 10500, 12000, false},
		{"past the end", 20, 12000, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := cropWindow(tt.start, tt.n, sr)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyCrop) {
					t.Errorf("expected ErrEmptyCrop, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cropWindow: %v", err)
			}
			if lo != tt.lo || hi != tt.hi {
				t.Errorf("window = [%d, %d), want [%d, %d)", lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestNewAnalyzerRejectsInvertedBand(t *testing.T) {
	if _, err := NewAnalyzer(WithBand(90000, 30000)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
