package render

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"testing"

	"github.com/mousetube/usvscope/internal/testutil"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

func burst(t *testing.T) spectral.Waveform {
	t.Helper()
	const sr = 300000
	samples := testutil.AddTone(testutil.Noise(sr/2, 0.001, 11), sr, 60000, 0.8, 0.1, 0.2)
	w, err := spectral.NewWaveform(samples, sr)
	if err != nil {
		t.Fatalf("NewWaveform: %v", err)
	}
	return w
}

func defaultParams(name string) Params {
	return Params{
		Name:    name,
		FFTSize: 1024,
		Hop:     256,
		FreqMin: spectral.DefaultFreqMin,
		FreqMax: spectral.DefaultFreqMax,
	}
}

func TestSpectrogramProducesPNG(t *testing.T) {
	art, err := Spectrogram(burst(t), defaultParams("burst.wav"))
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}
	if len(art.Image) == 0 {
		t.Fatal("empty image")
	}
	img, err := png.Decode(bytes.NewReader(art.Image))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 1000 || b.Dy() != 400 {
		t.Errorf("image size = %dx%d, want 1000x400", b.Dx(), b.Dy())
	}
	if art.Width != b.Dx() || art.Height != b.Dy() {
		t.Errorf("artifact reports %dx%d, image is %dx%d", art.Width, art.Height, b.Dx(), b.Dy())
	}
}

func TestSpectrogramDeterministic(t *testing.T) {
	w := burst(t)
	p := defaultParams("again")
	p.TimeOffset = 2.5

	a, err := Spectrogram(w, p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Spectrogram(w, p)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Image, b.Image) {
		t.Error("rendering the same input twice produced different bytes")
	}
	if a.TimeOffset != 2.5 {
		t.Errorf("TimeOffset = %v, want 2.5", a.TimeOffset)
	}
}

func TestSpectrogramOffsetChangesAxis(t *testing.T) {
	w := burst(t)
	p := defaultParams("offset")
	a, err := Spectrogram(w, p)
	if err != nil {
		t.Fatal(err)
	}
	p.TimeOffset = 7
	b, err := Spectrogram(w, p)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.Image, b.Image) {
		t.Error("x-axis offset should change the rendered labels")
	}
}

func TestSpectrogramShortAndSilent(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
	}{
		{"single frame", testutil.Noise(100, 0.2, 4)},
		{"silence", testutil.Silence(30000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := spectral.NewWaveform(tt.samples, 300000)
			if err != nil {
				t.Fatal(err)
			}
			art, err := Spectrogram(w, defaultParams(tt.name))
			if err != nil {
				t.Fatalf("Spectrogram: %v", err)
			}
			if _, err := png.Decode(bytes.NewReader(art.Image)); err != nil {
				t.Fatalf("invalid PNG: %v", err)
			}
		})
	}
}

func TestSpectrogramBandOutOfRange(t *testing.T) {
	w, err := spectral.NewWaveform(testutil.Noise(44100, 0.1, 2), 44100)
	if err != nil {
		t.Fatal(err)
	}
	p := defaultParams("nyquist")
	p.FreqMin, p.FreqMax = 200000, 250000
	if _, err := Spectrogram(w, p); !errors.Is(err, spectral.ErrBandOutOfRange) {
		t.Errorf("expected ErrBandOutOfRange, got %v", err)
	}
}

func TestBandGridPoolsColumns(t *testing.T) {
	w := burst(t)
	m, err := spectral.Transform(w, 1024, 256)
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, ok := spectral.BandBins(w.SampleRate(), 1024, 20000, 150000)
	if !ok {
		t.Fatal("band should be in range")
	}

	g := newBandGrid(m, w.SampleRate(), lo, hi, 100, 1, 1+w.Duration())
	cols, rows := g.Dims()
	if cols != 100 || rows != hi-lo+1 {
		t.Fatalf("dims = %dx%d, want 100x%d", cols, rows, hi-lo+1)
	}

	// The cells tile the axes exactly.
	if got := g.X(0) - g.dt/2; got < 1-1e-9 || got > 1+1e-9 {
		t.Errorf("left edge = %v, want 1", got)
	}
	res := float64(w.SampleRate()) / 1024
	wantTop := spectral.BinFrequency(hi, w.SampleRate(), 1024) + res/2
	if got := g.Y(rows-1) + g.df/2; math.Abs(got-wantTop) > 1e-6 {
		t.Errorf("top edge = %v, want %v", got, wantTop)
	}
	if fLo, fHi := g.FreqRange(); math.Abs(fLo-(g.Y(0)-g.df/2)) > 1e-6 || math.Abs(fHi-wantTop) > 1e-6 {
		t.Errorf("FreqRange = [%v, %v], want [%v, %v]", fLo, fHi, g.Y(0)-g.df/2, wantTop)
	}

	// Pooling keeps the loudest value of each group of frames.
	var gridMax float64 = -1000
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			if v := g.Z(c, r); v > gridMax {
				gridMax = v
			}
		}
	}
	var bandMax float64 = -1000
	for f := 0; f < m.Frames(); f++ {
		for k := lo; k <= hi; k++ {
			if v := m.At(k, f); v > bandMax {
				bandMax = v
			}
		}
	}
	if gridMax != bandMax {
		t.Errorf("pooled max %v, band max %v", gridMax, bandMax)
	}
}

func TestThumbnail(t *testing.T) {
	out, err := Thumbnail(burst(t), 256, 64)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 64 {
		t.Errorf("thumbnail size = %dx%d, want 256x64", b.Dx(), b.Dy())
	}
}

func TestRenderErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&RenderError{Name: "x", Op: "encode", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("RenderError should unwrap to its cause")
	}
	if !IsRenderError(err) {
		t.Error("IsRenderError should recognise a RenderError")
	}
}

func TestBandGridRowsSitOnBinFrequencies(t *testing.T) {
	const sr = 192000
	samples := testutil.AddTone(testutil.Noise(sr/4, 0.001, 3), sr, 50000, 0.8, 0.05, 0.1)
	w, err := spectral.NewWaveform(samples, sr)
	if err != nil {
		t.Fatal(err)
	}
	m, err := spectral.Transform(w, 1024, 256)
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, ok := spectral.BandBins(sr, 1024, 20000, 150000)
	if !ok {
		t.Fatal("band should be in range")
	}
	if hi != 512 {
		t.Fatalf("top bin = %d, want the Nyquist bin 512", hi)
	}

	g := newBandGrid(m, sr, lo, hi, 0, 0, w.Duration())
	for _, k := range []int{lo, 267, hi} {
		want := spectral.BinFrequency(k, sr, 1024)
		if got := g.Y(k - lo); math.Abs(got-want) > 1e-6 {
			t.Errorf("bin %d drawn at %.1f Hz, want %.1f Hz", k, got, want)
		}
	}

	res := float64(sr) / 1024
	if _, top := g.FreqRange(); math.Abs(top-(sr/2+res/2)) > 1e-6 {
		t.Errorf("grid top = %.1f Hz, want Nyquist + half a bin (%.1f Hz)", top, sr/2+res/2)
	}
}

func TestSpectrogramBelowBandTopRenders(t *testing.T) {
	const sr = 192000
	samples := testutil.AddTone(testutil.Noise(sr/4, 0.001, 5), sr, 50000, 0.8, 0.05, 0.1)
	w, err := spectral.NewWaveform(samples, sr)
	if err != nil {
		t.Fatal(err)
	}
	art, err := Spectrogram(w, defaultParams("low-rate"))
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(art.Image)); err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
}
