package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultFreqMin = 20000.0
	DefaultFreqMax = 150000.0
)

// Curve is a per-frame series of dB values.
type Curve []float64

// BinFrequency returns the centre frequency of FFT bin k in Hz.
func BinFrequency(k, sampleRate, fftSize int) float64 {
	return float64(k) * float64(sampleRate) / float64(fftSize)
}

// BandBins returns the inclusive bin range whose frequencies fall in
// [fmin, fmax]. ok is false when no bin qualifies.
func BandBins(sampleRate, fftSize int, fmin, fmax float64) (lo, hi int, ok bool) {
	if sampleRate <= 0 || fftSize <= 0 || fmin > fmax {
		return 0, 0, false
	}
	bins := fftSize/2 + 1
	res := float64(sampleRate) / float64(fftSize)

	lo = int(math.Ceil(fmin / res))
	if lo < 0 {
		lo = 0
	}
	// Nudge for floating point: bin lo must really be >= fmin.
	for lo > 0 && BinFrequency(lo-1, sampleRate, fftSize) >= fmin {
		lo--
	}
	for lo < bins && BinFrequency(lo, sampleRate, fftSize) < fmin {
		lo++
	}

	hi = int(math.Floor(fmax / res))
	if hi > bins-1 {
		hi = bins - 1
	}
	for hi+1 < bins && BinFrequency(hi+1, sampleRate, fftSize) <= fmax {
		hi++
	}
	for hi >= 0 && BinFrequency(hi, sampleRate, fftSize) > fmax {
		hi--
	}

	if lo >= bins || hi < 0 || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// ExtractBand reduces m to the mean dB across the bins inside [fmin, fmax]
// for every frame.
func ExtractBand(m *Matrix, sampleRate int, fmin, fmax float64) (Curve, error) {
	if m == nil || m.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty spectrogram", ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidInput, sampleRate)
	}
	if fmin > fmax {
		return nil, fmt.Errorf("%w: freq min %.0f exceeds freq max %.0f", ErrInvalidInput, fmin, fmax)
	}

	lo, hi, ok := BandBins(sampleRate, m.FFTSize(), fmin, fmax)
	if !ok {
		return nil, fmt.Errorf("%w: [%.0f, %.0f] Hz selects no bin below Nyquist %.0f Hz",
			ErrBandOutOfRange, fmin, fmax, float64(sampleRate)/2)
	}

	curve := make(Curve, m.Frames())
	n := float64(hi - lo + 1)
	for f := range curve {
		curve[f] = floats.Sum(m.Frame(f)[lo:hi+1]) / n
	}
	return curve, nil
}
