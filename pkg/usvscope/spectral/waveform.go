package spectral

import "fmt"

// Waveform is a mono signal paired with its sample rate. It is immutable:
// NewWaveform copies the samples and Slice shares the read-only backing array.
type Waveform struct {
	samples    []float64
	sampleRate int
}

// NewWaveform validates and copies samples into a Waveform.
func NewWaveform(samples []float64, sampleRate int) (Waveform, error) {
	if sampleRate <= 0 {
		return Waveform{}, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidInput, sampleRate)
	}
	if len(samples) == 0 {
		return Waveform{}, fmt.Errorf("%w: waveform is empty", ErrInvalidInput)
	}
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return Waveform{samples: cp, sampleRate: sampleRate}, nil
}

func (w Waveform) Len() int        { return len(w.samples) }
func (w Waveform) SampleRate() int { return w.sampleRate }

// Duration returns the length in seconds.
func (w Waveform) Duration() float64 {
	if w.sampleRate <= 0 {
		return 0
	}
	return float64(len(w.samples)) / float64(w.sampleRate)
}

// At returns sample i. It panics when i is out of range.
func (w Waveform) At(i int) float64 { return w.samples[i] }

// Slice returns the sub-waveform [start, end). Bounds are clamped to the
// signal, so the result may be empty.
func (w Waveform) Slice(start, end int) Waveform {
	start = min(max(start, 0), len(w.samples))
	if end > len(w.samples) {
		end = len(w.samples)
	}
	if end < start {
		end = start
	}
	return Waveform{samples: w.samples[start:end:end], sampleRate: w.sampleRate}
}

// Samples exposes the backing slice. Callers must not modify it.
func (w Waveform) Samples() []float64 { return w.samples }
