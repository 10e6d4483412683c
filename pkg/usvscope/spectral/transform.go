package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// DefaultTopDB is the dynamic range kept below the global maximum. Magnitudes
// quieter than that are floored, so silent bins never reach log10(0).
const DefaultTopDB = 80.0

// Matrix is a decibel spectrogram with Bins() rows (frequency) and Frames()
// columns (time). Values are stored frame-major.
type Matrix struct {
	bins    int
	frames  int
	fftSize int
	hop     int
	data    []float64
}

func (m *Matrix) Bins() int    { return m.bins }
func (m *Matrix) Frames() int  { return m.frames }
func (m *Matrix) FFTSize() int { return m.fftSize }
func (m *Matrix) Hop() int     { return m.hop }

// At returns the dB value of a bin in a frame. It panics on out-of-range
// indices rather than reading a neighbouring frame.
func (m *Matrix) At(bin, frame int) float64 {
	if bin < 0 || bin >= m.bins || frame < 0 || frame >= m.frames {
		panic(fmt.Sprintf("spectral: index (%d,%d) out of range [%d,%d)", bin, frame, m.bins, m.frames))
	}
	return m.data[frame*m.bins+bin]
}

// Frame returns the bins of one frame. The slice aliases the matrix.
func (m *Matrix) Frame(frame int) []float64 {
	if frame < 0 || frame >= m.frames {
		panic(fmt.Sprintf("spectral: frame %d out of range [0,%d)", frame, m.frames))
	}
	off := frame * m.bins
	return m.data[off : off+m.bins : off+m.bins]
}

// Max returns the largest value in the matrix (0 dB for any non-empty matrix).
func (m *Matrix) Max() float64 {
	best := math.Inf(-1)
	for _, v := range m.data {
		if v > best {
			best = v
		}
	}
	return best
}

// FrameCount returns the number of STFT frames for n samples.
func FrameCount(n, fftSize, hop int) int {
	if n <= fftSize {
		return 1
	}
	return (n-fftSize+hop-1)/hop + 1
}

// Transform computes the magnitude STFT of w with a Hann window and converts
// it to decibels relative to the loudest bin of the whole matrix. Frames
// running past the end of the signal are zero-padded, so even a waveform
// shorter than fftSize yields one frame.
func Transform(w Waveform, fftSize, hop int) (*Matrix, error) {
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: waveform is empty", ErrInvalidInput)
	}
	if fftSize <= 0 || hop <= 0 || hop > fftSize {
		return nil, fmt.Errorf("%w: need 0 < hop <= fft size, got fft=%d hop=%d", ErrInvalidInput, fftSize, hop)
	}

	samples := w.Samples()
	frames := FrameCount(len(samples), fftSize, hop)
	bins := fftSize/2 + 1
	win := window.Hann(fftSize)

	m := &Matrix{
		bins:    bins,
		frames:  frames,
		fftSize: fftSize,
		hop:     hop,
		data:    make([]float64, frames*bins),
	}

	buf := make([]float64, fftSize)
	peak := 0.0
	for f := 0; f < frames; f++ {
		start := f * hop
		for i := range buf {
			idx := start + i
			if idx < len(samples) {
				buf[i] = samples[idx] * win[i]
			} else {
				buf[i] = 0
			}
		}
		spec := fft.FFTReal(buf)
		row := m.data[f*bins : (f+1)*bins]
		for k := 0; k < bins; k++ {
			mag := cmplx.Abs(spec[k])
			row[k] = mag
			if mag > peak {
				peak = mag
			}
		}
	}

	toDB(m.data, peak, DefaultTopDB)
	return m, nil
}

// toDB converts magnitudes in place to 20·log10(mag/ref), flooring at
// topDB below ref. A zero reference maps everything to 0 dB.
func toDB(mags []float64, ref, topDB float64) {
	if ref <= 0 {
		for i := range mags {
			mags[i] = 0
		}
		return
	}
	floor := ref * math.Pow(10, -topDB/20)
	for i, v := range mags {
		if v <= floor {
			mags[i] = -topDB
			continue
		}
		mags[i] = math.Max(20*math.Log10(v/ref), -topDB)
	}
}
