// Package testutil builds deterministic synthetic recordings for tests.
package testutil

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Silence returns n zero samples.
func Silence(n int) []float64 {
	return make([]float64, n)
}

// Noise returns n uniform samples in [-amp, amp] from a seeded source.
func Noise(n int, amp float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (2*rng.Float64() - 1)
	}
	return out
}

// RampSeconds is the raised-cosine fade applied to both ends of a tone so the
// burst does not splatter energy across the whole spectrum.
const RampSeconds = 0.005

// AddTone adds a sine of the given frequency and amplitude to samples,
// starting at startSec and lasting durSec. Samples past the end are ignored.
func AddTone(samples []float64, sampleRate int, freq, amp, startSec, durSec float64) []float64 {
	start := int(math.Round(startSec * float64(sampleRate)))
	length := int(math.Round(durSec * float64(sampleRate)))
	ramp := int(math.Round(RampSeconds * float64(sampleRate)))
	for k := 0; k < length; k++ {
		i := start + k
		if i < 0 || i >= len(samples) {
			continue
		}
		gain := 1.0
		if k < ramp {
			gain = 0.5 * (1 - math.Cos(math.Pi*float64(k)/float64(ramp)))
		} else if tail := length - 1 - k; tail < ramp {
			gain = 0.5 * (1 - math.Cos(math.Pi*float64(tail)/float64(ramp)))
		}
		t := float64(k) / float64(sampleRate)
		samples[i] += gain * amp * math.Sin(2*math.Pi*freq*t)
	}
	return samples
}

// BurstInNoise is a recording of totalSec seconds of low-level noise with a
// single tone burst.
func BurstInNoise(sampleRate int, totalSec, freq, startSec, durSec float64) []float64 {
	n := int(math.Round(totalSec * float64(sampleRate)))
	samples := Noise(n, 0.001, 42)
	return AddTone(samples, sampleRate, freq, 0.8, startSec, durSec)
}

// Scale returns a copy of samples multiplied by k.
func Scale(samples []float64, k float64) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v * k
	}
	return out
}

// WriteWAV encodes samples as 16-bit PCM into dir/name and returns the path.
// Each channel carries the same signal.
func WriteWAV(t *testing.T, dir, name string, samples []float64, sampleRate, channels int) string {
	t.Helper()
	if channels <= 0 {
		channels = 1
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, 0, len(samples)*channels)
	for _, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int(math.Round(v * 32767))
		for c := 0; c < channels; c++ {
			data = append(data, s)
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
	return path
}
