package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var (
	// ErrNotWAV is returned for input that does not parse as a RIFF/WAVE file.
	ErrNotWAV = errors.New("not a WAV file")
	// ErrUnsupportedFormat is returned for WAV files whose sample encoding the
	// decoder cannot read directly (IEEE float, A-law, ...). Transcoding
	// them with ConvertToMonoWAV yields a readable file.
	ErrUnsupportedFormat = errors.New("unsupported WAV encoding")
)

// ReadWavAsFloat64 reads a PCM WAV file and returns mono samples normalized
// to [-1, 1] together with the native sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	samples, sr, err := DecodeWav(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return samples, sr, nil
}

// DecodeWav decodes 8, 16, 24 or 32-bit integer PCM. Multi-channel input is
// averaged down to mono.
func DecodeWav(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrNotWAV, err)
		}
		return nil, 0, ErrNotWAV
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, 0, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if dec.WavAudioFormat == wavFormatExtensible {
		sub, err := extensibleSubFormat(r)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrNotWAV, err)
		}
		if sub != wavFormatPCM {
			return nil, 0, fmt.Errorf("%w: extensible sub-format %d", ErrUnsupportedFormat, sub)
		}
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, 0, fmt.Errorf("%w: no samples", ErrNotWAV)
	}

	bits := int(dec.BitDepth)
	scale := 1.0 / float64(int64(1)<<(bits-1))
	// 8-bit WAV samples are unsigned.
	bias := 0
	if bits == 8 {
		bias = 128
	}

	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]-bias) * scale
		}
		out[i] = sum / float64(channels)
	}
	return out, int(dec.SampleRate), nil
}

// extensibleSubFormat returns the format code carried in the first two bytes
// of a WAVE_FORMAT_EXTENSIBLE SubFormat GUID. The decoder only reports the
// outer 0xFFFE tag, so the fmt chunk is read again here. The read position
// of r is restored before returning.
func extensibleSubFormat(r io.ReadSeeker) (uint16, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	defer r.Seek(pos, io.SeekStart)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return 0, err
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("no fmt chunk: %w", err)
		}
		if ch.ID != riff.FmtID {
			if _, err := io.CopyN(io.Discard, ch.R, int64(ch.Size)); err != nil {
				return 0, err
			}
			continue
		}
		// 16 bytes of WAVEFORMAT, cbSize, valid bits, channel mask, then the GUID.
		if ch.Size < 26 {
			return 0, fmt.Errorf("extensible fmt chunk is %d bytes", ch.Size)
		}
		buf := make([]byte, 26)
		if _, err := io.ReadFull(ch.R, buf); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint16(buf[24:26]), nil
	}
}
