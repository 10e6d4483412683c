package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/eligwz/spectrogram"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

const (
	DefaultThumbnailWidth  = 512
	DefaultThumbnailHeight = 128
)

// Thumbnail draws an uncalibrated quick-look spectrogram of the whole
// waveform: no axes, linear magnitude, full band up to Nyquist.
func Thumbnail(w spectral.Waveform, width, height int) (out []byte, err error) {
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: waveform is empty", spectral.ErrInvalidInput)
	}
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	if height <= 0 {
		height = DefaultThumbnailHeight
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &RenderError{Name: "thumbnail", Op: "draw", Err: fmt.Errorf("%v", r)}
		}
	}()

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		w.Samples(),
		uint32(w.SampleRate()),
		uint32(height), // bins
		false,          // rectangle window off: Hamming
		false,          // FFT rather than DFT
		true,           // magnitude
		false,          // linear scale
	)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &RenderError{Name: "thumbnail", Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
