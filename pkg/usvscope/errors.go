package usvscope

import (
	"errors"

	"github.com/mousetube/usvscope/pkg/usvscope/render"
	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

var (
	// ErrInvalidInput covers empty waveforms, non-positive sample rates and
	// unknown quality tiers. No artifact is produced.
	ErrInvalidInput = spectral.ErrInvalidInput

	// ErrBandOutOfRange means the configured band lies outside the
	// Nyquist-limited spectrum of the recording.
	ErrBandOutOfRange = spectral.ErrBandOutOfRange

	// ErrNoSignal is the skip reason when filtered-only mode finds no
	// validated segment.
	ErrNoSignal = errors.New("no signal detected")

	// ErrEmptyCrop is the skip reason when the crop window around the
	// detected segment holds no samples.
	ErrEmptyCrop = errors.New("empty crop window")

	// ErrAlreadyRendered is the skip reason when the sink already holds an
	// image for the recording and existing images are kept.
	ErrAlreadyRendered = errors.New("image already exists")
)

// RenderError is returned when drawing or encoding the image fails.
type RenderError = render.RenderError
