package spectral

import "errors"

var (
	// ErrInvalidInput marks caller mistakes: empty waveforms, non-positive
	// sample rates, unknown quality tiers, malformed transform parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBandOutOfRange is returned when the requested frequency band selects
	// no FFT bin, typically because it lies above the Nyquist limit.
	ErrBandOutOfRange = errors.New("frequency band out of range")
)
