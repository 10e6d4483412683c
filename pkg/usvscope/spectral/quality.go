package spectral

import (
	"fmt"
	"strings"
)

// Quality selects a preset STFT resolution.
type Quality int

const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
)

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Params returns the FFT size and hop length for the tier.
func (q Quality) Params() (fftSize, hop int, err error) {
	switch q {
	case QualityLow:
		return 512, 256, nil
	case QualityMedium:
		return 1024, 256, nil
	case QualityHigh:
		return 2048, 512, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown quality tier %d", ErrInvalidInput, int(q))
	}
}

// QualityFromString parses "low", "medium" or "high" (case-insensitive).
func QualityFromString(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return QualityLow, nil
	case "medium", "":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	default:
		return 0, fmt.Errorf("%w: unknown quality %q (want low, medium or high)", ErrInvalidInput, s)
	}
}

// MarshalText and UnmarshalText let Quality appear directly in TOML config.
func (q Quality) MarshalText() ([]byte, error) {
	if _, _, err := q.Params(); err != nil {
		return nil, err
	}
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(b []byte) error {
	parsed, err := QualityFromString(string(b))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
