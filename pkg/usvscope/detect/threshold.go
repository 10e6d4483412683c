package detect

import (
	"fmt"
	"math"

	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
	"gonum.org/v1/gonum/stat"
)

const (
	MaxFilterSize  = 15
	MeanFilterSize = 5
	// ThresholdSigmas is how many standard deviations above the mean of the
	// smoothed curve a frame must reach to count as signal.
	ThresholdSigmas = 2.0
)

// Threshold smooths the band power curve (max filter, then mean filter) and
// returns it with a global threshold of mean + 2·stddev, using population
// statistics over the whole smoothed curve.
func Threshold(c spectral.Curve) (spectral.Curve, float64, error) {
	if len(c) == 0 {
		return nil, 0, fmt.Errorf("%w: empty band power curve", spectral.ErrInvalidInput)
	}

	smoothed := MeanFilter(MaxFilter(c, MaxFilterSize), MeanFilterSize)

	mean, variance := stat.PopMeanVariance(smoothed, nil)
	// Summation residue can leave a flat curve with a variance of -1e-30.
	std := math.Sqrt(math.Max(variance, 0))
	return smoothed, mean + ThresholdSigmas*std, nil
}
