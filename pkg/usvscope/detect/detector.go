package detect

import (
	"math"
	"sort"

	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinEventSeconds is both the minimum peak separation and the minimum
	// run length of a detectable event.
	MinEventSeconds = 0.03
	// MinPeakWidth is the minimum width at half prominence, in frames.
	MinPeakWidth = 2.0
)

// Result is the outcome of one detection pass. When Found is false the
// timing fields are zero.
type Result struct {
	Found       bool
	Segment     Segment
	StartTime   float64 // seconds
	EndTime     float64 // seconds
	MeanPowerDB float64

	ThresholdDB float64
	Peaks       []int
	Candidates  int // runs long enough to be considered
	Validated   int // runs containing at least one peak
}

// MinFrames converts MinEventSeconds to frames, never less than one.
func MinFrames(sampleRate, hop int) int {
	if sampleRate <= 0 || hop <= 0 {
		return 1
	}
	n := int(math.RoundToEven(MinEventSeconds * float64(sampleRate) / float64(hop)))
	if n < 1 {
		return 1
	}
	return n
}

// FrameTime converts a frame index to seconds.
func FrameTime(frame, sampleRate, hop int) float64 {
	return float64(frame) * float64(hop) / float64(sampleRate)
}

// Detect finds the most salient above-threshold run in a smoothed band power
// curve. A run counts only if a peak lies inside it; among those the highest
// mean wins and ties go to the earliest run.
func Detect(c spectral.Curve, thresholdDB float64, sampleRate, hop int) Result {
	res := Result{ThresholdDB: thresholdDB}
	if len(c) == 0 || sampleRate <= 0 || hop <= 0 {
		return res
	}

	minFrames := MinFrames(sampleRate, hop)
	res.Peaks = FindPeaks(c, PeakParams{
		Height:   thresholdDB,
		Distance: minFrames,
		MinWidth: MinPeakWidth,
	})
	runs := FindRuns(c, thresholdDB, minFrames)
	res.Candidates = len(runs)

	bestScore := math.Inf(-1)
	for _, seg := range runs {
		if !containsPeak(res.Peaks, seg) {
			continue
		}
		res.Validated++
		seg.Score = stat.Mean(c[seg.Start:seg.End+1], nil)
		if seg.Score > bestScore {
			bestScore = seg.Score
			res.Segment = seg
			res.Found = true
		}
	}

	if res.Found {
		res.StartTime = FrameTime(res.Segment.Start, sampleRate, hop)
		res.EndTime = FrameTime(res.Segment.End, sampleRate, hop)
		res.MeanPowerDB = res.Segment.Score
	}
	return res
}

// containsPeak reports whether any of the ascending peaks lies in seg.
func containsPeak(peaks []int, seg Segment) bool {
	i := sort.SearchInts(peaks, seg.Start)
	return i < len(peaks) && peaks[i] <= seg.End
}
