package detect

import "github.com/mousetube/usvscope/pkg/usvscope/spectral"

// Segment is an inclusive frame range of a band power curve.
type Segment struct {
	Start int
	End   int
	Score float64 // mean curve value over [Start, End]
}

// Len returns the number of frames covered.
func (s Segment) Len() int { return s.End - s.Start + 1 }

// FindRuns scans c left to right and returns every maximal run of frames
// strictly above threshold that is at least minLen frames long.
func FindRuns(c spectral.Curve, threshold float64, minLen int) []Segment {
	var runs []Segment
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start+1 >= minLen {
			runs = append(runs, Segment{Start: start, End: end})
		}
		start = -1
	}
	for i, v := range c {
		if v > threshold {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(c) - 1)
	return runs
}
