package detect

import (
	"math"
	"sort"
)

// PeakParams constrains FindPeaks. Zero values disable the corresponding
// filter, except Height which is always applied.
type PeakParams struct {
	Height   float64 // minimum peak value
	Distance int     // minimum separation between kept peaks, in samples
	MinWidth float64 // minimum width at half prominence, in samples
}

// Peak describes one local maximum that survived every filter.
type Peak struct {
	Index      int
	Value      float64
	Prominence float64
	Width      float64
	LeftBase   int
	RightBase  int
}

// FindPeaks returns the indices of local maxima in x that satisfy p, in
// ascending order. Flat tops count once at their midpoint and the first and
// last samples are never peaks.
func FindPeaks(x []float64, p PeakParams) []int {
	found := FindPeaksDetailed(x, p)
	idx := make([]int, len(found))
	for i, pk := range found {
		idx[i] = pk.Index
	}
	return idx
}

// FindPeaksDetailed is FindPeaks with the prominence and width of every
// kept peak. Filters run in order: height, distance, width.
func FindPeaksDetailed(x []float64, p PeakParams) []Peak {
	peaks := localMaxima(x)

	kept := peaks[:0]
	for _, i := range peaks {
		if x[i] >= p.Height {
			kept = append(kept, i)
		}
	}
	peaks = kept

	if p.Distance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(x, peaks, p.Distance)
	}

	out := make([]Peak, 0, len(peaks))
	for _, i := range peaks {
		prom, lb, rb := prominence(x, i)
		w := widthAt(x, i, prom, lb, rb, 0.5)
		if w < p.MinWidth {
			continue
		}
		out = append(out, Peak{
			Index:      i,
			Value:      x[i],
			Prominence: prom,
			Width:      w,
			LeftBase:   lb,
			RightBase:  rb,
		})
	}
	return out
}

func localMaxima(x []float64) []int {
	var peaks []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			left, right := i, ahead-1
			peaks = append(peaks, (left+right)/2)
			i = ahead
		}
	}
	return peaks
}

// selectByDistance walks peaks from highest to lowest and drops every
// neighbour closer than distance to a peak that is still kept.
func selectByDistance(x []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, pk := range peaks {
		if keep[i] {
			out = append(out, pk)
		}
	}
	return out
}

// prominence measures how far peak stands above the higher of the lowest
// points reached on either side before a higher sample is met.
func prominence(x []float64, peak int) (prom float64, leftBase, rightBase int) {
	h := x[peak]

	leftMin := h
	leftBase = peak
	for i := peak; i >= 0 && x[i] <= h; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
			leftBase = i
		}
	}

	rightMin := h
	rightBase = peak
	for i := peak; i < len(x) && x[i] <= h; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
			rightBase = i
		}
	}

	return h - math.Max(leftMin, rightMin), leftBase, rightBase
}

// widthAt returns the interpolated width of the peak at relHeight of its
// prominence, bounded by the prominence bases.
func widthAt(x []float64, peak int, prom float64, leftBase, rightBase int, relHeight float64) float64 {
	height := x[peak] - prom*relHeight

	i := peak
	for leftBase < i && height < x[i] {
		i--
	}
	left := float64(i)
	if x[i] < height {
		left += (height - x[i]) / (x[i+1] - x[i])
	}

	i = peak
	for i < rightBase && height < x[i] {
		i++
	}
	right := float64(i)
	if x[i] < height {
		right -= (height - x[i]) / (x[i-1] - x[i])
	}

	return right - left
}
