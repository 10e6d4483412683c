package detect

import "github.com/mousetube/usvscope/pkg/usvscope/spectral"

// window returns the inclusive index range of a centred filter of the given
// size around i. Even sizes lean left, as in scipy.ndimage.
func window(i, size int) (lo, hi int) {
	left := size / 2
	return i - left, i + size - 1 - left
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// MaxFilter returns the sliding maximum of c over size frames, centred, with
// edge samples replicated past both ends.
func MaxFilter(c spectral.Curve, size int) spectral.Curve {
	if size < 1 {
		size = 1
	}
	n := len(c)
	out := make(spectral.Curve, n)
	for i := range c {
		lo, hi := window(i, size)
		best := c[clamp(lo, n)]
		for j := lo + 1; j <= hi; j++ {
			if v := c[clamp(j, n)]; v > best {
				best = v
			}
		}
		out[i] = best
	}
	return out
}

// MeanFilter returns the sliding mean of c over size frames with the same
// alignment and edge handling as MaxFilter.
func MeanFilter(c spectral.Curve, size int) spectral.Curve {
	if size < 1 {
		size = 1
	}
	n := len(c)
	out := make(spectral.Curve, n)
	for i := range c {
		lo, hi := window(i, size)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += c[clamp(j, n)]
		}
		out[i] = sum / float64(size)
	}
	return out
}
