package render

import (
	"math"

	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

// bandGrid adapts the band rows of a spectrogram to plotter.GridXYZ.
// Columns are max-pooled down to at most maxCols so a long recording does
// not produce a raster wider than the output image can show. Row r is
// centred on the frequency of bin lo+r; rows are one bin wide, so the grid
// spans FreqRange rather than the requested band when the band reaches past
// Nyquist.
type bandGrid struct {
	cols, rows int
	z          []float64 // column-major, rows per column
	t0, dt     float64
	f0, df     float64
}

func newBandGrid(m *spectral.Matrix, sampleRate, lo, hi, maxCols int, t0, t1 float64) *bandGrid {
	frames := m.Frames()
	rows := hi - lo + 1
	cols := frames
	if maxCols > 0 && cols > maxCols {
		cols = maxCols
	}

	res := float64(sampleRate) / float64(m.FFTSize())

	z := make([]float64, cols*rows)
	for c := 0; c < cols; c++ {
		first := c * frames / cols
		last := (c+1)*frames/cols - 1
		if last < first {
			last = first
		}
		col := z[c*rows : (c+1)*rows]
		for r := range col {
			col[r] = math.Inf(-1)
		}
		for f := first; f <= last; f++ {
			frame := m.Frame(f)
			for r := range col {
				if v := frame[lo+r]; v > col[r] {
					col[r] = v
				}
			}
		}
	}

	return &bandGrid{
		cols: cols,
		rows: rows,
		z:    z,
		t0:   t0,
		dt:   (t1 - t0) / float64(cols),
		f0:   spectral.BinFrequency(lo, sampleRate, m.FFTSize()) - res/2,
		df:   res,
	}
}

// FreqRange returns the frequencies covered by the rows, in Hz.
func (g *bandGrid) FreqRange() (lo, hi float64) {
	return g.f0, g.f0 + g.df*float64(g.rows)
}

// Dims never reports fewer than two cells per axis: plotter.HeatMap sizes a
// lone cell as one data unit, which would overflow the axes.
func (g *bandGrid) Dims() (c, r int) {
	return max(g.cols, 2), max(g.rows, 2)
}

func (g *bandGrid) Z(c, r int) float64 {
	c = min(c, g.cols-1)
	r = min(r, g.rows-1)
	return g.z[c*g.rows+r]
}

func (g *bandGrid) X(c int) float64 {
	cols, _ := g.Dims()
	return g.t0 + (float64(c)+0.5)*g.dt*float64(g.cols)/float64(cols)
}

func (g *bandGrid) Y(r int) float64 {
	_, rows := g.Dims()
	return g.f0 + (float64(r)+0.5)*g.df*float64(g.rows)/float64(rows)
}
