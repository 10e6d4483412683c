// Package render draws calibrated spectrogram images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	DefaultWidthInches  = 10.0
	DefaultHeightInches = 4.0
	DefaultDPI          = 100
	DefaultMaxColumns   = 2048
	paletteSize         = 256
)

// Params controls one rendering. Zero values for the sizing fields select
// the defaults above.
type Params struct {
	Name       string // shown in the title
	FFTSize    int
	Hop        int
	FreqMin    float64
	FreqMax    float64
	TimeOffset float64 // seconds added to every x-axis label

	WidthInches  float64
	HeightInches float64
	DPI          int
	MaxColumns   int
}

// Artifact is an encoded image and the x-axis offset it was drawn with.
type Artifact struct {
	Image      []byte
	Format     string
	TimeOffset float64
	Duration   float64 // seconds covered by the x axis
	Width      int     // pixels
	Height     int     // pixels
}

// RenderError reports a failure while drawing or encoding an image.
type RenderError struct {
	Name string
	Op   string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %s: %v", e.Name, e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (p Params) withDefaults() Params {
	if p.WidthInches <= 0 {
		p.WidthInches = DefaultWidthInches
	}
	if p.HeightInches <= 0 {
		p.HeightInches = DefaultHeightInches
	}
	if p.DPI <= 0 {
		p.DPI = DefaultDPI
	}
	if p.MaxColumns <= 0 {
		p.MaxColumns = DefaultMaxColumns
	}
	return p
}

// Spectrogram recomputes the transform of w and draws the [FreqMin, FreqMax]
// band as a PNG heat map with a dB colour bar.
func Spectrogram(w spectral.Waveform, p Params) (*Artifact, error) {
	p = p.withDefaults()
	if p.FreqMin > p.FreqMax {
		return nil, fmt.Errorf("%w: freq min %.0f exceeds freq max %.0f", spectral.ErrInvalidInput, p.FreqMin, p.FreqMax)
	}

	m, err := spectral.Transform(w, p.FFTSize, p.Hop)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := spectral.BandBins(w.SampleRate(), p.FFTSize, p.FreqMin, p.FreqMax)
	if !ok {
		return nil, fmt.Errorf("%w: [%.0f, %.0f] Hz at %d Hz", spectral.ErrBandOutOfRange, p.FreqMin, p.FreqMax, w.SampleRate())
	}

	t0 := p.TimeOffset
	t1 := p.TimeOffset + w.Duration()
	grid := newBandGrid(m, w.SampleRate(), lo, hi, p.MaxColumns, t0, t1)

	canvas, err := draw2D(grid, p, t0, t1)
	if err != nil {
		return nil, &RenderError{Name: p.Name, Op: "draw", Err: err}
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, &RenderError{Name: p.Name, Op: "encode", Err: err}
	}

	bounds := canvas.Image().Bounds()
	return &Artifact{
		Image:      buf.Bytes(),
		Format:     "png",
		TimeOffset: p.TimeOffset,
		Duration:   w.Duration(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}, nil
}

// draw2D lays out the heat map and the colour bar side by side. gonum/plot
// reports bad configurations by panicking; those become errors here.
func draw2D(grid *bandGrid, p Params, t0, t1 float64) (canvas *vgimg.Canvas, err error) {
	defer func() {
		if r := recover(); r != nil {
			canvas = nil
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("%v", v)
			}
		}
	}()

	cmap := moreland.ExtendedBlackBody()
	cmap.SetMin(-spectral.DefaultTopDB)
	cmap.SetMax(0)
	pal := cmap.Palette(paletteSize)

	sp := plot.New()
	sp.Title.Text = "Spectrogram - " + p.Name
	sp.X.Label.Text = "Time (s)"
	sp.Y.Label.Text = "Frequency (kHz)"
	sp.X.Padding = 0
	sp.Y.Padding = 0
	sp.Y.Tick.Marker = kiloHertzTicks{}

	heat := plotter.NewHeatMap(grid, pal)
	heat.Min = -spectral.DefaultTopDB
	heat.Max = 0
	heat.Rasterized = true
	heat.Underflow = pal.Colors()[0]
	heat.Overflow = pal.Colors()[len(pal.Colors())-1]
	heat.NaN = color.Black
	sp.Add(rasterOnly{heat})
	sp.X.Min, sp.X.Max = t0, t1
	// Bins are drawn where they are: the axis ends at Nyquist for
	// recordings that cannot reach FreqMax.
	sp.Y.Min, sp.Y.Max = grid.FreqRange()
	if sp.X.Min == sp.X.Max {
		sp.X.Max = sp.X.Min + 1
	}
	if sp.Y.Min == sp.Y.Max {
		sp.Y.Max = sp.Y.Min + 1
	}

	bar := plot.New()
	bar.Title.Text = " "
	bar.Title.TextStyle = sp.Title.TextStyle
	bar.X.Label.Text = " "
	bar.X.Tick.Marker = plot.ConstantTicks{{Value: 0.5, Label: " "}}
	bar.X.Padding = 0
	bar.Y.Padding = 0
	bar.Y.Tick.Marker = decibelTicks{}
	bar.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true})
	bar.Y.Min, bar.Y.Max = cmap.Min(), cmap.Max()

	canvas = vgimg.NewWith(
		vgimg.UseWH(vg.Length(p.WidthInches)*vg.Inch, vg.Length(p.HeightInches)*vg.Inch),
		vgimg.UseDPI(p.DPI),
	)
	dc := draw.New(canvas)
	barWidth := vg.Length(p.WidthInches) * vg.Inch / 9
	sp.Draw(draw.Crop(dc, 0, -barWidth, 0, 0))
	bar.Draw(draw.Crop(dc, dc.Max.X-dc.Min.X-barWidth+vg.Points(6), 0, 0, 0))
	return canvas, nil
}

// rasterOnly hides HeatMap.GlyphBoxes, which allocates one box per cell
// and would dominate the cost of drawing a long recording.
type rasterOnly struct{ h *plotter.HeatMap }

func (r rasterOnly) Plot(c draw.Canvas, p *plot.Plot) { r.h.Plot(c, p) }

func (r rasterOnly) DataRange() (xmin, xmax, ymin, ymax float64) { return r.h.DataRange() }

type kiloHertzTicks struct{}

func (kiloHertzTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = fmt.Sprintf("%g", ticks[i].Value/1000)
		}
	}
	return ticks
}

type decibelTicks struct{}

func (decibelTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = fmt.Sprintf("%+.0f dB", ticks[i].Value)
		}
	}
	return ticks
}

// IsRenderError reports whether err came from drawing or encoding.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}
