// Package layout owns the figure a choropleth is drawn on.
//
// The canvas is split vertically into a colorbar strip, the map and a
// timeline strip with height ratios 1:25:3. The colorbar occupies the middle
// half of its strip. A region that is switched off gives its space to the
// map. Each region is its own *plot.Plot, reachable through a named field.
package layout

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"citymap/internal/types"
)

// Grid ratios, top to bottom and left to right.
const (
	colorbarRows = 1
	mapRows      = 25
	timelineRows = 3
	totalRows    = colorbarRows + mapRows + timelineRows

	colorbarSideCols   = 1
	colorbarMiddleCols = 2
	totalCols          = 2*colorbarSideCols + colorbarMiddleCols
)

// DefaultSize is the width and height used when Options leaves them zero.
const DefaultSize = 6 * vg.Inch

// CaptionLayout formats a frame label as a map caption.
const CaptionLayout = "Jan-2006"

// YearLayout formats timeline ticks.
const YearLayout = "2006"

// Options configures New.
type Options struct {
	Width, Height vg.Length
	Colorbar      bool
	Timeline      bool
	// Background fills every region and the raster. Nil means white.
	Background color.Color
}

// Figure is the three-region choropleth figure. Map is always present;
// Colorbar and Timeline are nil when disabled.
type Figure struct {
	Map      *plot.Plot
	Colorbar *plot.Plot
	Timeline *plot.Plot

	width, height vg.Length
	bg            color.Color

	extent    [4]float64 // xmin, xmax, ymin, ymax
	hasExtent bool

	marker *plotter.Scatter
}

// New builds an empty figure.
func New(opts Options) (*Figure, error) {
	if opts.Width == 0 {
		opts.Width = DefaultSize
	}
	if opts.Height == 0 {
		opts.Height = DefaultSize
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("figure size %vx%v must be positive", opts.Width, opts.Height), nil)
	}
	if opts.Background == nil {
		opts.Background = color.White
	}

	f := &Figure{width: opts.Width, height: opts.Height, bg: opts.Background}

	f.Map = plot.New()
	f.Map.BackgroundColor = opts.Background
	f.Map.HideAxes()
	f.Map.X.Padding, f.Map.Y.Padding = 0, 0

	if opts.Colorbar {
		f.Colorbar = plot.New()
		f.Colorbar.BackgroundColor = opts.Background
		f.Colorbar.HideAxes()
		f.Colorbar.X.Padding, f.Colorbar.Y.Padding = 0, 0
		f.Colorbar.Title.TextStyle.Font.Size = vg.Points(7)
		f.Colorbar.Title.Padding = vg.Points(1)
	}

	if opts.Timeline {
		f.Timeline = plot.New()
		f.Timeline.BackgroundColor = opts.Background
		f.Timeline.HideY()
		f.Timeline.Y.Min, f.Timeline.Y.Max = 0, 1
		f.Timeline.Y.Padding = 0
		f.Timeline.X.Padding = 0
		f.Timeline.X.Tick.Length = 0
		f.Timeline.X.Tick.Marker = plot.TimeTicks{Ticker: plot.TickerFunc(yearlyTicks), Format: YearLayout}
		f.Timeline.X.Tick.Label.Font.Size = vg.Points(8)
		f.Timeline.X.Tick.Label.Rotation = math.Pi / 4
		f.Timeline.X.Tick.Label.XAlign = draw.XRight
		f.Timeline.X.Tick.Label.YAlign = draw.YTop
	}
	return f, nil
}

// Size returns the figure dimensions.
func (f *Figure) Size() (w, h vg.Length) { return f.width, f.height }

// SetMapExtent fixes the data extent the map keeps in view. Without it the
// extent is taken from the map axes on first draw.
func (f *Figure) SetMapExtent(xmin, xmax, ymin, ymax float64) {
	f.extent = [4]float64{xmin, xmax, ymin, ymax}
	f.hasExtent = true
}

// SetCaption sets the map title. An empty string removes it.
func (f *Figure) SetCaption(text string) { f.Map.Title.Text = text }

// Caption returns the current map title.
func (f *Figure) Caption() string { return f.Map.Title.Text }

// SetColorbar draws cmap across the colorbar strip with label on top. It is
// a no-op when the colorbar is disabled.
func (f *Figure) SetColorbar(cmap palette.ColorMap, label string) {
	if f.Colorbar == nil {
		return
	}
	f.Colorbar.Add(&plotter.ColorBar{ColorMap: cmap})
	f.Colorbar.Title.Text = label
	f.Colorbar.Y.Min, f.Colorbar.Y.Max = 0, 1
}

// SetTimeRange spans the timeline from first to last and places the marker
// at first. It is a no-op when the timeline is disabled.
func (f *Figure) SetTimeRange(first, last time.Time) {
	if f.Timeline == nil {
		return
	}
	lo, hi := unix(first), unix(last)
	if hi <= lo {
		hi = lo + (24 * time.Hour).Seconds()
	}
	if f.marker == nil {
		m, err := plotter.NewScatter(plotter.XYs{{X: lo, Y: 0.5}})
		if err != nil {
			// A single finite point is always accepted.
			panic(err)
		}
		m.GlyphStyle = draw.GlyphStyle{
			Color:  color.Black,
			Radius: vg.Points(3),
			Shape:  draw.CircleGlyph{},
		}
		f.Timeline.Add(m)
		f.marker = m
	}
	f.marker.XYs[0].X = lo
	f.Timeline.X.Min, f.Timeline.X.Max = lo, hi
	f.Timeline.Y.Min, f.Timeline.Y.Max = 0, 1
}

// MoveMarker places the timeline marker at t. The y position never changes.
func (f *Figure) MoveMarker(t time.Time) {
	if f.marker == nil {
		return
	}
	f.marker.XYs[0].X = unix(t)
}

// Marker returns the marker position as a time, and false when there is no
// timeline.
func (f *Figure) Marker() (time.Time, bool) {
	if f.marker == nil {
		return time.Time{}, false
	}
	return plot.UTCUnixTime(f.marker.XYs[0].X), true
}

// Regions splits r into the map, colorbar and timeline rectangles. Disabled
// regions are returned empty.
func (f *Figure) Regions(r vg.Rectangle) (mapR, colorbarR, timelineR vg.Rectangle) {
	row := (r.Max.Y - r.Min.Y) / totalRows
	col := (r.Max.X - r.Min.X) / totalCols

	mapR = r
	if f.Colorbar != nil {
		mapR.Max.Y -= colorbarRows * row
		colorbarR = vg.Rectangle{
			Min: vg.Point{X: r.Min.X + colorbarSideCols*col, Y: r.Max.Y - colorbarRows*row},
			Max: vg.Point{X: r.Max.X - colorbarSideCols*col, Y: r.Max.Y},
		}
	}
	if f.Timeline != nil {
		mapR.Min.Y += timelineRows * row
		timelineR = vg.Rectangle{
			Min: r.Min,
			Max: vg.Point{X: r.Max.X, Y: r.Min.Y + timelineRows*row},
		}
	}
	return mapR, colorbarR, timelineR
}

// Draw renders every region onto c.
func (f *Figure) Draw(c draw.Canvas) {
	mapR, cbR, tlR := f.Regions(c.Rectangle)

	mc := draw.Canvas{Canvas: c.Canvas, Rectangle: mapR}
	f.lockAspect(mc)
	f.Map.Draw(mc)

	if f.Colorbar != nil {
		f.Colorbar.Draw(draw.Canvas{Canvas: c.Canvas, Rectangle: cbR})
	}
	if f.Timeline != nil {
		f.Timeline.Draw(draw.Canvas{Canvas: c.Canvas, Rectangle: tlR})
	}
}

// Rasterize draws the figure into a fresh image at dpi.
func (f *Figure) Rasterize(dpi int) (image.Image, error) {
	c, err := f.canvas(dpi)
	if err != nil {
		return nil, err
	}
	return c.Image(), nil
}

// WritePNG draws the figure at dpi and encodes it to w as PNG.
func (f *Figure) WritePNG(w io.Writer, dpi int) error {
	c, err := f.canvas(dpi)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return types.NewAppError(types.ErrCodeRenderSink, "cannot encode png", err)
	}
	return nil
}

func (f *Figure) canvas(dpi int) (*vgimg.Canvas, error) {
	if dpi <= 0 {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("dpi %d must be positive", dpi), nil)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(f.width, f.height),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(f.bg),
	)
	f.Draw(draw.New(c))
	return c, nil
}

// lockAspect widens one map axis so a data unit has the same length on both
// axes, keeping the extent centered.
func (f *Figure) lockAspect(c draw.Canvas) {
	if !f.hasExtent {
		if math.IsInf(f.Map.X.Min, 0) || math.IsInf(f.Map.Y.Min, 0) {
			return
		}
		f.SetMapExtent(f.Map.X.Min, f.Map.X.Max, f.Map.Y.Min, f.Map.Y.Max)
	}
	xmin, xmax, ymin, ymax := f.extent[0], f.extent[1], f.extent[2], f.extent[3]
	dx, dy := xmax-xmin, ymax-ymin

	dc := f.Map.DataCanvas(c)
	w, h := float64(dc.Max.X-dc.Min.X), float64(dc.Max.Y-dc.Min.Y)
	if w <= 0 || h <= 0 || dx <= 0 || dy <= 0 {
		return
	}
	scale := math.Max(dx/w, dy/h)
	cx, cy := (xmin+xmax)/2, (ymin+ymax)/2
	f.Map.X.Min, f.Map.X.Max = cx-scale*w/2, cx+scale*w/2
	f.Map.Y.Min, f.Map.Y.Max = cy-scale*h/2, cy+scale*h/2
}

// yearlyTicks places a labeled tick on March 1 of every year in range.
func yearlyTicks(min, max float64) []plot.Tick {
	lo, hi := plot.UTCUnixTime(min), plot.UTCUnixTime(max)
	var ticks []plot.Tick
	for y := lo.Year(); y <= hi.Year(); y++ {
		t := time.Date(y, time.March, 1, 0, 0, 0, 0, time.UTC)
		v := unix(t)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: t.Format(YearLayout)})
	}
	return ticks
}

func unix(t time.Time) float64 { return float64(t.Unix()) }
