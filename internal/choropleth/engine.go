// Package choropleth shades zip-code polygons by a monthly series and steps
// the shading through time.
//
// An Engine joins the boundary store with one time bin of the series at a
// time. Polygons whose zip has no value in the current bin are drawn in the
// mapper's background color. The engine is single threaded and owns all of
// its figure state.
package choropleth

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"citymap/internal/animation"
	"citymap/internal/colormap"
	"citymap/internal/geo"
	"citymap/internal/layout"
	"citymap/internal/metrics"
	"citymap/internal/timeseries"
	"citymap/internal/types"
)

var validate = validator.New()

// Options configures an Engine.
type Options struct {
	Width    vg.Length `validate:"gte=0"`
	Height   vg.Length `validate:"gte=0"`
	Colorbar bool
	Timeline bool
	// Label is drawn above the colorbar.
	Label string
	// Caption titles the map with the month of the current frame.
	Caption bool
	// Manifest writes a JSON run manifest next to every rendered animation.
	Manifest bool
	// FFmpeg is the binary used for video output.
	FFmpeg string
	// Version is recorded in manifests.
	Version string

	Logger *slog.Logger `validate:"-"`
}

// Engine is the choropleth state machine. The current frame is always a
// valid index into the series.
type Engine struct {
	table  *timeseries.Table
	mapper *colormap.Mapper
	fig    *layout.Figure
	layer  *zipLayer
	labels []time.Time
	frame  int

	caption  bool
	manifest bool
	ffmpeg   string
	version  string
	logger   *slog.Logger

	open func(path string, fps int) (animation.Sink, error)
}

// New builds the figure and shows frame 0.
func New(store *geo.Store, table *timeseries.Table, mapper *colormap.Mapper, opts Options) (*Engine, error) {
	if store == nil || table == nil || mapper == nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption, "store, table and mapper are required", nil)
	}
	if err := validate.Struct(opts); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption, "invalid engine options", err)
	}
	if table.NumFrames() == 0 {
		return nil, types.NewAppError(types.ErrCodeLoadEmpty, "series has no frames", nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fig, err := layout.New(layout.Options{
		Width:    opts.Width,
		Height:   opts.Height,
		Colorbar: opts.Colorbar,
		Timeline: opts.Timeline,
	})
	if err != nil {
		return nil, err
	}

	city, err := cityPolygons(store.City())
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "cannot convert city outline", err)
	}
	fig.Map.Add(city...)

	shapes := store.Shapes()
	layer := &zipLayer{
		polys:  make([]*plotter.Polygon, len(shapes)),
		zips:   make([]int, len(shapes)),
		colors: make([]color.NRGBA, len(shapes)),
	}
	for i, sh := range shapes {
		poly, err := toPlotter(sh.Polygon)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
				fmt.Sprintf("cannot convert zip %d", sh.Zip), err)
		}
		layer.polys[i] = poly
		layer.zips[i] = sh.Zip
	}
	fig.Map.Add(layer)

	b := store.Bounds()
	fig.SetMapExtent(b.Min.X(), b.Max.X(), b.Min.Y(), b.Max.Y())

	fig.SetColorbar(mapper.ColorMap(), opts.Label)

	labels := table.Labels()
	fig.SetTimeRange(labels[0], labels[len(labels)-1])

	e := &Engine{
		table:    table,
		mapper:   mapper,
		fig:      fig,
		layer:    layer,
		labels:   labels,
		caption:  opts.Caption,
		manifest: opts.Manifest,
		ffmpeg:   opts.FFmpeg,
		version:  opts.Version,
		logger:   opts.Logger,
	}
	e.open = func(path string, fps int) (animation.Sink, error) {
		return animation.Open(path, fps, animation.WithLogger(e.logger), animation.WithFFmpeg(e.ffmpeg))
	}
	if err := e.Advance(0); err != nil {
		return nil, err
	}

	var unmatched int
	for _, z := range store.Zipcodes() {
		if _, ok := table.Row(z); !ok {
			unmatched++
		}
	}
	metrics.BoundaryShapes.Set(float64(len(shapes)))
	metrics.SeriesFrames.Set(float64(table.NumFrames()))
	e.logger.Info("engine_initialized",
		"shapes", len(shapes),
		"frames", table.NumFrames(),
		"palette", mapper.Palette(),
		"domain", mapper.DomainKind().String(),
		"zips_without_series", unmatched,
	)
	return e, nil
}

// Advance shades frame i and moves the timeline marker to its label. An
// out of range index returns a range error and leaves the engine untouched.
func (e *Engine) Advance(i int) error {
	n := e.table.NumFrames()
	if i < 0 || i >= n {
		return types.NewRangeError(i, n)
	}

	next := make([]color.NRGBA, len(e.layer.zips))
	var missing int
	for k, zip := range e.layer.zips {
		v := e.table.Value(i, zip)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			missing++
		}
		next[k] = e.mapper.At(v)
	}

	e.layer.colors = next
	e.fig.MoveMarker(e.labels[i])
	if e.caption {
		e.fig.SetCaption(e.labels[i].Format(layout.CaptionLayout))
	}
	e.frame = i

	metrics.MissingValuesTotal.Add(float64(missing))
	e.logger.Debug("frame_advanced", "frame", i, "label", e.labels[i].Format(timeseries.LabelLayout), "missing", missing)
	return nil
}

// JumpTo advances to the frame whose month contains date.
func (e *Engine) JumpTo(date time.Time) error {
	i, err := e.table.FrameOf(date)
	if err != nil {
		return err
	}
	return e.Advance(i)
}

// SetCaption titles the map with the label of frame i without moving the
// current frame.
func (e *Engine) SetCaption(i int) error {
	label, err := e.table.Label(i)
	if err != nil {
		return err
	}
	e.fig.SetCaption(label.Format(layout.CaptionLayout))
	return nil
}

// Highlight outlines every polygon of the given zip codes. An empty call
// clears the highlight.
func (e *Engine) Highlight(zips ...int) {
	if len(zips) == 0 {
		e.layer.highlight = nil
		return
	}
	set := make(map[int]bool, len(zips))
	for _, z := range zips {
		set[z] = true
	}
	e.layer.highlight = set
}

// Highlighted returns the highlighted zip codes, ascending.
func (e *Engine) Highlighted() []int {
	out := make([]int, 0, len(e.layer.highlight))
	for z := range e.layer.highlight {
		out = append(out, z)
	}
	slices.Sort(out)
	return out
}

// Frame returns the current frame index.
func (e *Engine) Frame() int { return e.frame }

// NumFrames returns the number of frames in the series.
func (e *Engine) NumFrames() int { return e.table.NumFrames() }

// Label returns the date of the current frame.
func (e *Engine) Label() time.Time { return e.labels[e.frame] }

// Caption returns the current map title.
func (e *Engine) Caption() string { return e.fig.Caption() }

// Figure exposes the underlying figure for callers that draw extra layers.
func (e *Engine) Figure() *layout.Figure { return e.fig }

// Colors returns a copy of the displayed face color of every shape, in
// boundary file order.
func (e *Engine) Colors() []color.NRGBA { return slices.Clone(e.layer.colors) }

// ColorOf returns the displayed color of zip.
func (e *Engine) ColorOf(zip int) (color.NRGBA, bool) {
	i := slices.Index(e.layer.zips, zip)
	if i < 0 {
		return color.NRGBA{}, false
	}
	return e.layer.colors[i], true
}

// Snapshot rasterizes the current frame.
func (e *Engine) Snapshot(dpi int) (image.Image, error) {
	return e.fig.Rasterize(dpi)
}

// SavePNG writes the current frame to path. A failed write removes the file.
func (e *Engine) SavePNG(path string, dpi int) error {
	f, err := os.Create(path)
	if err != nil {
		return types.NewAppError(types.ErrCodeRenderSink, "cannot create png", err)
	}
	if err := e.fig.WritePNG(f, dpi); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return types.NewAppError(types.ErrCodeRenderSink, "cannot write png", err)
	}
	e.logger.Info("snapshot_saved", "path", path, "frame", e.frame, "dpi", dpi)
	return nil
}
