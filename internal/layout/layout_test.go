package layout

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"citymap/internal/types"
)

func full() Options {
	return Options{Width: 4 * vg.Inch, Height: 4 * vg.Inch, Colorbar: true, Timeline: true}
}

func rect(x0, y0, x1, y1 vg.Length) vg.Rectangle {
	return vg.Rectangle{Min: vg.Point{X: x0, Y: y0}, Max: vg.Point{X: x1, Y: y1}}
}

func TestRegions(t *testing.T) {
	tests := []struct {
		name         string
		colorbar     bool
		timeline     bool
		wantMap      vg.Rectangle
		wantColorbar vg.Rectangle
		wantTimeline vg.Rectangle
	}{
		{"all", true, true, rect(0, 30, 400, 280), rect(100, 280, 300, 290), rect(0, 0, 400, 30)},
		{"no colorbar", false, true, rect(0, 30, 400, 290), vg.Rectangle{}, rect(0, 0, 400, 30)},
		{"no timeline", true, false, rect(0, 0, 400, 280), rect(100, 280, 300, 290), vg.Rectangle{}},
		{"map only", false, false, rect(0, 0, 400, 290), vg.Rectangle{}, vg.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(Options{Colorbar: tt.colorbar, Timeline: tt.timeline})
			require.NoError(t, err)
			m, cb, tl := f.Regions(rect(0, 0, 400, 290))
			assert.Equal(t, tt.wantMap, m)
			assert.Equal(t, tt.wantColorbar, cb)
			assert.Equal(t, tt.wantTimeline, tl)
		})
	}
}

func TestNewHandles(t *testing.T) {
	f, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, f.Map)
	assert.Nil(t, f.Colorbar)
	assert.Nil(t, f.Timeline)
	w, h := f.Size()
	assert.Equal(t, DefaultSize, w)
	assert.Equal(t, DefaultSize, h)

	f, err = New(full())
	require.NoError(t, err)
	assert.NotNil(t, f.Colorbar)
	assert.NotNil(t, f.Timeline)

	_, err = New(Options{Width: -1})
	assert.Equal(t, types.ErrCodeConfigInvalidOption, types.CodeOf(err))
}

// TestAspectLock verifies a 2x1 extent on a square map keeps one data unit
// the same length on both axes, and that redrawing does not drift.
func TestAspectLock(t *testing.T) {
	f, err := New(Options{Width: 6 * vg.Inch, Height: 6 * vg.Inch})
	require.NoError(t, err)
	f.SetMapExtent(0, 2, 0, 1)

	for range 2 {
		_, err = f.Rasterize(72)
		require.NoError(t, err)
		assert.InDelta(t, 0, f.Map.X.Min, 1e-9)
		assert.InDelta(t, 2, f.Map.X.Max, 1e-9)
		assert.InDelta(t, -0.5, f.Map.Y.Min, 1e-9)
		assert.InDelta(t, 1.5, f.Map.Y.Max, 1e-9)
	}
}

func TestAspectLockFromAxes(t *testing.T) {
	f, err := New(Options{Width: 6 * vg.Inch, Height: 3 * vg.Inch})
	require.NoError(t, err)
	poly, err := plotter.NewPolygon(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}})
	require.NoError(t, err)
	f.Map.Add(poly)

	_, err = f.Rasterize(72)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, f.Map.X.Min, 1e-9)
	assert.InDelta(t, 1.5, f.Map.X.Max, 1e-9)
	assert.InDelta(t, 0, f.Map.Y.Min, 1e-9)
	assert.InDelta(t, 1, f.Map.Y.Max, 1e-9)
}

func TestYearlyTicks(t *testing.T) {
	f, err := New(full())
	require.NoError(t, err)
	first := time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC)
	last := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
	f.SetTimeRange(first, last)

	ticks := f.Timeline.X.Tick.Marker.Ticks(f.Timeline.X.Min, f.Timeline.X.Max)
	var labels []string
	for _, tk := range ticks {
		labels = append(labels, tk.Label)
		assert.Equal(t, time.March, time.Unix(int64(tk.Value), 0).UTC().Month())
	}
	assert.Equal(t, []string{"2019", "2020", "2021"}, labels)
}

func TestMarker(t *testing.T) {
	f, err := New(full())
	require.NoError(t, err)
	_, ok := f.Marker()
	assert.False(t, ok)

	first := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	last := time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC)
	f.SetTimeRange(first, last)
	got, ok := f.Marker()
	require.True(t, ok)
	assert.Equal(t, first, got)

	f.MoveMarker(last)
	got, _ = f.Marker()
	assert.Equal(t, last, got)

	// A second SetTimeRange reuses the marker.
	f.SetTimeRange(first, last)
	got, _ = f.Marker()
	assert.Equal(t, first, got)
}

func TestDisabledRegionsIgnoreSetters(t *testing.T) {
	f, err := New(Options{})
	require.NoError(t, err)
	f.SetColorbar(moreland.SmoothBlueRed(), "label")
	f.SetTimeRange(time.Now(), time.Now())
	f.MoveMarker(time.Now())
	_, ok := f.Marker()
	assert.False(t, ok)
}

func TestRasterize(t *testing.T) {
	f, err := New(Options{Width: 4 * vg.Inch, Height: 4 * vg.Inch, Colorbar: true, Timeline: true, Background: color.Black})
	require.NoError(t, err)
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(0)
	cmap.SetMax(5)
	f.SetColorbar(cmap, "rate")
	f.SetTimeRange(time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC))
	f.SetCaption("Jan-2019")
	assert.Equal(t, "Jan-2019", f.Caption())

	img, err := f.Rasterize(75)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	var buf bytes.Buffer
	require.NoError(t, f.WritePNG(&buf, 50))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())

	_, err = f.Rasterize(0)
	assert.Equal(t, types.ErrCodeConfigInvalidOption, types.CodeOf(err))
}
