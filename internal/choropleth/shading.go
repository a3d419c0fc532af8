package choropleth

import (
	"image/color"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	zipEdge = draw.LineStyle{
		Color: color.Gray{Y: 96},
		Width: vg.Points(0.25),
	}
	highlightEdge = draw.LineStyle{
		Color: color.Black,
		Width: vg.Points(1.5),
	}
	cityEdge = draw.LineStyle{
		Color: color.Black,
		Width: vg.Points(0.5),
	}
)

// zipLayer draws every zip polygon with its face color. The colors slice is
// replaced wholesale on each frame, never edited in place, so a draw always
// sees one complete frame.
type zipLayer struct {
	polys     []*plotter.Polygon
	zips      []int
	colors    []color.NRGBA
	highlight map[int]bool
}

var (
	_ plot.Plotter    = (*zipLayer)(nil)
	_ plot.DataRanger = (*zipLayer)(nil)
)

// Plot implements plot.Plotter. Highlighted outlines go last so neighbours
// never paint over them.
func (l *zipLayer) Plot(c draw.Canvas, p *plot.Plot) {
	colors := l.colors
	for pass := 0; pass < 2; pass++ {
		for i, poly := range l.polys {
			lit := l.highlight[l.zips[i]]
			if lit != (pass == 1) {
				continue
			}
			poly.Color = colors[i]
			poly.LineStyle = zipEdge
			if lit {
				poly.LineStyle = highlightEdge
			}
			poly.Plot(c, p)
		}
	}
}

// DataRange implements plot.DataRanger.
func (l *zipLayer) DataRange() (xmin, xmax, ymin, ymax float64) {
	return unionRange(l.polys)
}

func unionRange(polys []*plotter.Polygon) (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, p := range polys {
		x0, x1, y0, y1 := p.DataRange()
		xmin, xmax = math.Min(xmin, x0), math.Max(xmax, x1)
		ymin, ymax = math.Min(ymin, y0), math.Max(ymax, y1)
	}
	return xmin, xmax, ymin, ymax
}

// toPlotter converts an orb polygon, outer ring first then holes, into a
// gonum polygon.
func toPlotter(p orb.Polygon) (*plotter.Polygon, error) {
	rings := make([]plotter.XYer, len(p))
	for i, r := range p {
		xys := make(plotter.XYs, len(r))
		for j, pt := range r {
			xys[j] = plotter.XY{X: pt.X(), Y: pt.Y()}
		}
		rings[i] = xys
	}
	return plotter.NewPolygon(rings...)
}

// cityPolygons builds the white filled city outline drawn beneath the zips.
func cityPolygons(city []orb.Polygon) ([]plot.Plotter, error) {
	out := make([]plot.Plotter, 0, len(city))
	for _, c := range city {
		poly, err := toPlotter(c)
		if err != nil {
			return nil, err
		}
		poly.Color = color.White
		poly.LineStyle = cityEdge
		out = append(out, poly)
	}
	return out, nil
}
