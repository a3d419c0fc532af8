// Package geo loads the static boundary sets a choropleth is drawn from: the
// city outline and its zip-code subdivisions.
//
// Geometries are decoded with orb's geojson package. Only Polygon and
// MultiPolygon geometries are accepted; a MultiPolygon zip area becomes one
// Shape per part, all tagged with the same zip code. The first ring of every
// polygon is the outer ring and the remaining rings are holes.
package geo

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"citymap/internal/types"
)

// DefaultZipProperty is the feature property holding the zip code.
const DefaultZipProperty = "zip"

// Shape is one zip-tagged polygon.
type Shape struct {
	Zip     int
	Polygon orb.Polygon
}

// Store holds the immutable boundary sets.
type Store struct {
	city   []orb.Polygon
	shapes []Shape
	zips   []int
	bound  orb.Bound
}

type options struct {
	zipProperty string
	logger      *slog.Logger
}

// Option configures Load.
type Option func(*options)

// WithZipProperty sets the property name that holds the zip code.
func WithZipProperty(name string) Option {
	return func(o *options) { o.zipProperty = name }
}

// WithLogger sets the logger used to report load statistics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Load reads the city outline from cityPath and the zip subdivisions from
// zipPath. Files may be plain, gzip or zstd compressed GeoJSON holding a
// FeatureCollection or a single Feature.
//
// Every failure is returned as a load error; no partially built store is
// ever returned.
func Load(cityPath, zipPath string, opts ...Option) (*Store, error) {
	o := options{zipProperty: DefaultZipProperty, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cityFeatures, err := readFeatures(cityPath)
	if err != nil {
		return nil, err
	}
	var city []orb.Polygon
	for i, f := range cityFeatures {
		polys, err := polygonsOf(f.Geometry)
		if err != nil {
			return nil, types.NewLoadError(types.ErrCodeLoadUnsupportedGeom, cityPath,
				fmt.Errorf("feature %d: %w", i, err))
		}
		city = append(city, polys...)
	}
	if len(city) == 0 {
		return nil, types.NewLoadError(types.ErrCodeLoadEmpty, cityPath, errors.New("no polygons"))
	}

	zipFeatures, err := readFeatures(zipPath)
	if err != nil {
		return nil, err
	}
	var shapes []Shape
	for i, f := range zipFeatures {
		zip, ok := zipOf(f.Properties[o.zipProperty])
		if !ok {
			return nil, types.NewLoadError(types.ErrCodeLoadInvalidZip, zipPath,
				fmt.Errorf("feature %d: property %q = %v is not a zip code", i, o.zipProperty, f.Properties[o.zipProperty]))
		}
		polys, err := polygonsOf(f.Geometry)
		if err != nil {
			return nil, types.NewLoadError(types.ErrCodeLoadUnsupportedGeom, zipPath,
				fmt.Errorf("feature %d (zip %d): %w", i, zip, err))
		}
		for _, p := range polys {
			shapes = append(shapes, Shape{Zip: zip, Polygon: p})
		}
	}
	if len(shapes) == 0 {
		return nil, types.NewLoadError(types.ErrCodeLoadEmpty, zipPath, errors.New("no zip polygons"))
	}

	s := &Store{city: city, shapes: shapes}
	s.bound = city[0].Bound()
	for _, p := range city[1:] {
		s.bound = s.bound.Union(p.Bound())
	}
	for _, sh := range shapes {
		s.bound = s.bound.Union(sh.Polygon.Bound())
		s.zips = append(s.zips, sh.Zip)
	}
	slices.Sort(s.zips)
	s.zips = slices.Compact(s.zips)

	o.logger.Info("boundaries_loaded",
		"city_polygons", len(city),
		"zip_shapes", len(shapes),
		"zipcodes", len(s.zips),
	)
	return s, nil
}

// Zipcodes returns the unique zip codes present, ascending.
func (s *Store) Zipcodes() []int {
	return slices.Clone(s.zips)
}

// Shapes returns a deep copy of the zip polygons in file order.
func (s *Store) Shapes() []Shape {
	out := make([]Shape, len(s.shapes))
	for i, sh := range s.shapes {
		out[i] = Shape{Zip: sh.Zip, Polygon: sh.Polygon.Clone()}
	}
	return out
}

// City returns a deep copy of the city outline polygons.
func (s *Store) City() []orb.Polygon {
	out := make([]orb.Polygon, len(s.city))
	for i, p := range s.city {
		out[i] = p.Clone()
	}
	return out
}

// Bounds is the bounding box of every loaded polygon.
func (s *Store) Bounds() orb.Bound {
	return s.bound
}

// ZipAt returns the zip code whose polygon contains the point (lon, lat).
func (s *Store) ZipAt(lon, lat float64) (int, bool) {
	pt := orb.Point{lon, lat}
	for _, sh := range s.shapes {
		if !sh.Polygon.Bound().Contains(pt) {
			continue
		}
		if planar.PolygonContains(sh.Polygon, pt) {
			return sh.Zip, true
		}
	}
	return 0, false
}

func polygonsOf(g orb.Geometry) ([]orb.Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, errors.New("empty polygon")
		}
		return []orb.Polygon{v}, nil
	case orb.MultiPolygon:
		out := make([]orb.Polygon, 0, len(v))
		for _, p := range v {
			if len(p) > 0 {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, errors.New("empty multipolygon")
		}
		return out, nil
	case nil:
		return nil, errors.New("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}
}

// zipOf normalizes a zip property that may be a JSON number or a string.
func zipOf(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x <= 0 || x != math.Trunc(x) || x > 99999 {
			return 0, false
		}
		return int(x), true
	case string:
		return types.ParseZip(x)
	default:
		return 0, false
	}
}

// isNotExist reports whether err came from a missing file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
