// Package colormap converts scalar values into colors for a choropleth.
//
// A Mapper is built once from a palette name, a color domain and a background
// color. Finite values are placed proportionally inside the domain and
// clamped at its edges; NaN and infinite values always map to the
// background, never into the palette.
package colormap

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"

	"citymap/internal/types"
)

// DefaultPalette is used when Options.Palette is empty.
const DefaultPalette = "Blues"

// reverseSuffix selects the reversed form of any named palette.
const reverseSuffix = "_r"

// DomainKind enumerates how the color domain is chosen.
type DomainKind int

const (
	// DomainFixed uses caller-supplied bounds.
	DomainFixed DomainKind = iota
	// DomainDerived uses the global finite min and max of the data.
	DomainDerived
)

func (k DomainKind) String() string {
	if k == DomainDerived {
		return "derived"
	}
	return "fixed"
}

// Domain is the numeric range mapped onto the palette.
type Domain struct {
	Kind   DomainKind
	Lo, Hi float64
}

// Fixed returns a domain with explicit bounds.
func Fixed(lo, hi float64) Domain { return Domain{Kind: DomainFixed, Lo: lo, Hi: hi} }

// Derived returns a domain resolved from the data at construction.
func Derived() Domain { return Domain{Kind: DomainDerived} }

// Ranger reports the finite value range of a data set.
type Ranger interface {
	Range() (lo, hi float64, ok bool)
}

// Options configures New.
type Options struct {
	Palette    string
	Domain     Domain
	Background string
}

// Mapper is an immutable value to color converter.
type Mapper struct {
	name   string
	cmap   palette.ColorMap
	lo, hi float64
	kind   DomainKind
	bg     color.NRGBA
}

// New resolves the domain and palette once. data is only consulted for a
// derived domain and may be nil otherwise.
func New(opts Options, data Ranger) (*Mapper, error) {
	if opts.Palette == "" {
		opts.Palette = DefaultPalette
	}
	bgSpec := opts.Background
	if bgSpec == "" {
		bgSpec = "w"
	}
	bg, err := ParseColor(bgSpec)
	if err != nil {
		return nil, err
	}

	lo, hi := opts.Domain.Lo, opts.Domain.Hi
	if opts.Domain.Kind == DomainDerived {
		if data == nil {
			return nil, types.NewAppError(types.ErrCodeConfigInvalidDomain, "derived domain needs data", nil)
		}
		var ok bool
		lo, hi, ok = data.Range()
		if !ok {
			return nil, types.NewAppError(types.ErrCodeConfigInvalidDomain, "data has no finite values to derive a domain from", nil)
		}
		if lo == hi {
			// A constant series still needs a non-empty range.
			lo, hi = lo-0.5, hi+0.5
		}
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidDomain,
			fmt.Sprintf("domain [%g, %g] is empty or not finite", lo, hi), nil)
	}

	cmap, err := lookup(opts.Palette)
	if err != nil {
		return nil, err
	}
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	return &Mapper{
		name: opts.Palette,
		cmap: cmap,
		lo:   lo,
		hi:   hi,
		kind: opts.Domain.Kind,
		bg:   bg,
	}, nil
}

// At maps one value.
func (m *Mapper) At(v float64) color.NRGBA {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return m.bg
	}
	v = math.Max(m.lo, math.Min(m.hi, v))
	c, err := m.cmap.At(v)
	if err != nil {
		return m.bg
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// Map converts values to colors, one per input.
func (m *Mapper) Map(values []float64) []color.NRGBA {
	out := make([]color.NRGBA, len(values))
	for i, v := range values {
		out[i] = m.At(v)
	}
	return out
}

// Domain returns the resolved bounds.
func (m *Mapper) Domain() (lo, hi float64) { return m.lo, m.hi }

// DomainKind reports how the bounds were chosen.
func (m *Mapper) DomainKind() DomainKind { return m.kind }

// Background returns the color used for missing values.
func (m *Mapper) Background() color.NRGBA { return m.bg }

// Palette returns the palette name.
func (m *Mapper) Palette() string { return m.name }

// ColorMap returns a fresh palette.ColorMap spanning the domain, for
// drawing a colorbar. Mutating it does not affect the Mapper.
func (m *Mapper) ColorMap() palette.ColorMap {
	cmap, err := lookup(m.name)
	if err != nil {
		// The name was validated in New.
		panic(err)
	}
	cmap.SetMin(m.lo)
	cmap.SetMax(m.hi)
	return cmap
}

// Names lists every accepted palette name without the reverse suffix.
func Names() []string {
	var names []string
	for name := range brewer.SequentialPalettes {
		names = append(names, name)
	}
	for name := range brewer.DivergingPalettes {
		names = append(names, name)
	}
	for name := range morelandMaps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var morelandMaps = map[string]func() palette.ColorMap{
	"SmoothBlueRed":      func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"SmoothPurpleOrange": func() palette.ColorMap { return moreland.SmoothPurpleOrange() },
	"SmoothGreenRed":     func() palette.ColorMap { return moreland.SmoothGreenRed() },
	"Kindlmann":          moreland.Kindlmann,
	"BlackBody":          moreland.BlackBody,
	"ExtendedBlackBody":  moreland.ExtendedBlackBody,
}

// lookup builds a new ColorMap for name, honoring the reverse suffix.
func lookup(name string) (palette.ColorMap, error) {
	base, reversed := strings.CutSuffix(name, reverseSuffix)

	if mk, ok := morelandMaps[base]; ok {
		if reversed {
			return mirrored{mk()}, nil
		}
		return mk(), nil
	}
	if p, ok := brewerRamp(base); ok {
		seg := newSegmented(p)
		if reversed {
			slices.Reverse(seg.controls)
		}
		return seg, nil
	}
	return nil, types.NewAppError(types.ErrCodeConfigUnknownPalette,
		fmt.Sprintf("unknown palette %q", name), nil).
		WithDetails(map[string]any{"known": Names()})
}

// brewerRamp returns the longest variant of a sequential or diverging
// ColorBrewer scheme.
func brewerRamp(name string) (palette.Palette, bool) {
	if seq, ok := brewer.SequentialPalettes[name]; ok {
		n := maxKey(seq)
		return seq[n], true
	}
	if div, ok := brewer.DivergingPalettes[name]; ok {
		n := maxKey(div)
		return div[n], true
	}
	return nil, false
}

func maxKey[V any](m map[int]V) int {
	best := 0
	for k := range m {
		best = max(best, k)
	}
	return best
}
