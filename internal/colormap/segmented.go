package colormap

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
)

// segmented is a palette.ColorMap that interpolates linearly in sRGB between
// evenly spaced control colors, so a value at fraction t of the range lands
// exactly at fraction t along the control ramp.
type segmented struct {
	controls []color.NRGBA
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*segmented)(nil)

func newSegmented(p palette.Palette) *segmented {
	cs := p.Colors()
	s := &segmented{controls: make([]color.NRGBA, len(cs)), max: 1, alpha: 1}
	for i, c := range cs {
		s.controls[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}
	return s
}

// At implements palette.ColorMap.
func (s *segmented) At(v float64) (color.Color, error) {
	if s.max <= s.min {
		return nil, fmt.Errorf("colormap: max (%g) must exceed min (%g)", s.max, s.min)
	}
	if v < s.min || v > s.max || math.IsNaN(v) {
		return nil, fmt.Errorf("colormap: value %g outside [%g, %g]", v, s.min, s.max)
	}
	t := (v - s.min) / (s.max - s.min)
	pos := t * float64(len(s.controls)-1)
	i := int(math.Floor(pos))
	if i >= len(s.controls)-1 {
		return s.withAlpha(s.controls[len(s.controls)-1]), nil
	}
	frac := pos - float64(i)
	a, b := s.controls[i], s.controls[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*frac))
	}
	return s.withAlpha(color.NRGBA{
		R: lerp(a.R, b.R),
		G: lerp(a.G, b.G),
		B: lerp(a.B, b.B),
		A: lerp(a.A, b.A),
	}), nil
}

func (s *segmented) withAlpha(c color.NRGBA) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * s.alpha))
	return c
}

func (s *segmented) Max() float64     { return s.max }
func (s *segmented) SetMax(v float64) { s.max = v }
func (s *segmented) Min() float64     { return s.min }
func (s *segmented) SetMin(v float64) { s.min = v }
func (s *segmented) Alpha() float64   { return s.alpha }

// SetAlpha panics when alpha is outside [0, 1], as palette.ColorMap requires.
func (s *segmented) SetAlpha(alpha float64) {
	if alpha < 0 || alpha > 1 {
		panic(fmt.Sprintf("colormap: alpha %g outside [0, 1]", alpha))
	}
	s.alpha = alpha
}

// Palette samples n evenly spaced colors across the range.
func (s *segmented) Palette(n int) palette.Palette {
	out := make(colors, n)
	for i := range out {
		v := s.min
		if n > 1 {
			v = s.min + (s.max-s.min)*float64(i)/float64(n-1)
		}
		c, err := s.At(v)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}

type colors []color.Color

func (c colors) Colors() []color.Color { return c }

// mirrored flips a ColorMap across its range. The mirrored value is clamped
// so rounding at the range ends never turns into an out-of-range error.
type mirrored struct {
	palette.ColorMap
}

func (m mirrored) At(v float64) (color.Color, error) {
	lo, hi := m.Min(), m.Max()
	if v < lo || v > hi || math.IsNaN(v) {
		return nil, fmt.Errorf("colormap: value %g outside [%g, %g]", v, lo, hi)
	}
	w := math.Max(lo, math.Min(hi, hi-(v-lo)))
	return m.ColorMap.At(w)
}

func (m mirrored) Palette(n int) palette.Palette {
	cs := m.ColorMap.Palette(n).Colors()
	out := make(colors, len(cs))
	for i, c := range cs {
		out[len(cs)-1-i] = c
	}
	return out
}
