package colormap

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"citymap/internal/types"
)

var namedColors = map[string]color.NRGBA{
	"w":         {255, 255, 255, 255},
	"white":     {255, 255, 255, 255},
	"k":         {0, 0, 0, 255},
	"black":     {0, 0, 0, 255},
	"r":         {255, 0, 0, 255},
	"red":       {255, 0, 0, 255},
	"g":         {0, 128, 0, 255},
	"green":     {0, 128, 0, 255},
	"b":         {0, 0, 255, 255},
	"blue":      {0, 0, 255, 255},
	"c":         {0, 191, 191, 255},
	"cyan":      {0, 255, 255, 255},
	"m":         {191, 0, 191, 255},
	"magenta":   {255, 0, 255, 255},
	"y":         {191, 191, 0, 255},
	"yellow":    {255, 255, 0, 255},
	"gray":      {128, 128, 128, 255},
	"grey":      {128, 128, 128, 255},
	"lightgray": {211, 211, 211, 255},
	"lightgrey": {211, 211, 211, 255},
	"none":      {0, 0, 0, 0},
}

// ParseColor accepts a color name ("w", "white", "none", ...) or a hex
// string in #rgb, #rrggbb or #rrggbbaa form.
func ParseColor(s string) (color.NRGBA, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[key]; ok {
		return c, nil
	}
	if hex, ok := strings.CutPrefix(key, "#"); ok {
		switch len(hex) {
		case 3:
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
		case 6:
			hex += "ff"
		}
		if len(hex) == 8 {
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
				return color.NRGBA{
					R: uint8(v >> 24),
					G: uint8(v >> 16),
					B: uint8(v >> 8),
					A: uint8(v),
				}, nil
			}
		}
	}
	return color.NRGBA{}, types.NewAppError(types.ErrCodeConfigInvalidColor,
		fmt.Sprintf("cannot parse color %q", s), nil)
}
