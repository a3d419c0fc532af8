package animation

import (
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"os"
	"path/filepath"
)

// gifSink buffers quantized frames and encodes them on Close, so the file
// only appears once the animation is complete.
type gifSink struct {
	path  string
	delay int
	anim  gif.GIF
}

func newGIFSink(path string, fps int) *gifSink {
	return &gifSink{
		path:  path,
		delay: max(1, int(math.Round(100/float64(fps)))),
	}
}

// quantize maps img onto the Plan9 palette with Floyd-Steinberg dithering.
func quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	dst := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(dst, b, img, b.Min)
	return dst
}

func (s *gifSink) WriteFrame(img image.Image) error {
	s.anim.Image = append(s.anim.Image, quantize(img))
	s.anim.Delay = append(s.anim.Delay, s.delay)
	return nil
}

func (s *gifSink) Close() error {
	if len(s.anim.Image) == 0 {
		return sinkError("no frames written", nil)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".citymap-*.gif")
	if err != nil {
		return sinkError("cannot create gif", err)
	}
	if err := gif.EncodeAll(tmp, &s.anim); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return sinkError("cannot encode gif", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return sinkError("cannot write gif", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return sinkError("cannot move gif into place", err)
	}
	s.anim = gif.GIF{}
	return nil
}

func (s *gifSink) Abort() {
	s.anim = gif.GIF{}
}
