package animation

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// sequenceFile names frames written into a directory output.
const sequenceFile = "frame_%04d.png"

// sequenceSink writes one PNG per frame.
type sequenceSink struct {
	pattern string
	written []string
}

func newSequenceSink(path string) (*sequenceSink, error) {
	pattern := path
	if !frameVerb.MatchString(path) {
		pattern = filepath.Join(path, sequenceFile)
	}
	if err := os.MkdirAll(filepath.Dir(pattern), 0o755); err != nil {
		return nil, sinkError("cannot create frame directory", err)
	}
	return &sequenceSink{pattern: pattern}, nil
}

func (s *sequenceSink) WriteFrame(img image.Image) error {
	name := fmt.Sprintf(s.pattern, len(s.written))
	f, err := os.Create(name)
	if err != nil {
		return sinkError("cannot create frame", err)
	}
	s.written = append(s.written, name)
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return sinkError("cannot encode frame", err)
	}
	if err := f.Close(); err != nil {
		return sinkError("cannot write frame", err)
	}
	return nil
}

func (s *sequenceSink) Close() error { return nil }

func (s *sequenceSink) Abort() {
	for _, name := range s.written {
		os.Remove(name)
	}
	s.written = nil
}

