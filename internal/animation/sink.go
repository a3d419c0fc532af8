// Package animation writes rendered frames to an output file.
//
// The output kind is picked from the path: a .gif file is encoded in
// process, video containers are produced by piping PNG frames to ffmpeg, and
// a path ending in a separator or holding a %d verb becomes a numbered PNG
// sequence. A Sink never leaves partial output behind after Abort.
package animation

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"citymap/internal/types"
)

// MaxFPS bounds the frame rate accepted by Open.
const MaxFPS = 120

// DefaultFFmpeg is the ffmpeg binary looked up on PATH.
const DefaultFFmpeg = "ffmpeg"

// Sink receives frames in order.
type Sink interface {
	// WriteFrame appends one frame.
	WriteFrame(img image.Image) error
	// Close finishes the output. The output is complete only after Close
	// returns nil.
	Close() error
	// Abort discards everything written so far.
	Abort()
}

// Kind names the output format chosen for a path.
type Kind string

const (
	KindGIF      Kind = "gif"
	KindVideo    Kind = "video"
	KindSequence Kind = "sequence"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

var frameVerb = regexp.MustCompile(`%0?\d*d`)

type options struct {
	logger *slog.Logger
	ffmpeg string
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the sink logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFFmpeg overrides the ffmpeg binary used for video output.
func WithFFmpeg(path string) Option {
	return func(o *options) {
		if path != "" {
			o.ffmpeg = path
		}
	}
}

// KindOf reports the output kind for path.
func KindOf(path string) (Kind, error) {
	switch {
	case strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)):
		return KindSequence, nil
	case frameVerb.MatchString(path):
		return KindSequence, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".gif":
		return KindGIF, nil
	case videoExts[ext]:
		return KindVideo, nil
	}
	return "", types.NewAppError(types.ErrCodeRenderOutput,
		fmt.Sprintf("unsupported output %q", path), nil).
		WithDetails(map[string]any{"path": path})
}

// Open creates a Sink for path playing at fps frames per second.
func Open(path string, fps int, opts ...Option) (Sink, error) {
	o := options{logger: slog.Default(), ffmpeg: DefaultFFmpeg}
	for _, opt := range opts {
		opt(&o)
	}
	if fps < 1 || fps > MaxFPS {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("fps %d outside [1, %d]", fps, MaxFPS), nil)
	}

	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("sink_opened", "path", path, "kind", string(kind), "fps", fps)

	switch kind {
	case KindGIF:
		return newGIFSink(path, fps), nil
	case KindVideo:
		return newFFmpegSink(o.ffmpeg, path, fps, o.logger)
	default:
		return newSequenceSink(path)
	}
}

func sinkError(msg string, err error) error {
	return types.NewAppError(types.ErrCodeRenderSink, msg, err)
}
