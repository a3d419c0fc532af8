package animation

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ffmpegSink streams PNG frames into an ffmpeg process reading image2pipe
// from stdin.
type ffmpegSink struct {
	path   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	logger *slog.Logger
	done   bool
}

func newFFmpegSink(bin, path string, fps int, logger *slog.Logger) (*ffmpegSink, error) {
	s := &ffmpegSink{path: path, logger: logger}
	s.cmd = exec.Command(bin,
		"-y",
		"-loglevel", "error",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(fps),
		"-c:v", "png",
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-pix_fmt", "yuv420p",
		path,
	)
	s.cmd.Stderr = &s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, sinkError("cannot open ffmpeg stdin", err)
	}
	s.stdin = stdin
	if err := s.cmd.Start(); err != nil {
		return nil, sinkError(fmt.Sprintf("cannot start %s", bin), err)
	}
	return s, nil
}

func (s *ffmpegSink) WriteFrame(img image.Image) error {
	if err := png.Encode(s.stdin, img); err != nil {
		return sinkError("cannot pipe frame to ffmpeg", err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	s.done = true
	if err := s.stdin.Close(); err != nil {
		s.kill()
		return sinkError("cannot close ffmpeg stdin", err)
	}
	if err := s.cmd.Wait(); err != nil {
		os.Remove(s.path)
		return sinkError(s.failure("ffmpeg failed"), err)
	}
	return nil
}

func (s *ffmpegSink) Abort() {
	if s.done {
		os.Remove(s.path)
		return
	}
	s.done = true
	s.stdin.Close()
	s.kill()
}

func (s *ffmpegSink) kill() {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("partial_output_not_removed", "path", s.path, "error", err)
	}
}

// failure appends ffmpeg's stderr to msg. Only valid after Wait.
func (s *ffmpegSink) failure(msg string) string {
	if out := strings.TrimSpace(s.stderr.String()); out != "" {
		return msg + ": " + out
	}
	return msg
}
