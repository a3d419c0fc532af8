package choropleth

import (
	"time"

	"citymap/internal/animation"
	"citymap/internal/metrics"
	"citymap/internal/timeseries"
	"citymap/internal/types"
)

type renderArgs struct {
	FPS int `validate:"min=1,max=120"`
	DPI int `validate:"gt=0"`
}

// Render writes every frame, in order, to path at fps frames per second.
// Any failure aborts the sink so no gapped or partial output is left. On
// success the engine rests on the last frame.
func (e *Engine) Render(path string, fps, dpi int) (err error) {
	if verr := validate.Struct(renderArgs{FPS: fps, DPI: dpi}); verr != nil {
		return types.NewAppError(types.ErrCodeConfigInvalidOption, "invalid render options", verr)
	}

	start := time.Now()
	defer func() {
		status := metrics.StatusOK
		if err != nil {
			status = metrics.StatusFailed
		}
		metrics.RendersTotal.WithLabelValues(status).Inc()
		metrics.RenderDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	sink, err := e.open(path, fps)
	if err != nil {
		return err
	}

	n := e.NumFrames()
	for i := 0; i < n; i++ {
		t0 := time.Now()
		if err := e.Advance(i); err != nil {
			sink.Abort()
			return err
		}
		img, err := e.fig.Rasterize(dpi)
		if err != nil {
			sink.Abort()
			return types.NewAppError(types.ErrCodeRenderFrame, "cannot rasterize frame", err).
				WithDetails(map[string]any{"frame": i})
		}
		if err := sink.WriteFrame(img); err != nil {
			sink.Abort()
			e.logger.Error("render_aborted", "path", path, "frame", i, "error", err)
			return types.NewAppError(types.ErrCodeRenderFrame, "cannot write frame", err).
				WithDetails(map[string]any{"frame": i})
		}
		metrics.FramesRenderedTotal.Inc()
		metrics.FrameDurationSeconds.Observe(time.Since(t0).Seconds())
	}
	if err := sink.Close(); err != nil {
		sink.Abort()
		e.logger.Error("render_aborted", "path", path, "error", err)
		return err
	}

	elapsed := time.Since(start)
	if e.manifest {
		if err := e.writeManifest(path, fps, dpi, start, elapsed); err != nil {
			return err
		}
	}
	e.logger.Info("render_completed",
		"path", path,
		"frames", n,
		"fps", fps,
		"dpi", dpi,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (e *Engine) writeManifest(path string, fps, dpi int, start time.Time, elapsed time.Duration) error {
	m := animation.NewManifest(path)
	m.Frames = make([]string, len(e.labels))
	for i, l := range e.labels {
		m.Frames[i] = l.Format(timeseries.LabelLayout)
	}
	m.Palette = e.mapper.Palette()
	m.Domain = e.mapper.DomainKind().String()
	m.DomainMin, m.DomainMax = e.mapper.Domain()
	m.FPS, m.DPI = fps, dpi
	m.Version = e.version
	m.StartedAt = start.UTC()
	m.Elapsed = elapsed.Seconds()
	if err := m.Write(); err != nil {
		return err
	}
	e.logger.Info("manifest_written", "path", animation.ManifestPath(path), "run_id", m.RunID)
	return nil
}
