// Package dynamics derives new monthly tables from an existing one:
// baseline normalization, cross-sectional detrending and smoothed rates of
// change. Every transform returns a new table and leaves its input intact.
//
// Missing values are skipped by the averages and propagate through
// arithmetic, so a zip missing in a frame stays missing in the result.
package dynamics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"citymap/internal/timeseries"
	"citymap/internal/types"
)

// NormalizeByBaseline expresses every value as log2 of its ratio to the
// zip's mean over the first n frames, and drops those n frames.
func NormalizeByBaseline(t *timeseries.Table, n int) (*timeseries.Table, error) {
	frames := t.Frames()
	if n < 1 || n >= len(frames) {
		return nil, invalid("baseline of %d frames needs 1 <= n < %d", n, len(frames))
	}

	ids := t.IDs()
	baseline := make([]float64, len(ids))
	for j := range ids {
		baseline[j] = nanMean(column(frames[:n], j))
	}

	out := frames[n:]
	for _, row := range out {
		for j, v := range row {
			row[j] = math.Log2(v / baseline[j])
		}
	}
	return rebuild(t, n, ids, out)
}

// Detrend subtracts the cross-sectional mean of every frame.
func Detrend(t *timeseries.Table) (*timeseries.Table, error) {
	frames := t.Frames()
	for _, row := range frames {
		trend := nanMean(row)
		floats.AddConst(-trend, row)
	}
	return rebuild(t, 0, t.IDs(), frames)
}

// PeakToPeak returns max minus min of every zip over all frames. A zip with
// no finite values maps to NaN.
func PeakToPeak(t *timeseries.Table) map[int]float64 {
	frames := t.Frames()
	out := make(map[int]float64)
	for j, id := range t.IDs() {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range column(frames, j) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		if math.IsInf(lo, 1) {
			out[id] = math.NaN()
			continue
		}
		out[id] = hi - lo
	}
	return out
}

// Differentiate takes the month over month difference of every zip and
// smooths it with a Savitzky-Golay filter of the given window and
// polynomial order. The first frame has no predecessor and is dropped.
func Differentiate(t *timeseries.Table, window, order int) (*timeseries.Table, error) {
	frames := t.Frames()
	if len(frames) < 2 {
		return nil, invalid("differentiating needs at least 2 frames, have %d", len(frames))
	}
	diffs := make([][]float64, len(frames)-1)
	for i := range diffs {
		row := make([]float64, len(frames[i+1]))
		floats.SubTo(row, frames[i+1], frames[i])
		diffs[i] = row
	}

	ids := t.IDs()
	for j := range ids {
		smoothed, err := SavGol(column(diffs, j), window, order)
		if err != nil {
			return nil, err
		}
		for i, v := range smoothed {
			diffs[i][j] = v
		}
	}
	return rebuild(t, 1, ids, diffs)
}

// rebuild makes a table whose first frame is frame skip of t.
func rebuild(t *timeseries.Table, skip int, ids []int, data [][]float64) (*timeseries.Table, error) {
	first, err := t.Label(skip)
	if err != nil {
		return nil, err
	}
	return timeseries.NewTable(first, ids, data)
}

func column(frames [][]float64, j int) []float64 {
	out := make([]float64, len(frames))
	for i, row := range frames {
		out[i] = row[j]
	}
	return out
}

// nanMean averages the non-NaN values of xs, or returns NaN if there are
// none.
func nanMean(xs []float64) float64 {
	valid := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

func invalid(format string, args ...any) error {
	return types.NewAppError(types.ErrCodeConfigInvalidOption, fmt.Sprintf(format, args...), nil)
}
