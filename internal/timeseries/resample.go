package timeseries

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"citymap/internal/types"
)

// Raw is an irregular input series: one row per timestamp, one column per
// identifier. NaN marks a missing observation. Timestamps may repeat and
// need not be ordered.
type Raw struct {
	times  []time.Time
	ids    []int
	values [][]float64
}

// NewRaw validates the shape of the input. values[r][c] belongs to times[r]
// and ids[c].
func NewRaw(times []time.Time, ids []int, values [][]float64) (*Raw, error) {
	if len(times) != len(values) {
		return nil, types.NewAppError(types.ErrCodeLoadMalformed,
			fmt.Sprintf("%d timestamps for %d rows", len(times), len(values)), nil)
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, types.NewAppError(types.ErrCodeLoadMalformed, fmt.Sprintf("duplicate identifier %d", id), nil)
		}
		seen[id] = struct{}{}
	}
	for r, row := range values {
		if len(row) != len(ids) {
			return nil, types.NewAppError(types.ErrCodeLoadMalformed,
				fmt.Sprintf("row %d has %d values, want %d", r, len(row), len(ids)), nil)
		}
	}
	return &Raw{
		times:  slices.Clone(times),
		ids:    slices.Clone(ids),
		values: values,
	}, nil
}

// Len returns the number of input rows.
func (r *Raw) Len() int { return len(r.times) }

// IDs returns the identifiers in input order.
func (r *Raw) IDs() []int { return slices.Clone(r.ids) }

// Resample bins the raw series into calendar months spanning the earliest to
// the latest timestamp. A bin's value is the mean of its non-NaN
// observations. Interior empty bins are filled by linear interpolation
// between the nearest valid bins of the same identifier; leading and
// trailing gaps stay NaN.
func Resample(raw *Raw) (*Table, error) {
	if raw == nil || len(raw.times) == 0 {
		return nil, types.NewAppError(types.ErrCodeLoadEmpty, "no observations to resample", errors.New("empty series"))
	}

	first, last := monthIndex(raw.times[0]), monthIndex(raw.times[0])
	for _, ts := range raw.times[1:] {
		m := monthIndex(ts)
		first = min(first, m)
		last = max(last, m)
	}
	n := last - first + 1

	// samples[bin][col] collects the observations falling in each month.
	samples := make([][][]float64, n)
	for i := range samples {
		samples[i] = make([][]float64, len(raw.ids))
	}
	for r, ts := range raw.times {
		bin := monthIndex(ts) - first
		for c, v := range raw.values[r] {
			if math.IsNaN(v) {
				continue
			}
			samples[bin][c] = append(samples[bin][c], v)
		}
	}

	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, len(raw.ids))
		for c, obs := range samples[i] {
			if len(obs) == 0 {
				data[i][c] = math.NaN()
				continue
			}
			data[i][c] = stat.Mean(obs, nil)
		}
	}

	col := make([]float64, n)
	for c := range raw.ids {
		for i := range data {
			col[i] = data[i][c]
		}
		Interpolate(col)
		for i := range data {
			data[i][c] = col[i]
		}
	}

	return NewTable(monthEnd(first), raw.ids, data)
}

// Interpolate fills interior NaN runs of xs in place by linear interpolation
// over positions. Leading and trailing NaNs are left untouched.
func Interpolate(xs []float64) {
	prev := -1
	for i, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			lo, hi := xs[prev], v
			span := float64(i - prev)
			for k := prev + 1; k < i; k++ {
				frac := float64(k-prev) / span
				xs[k] = lo + (hi-lo)*frac
			}
		}
		prev = i
	}
}
