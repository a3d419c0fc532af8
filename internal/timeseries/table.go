// Package timeseries turns irregular per-zipcode observations into a frozen
// table of calendar-month frames.
//
// A Table is indexed by frame (one month-end bin) and by identifier (a zip
// code). Column(i) is the transposed view used by the choropleth engine: one
// time bin across every identifier.
package timeseries

import (
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"citymap/internal/types"
)

// LabelLayout formats frame labels in errors and logs.
const LabelLayout = "2006-01-02"

// Table is an immutable month-binned series. Rows are frames in chronological
// order, columns are identifiers in ascending order.
type Table struct {
	firstMonth int
	ids        []int
	index      map[int]int
	data       [][]float64
}

// monthIndex numbers calendar months so consecutive months differ by one.
func monthIndex(t time.Time) int {
	t = t.UTC()
	return t.Year()*12 + int(t.Month()) - 1
}

// monthEnd returns the label of the bin with the given month index: the last
// day of that month at midnight UTC.
func monthEnd(m int) time.Time {
	year, month := m/12, time.Month(m%12+1)
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// NewTable builds a table from frames that are already monthly. first is any
// instant inside the month of frame 0; data[i][j] is the value of ids[j] in
// frame i.
func NewTable(first time.Time, ids []int, data [][]float64) (*Table, error) {
	if len(data) == 0 {
		return nil, types.NewAppError(types.ErrCodeLoadEmpty, "table has no frames", nil)
	}
	t := &Table{
		firstMonth: monthIndex(first),
		ids:        slices.Clone(ids),
		index:      make(map[int]int, len(ids)),
		data:       make([][]float64, len(data)),
	}
	for j, id := range ids {
		if _, dup := t.index[id]; dup {
			return nil, types.NewAppError(types.ErrCodeLoadMalformed, fmt.Sprintf("duplicate identifier %d", id), nil)
		}
		t.index[id] = j
	}
	if !slices.IsSorted(t.ids) {
		order := slices.Clone(t.ids)
		slices.Sort(order)
		for i, row := range data {
			if len(row) != len(ids) {
				return nil, rowWidthError(i, len(row), len(ids))
			}
			sorted := make([]float64, len(ids))
			for k, id := range order {
				sorted[k] = row[t.index[id]]
			}
			t.data[i] = sorted
		}
		t.ids = order
		for j, id := range order {
			t.index[id] = j
		}
		return t, nil
	}
	for i, row := range data {
		if len(row) != len(ids) {
			return nil, rowWidthError(i, len(row), len(ids))
		}
		t.data[i] = slices.Clone(row)
	}
	return t, nil
}

func rowWidthError(i, got, want int) error {
	return types.NewAppError(types.ErrCodeLoadMalformed,
		fmt.Sprintf("frame %d has %d values, want %d", i, got, want), nil)
}

// NumFrames returns the number of monthly bins.
func (t *Table) NumFrames() int { return len(t.data) }

// IDs returns the identifiers, ascending.
func (t *Table) IDs() []int { return slices.Clone(t.ids) }

// Label returns the month-end label of frame i.
func (t *Table) Label(i int) (time.Time, error) {
	if i < 0 || i >= len(t.data) {
		return time.Time{}, types.NewRangeError(i, len(t.data))
	}
	return monthEnd(t.firstMonth + i), nil
}

// Labels returns every frame label in order.
func (t *Table) Labels() []time.Time {
	out := make([]time.Time, len(t.data))
	for i := range out {
		out[i] = monthEnd(t.firstMonth + i)
	}
	return out
}

// Value returns the value of id in frame i, or NaN when either is unknown.
func (t *Table) Value(i, id int) float64 {
	j, ok := t.index[id]
	if !ok || i < 0 || i >= len(t.data) {
		return math.NaN()
	}
	return t.data[i][j]
}

// Column returns one time bin across every identifier.
func (t *Table) Column(i int) (map[int]float64, error) {
	if i < 0 || i >= len(t.data) {
		return nil, types.NewRangeError(i, len(t.data))
	}
	out := make(map[int]float64, len(t.ids))
	for j, id := range t.ids {
		out[id] = t.data[i][j]
	}
	return out, nil
}

// Row returns the series of one identifier across every frame.
func (t *Table) Row(id int) ([]float64, bool) {
	j, ok := t.index[id]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.data))
	for i := range t.data {
		out[i] = t.data[i][j]
	}
	return out, true
}

// Frames returns a copy of the underlying frame-major matrix.
func (t *Table) Frames() [][]float64 {
	out := make([][]float64, len(t.data))
	for i, row := range t.data {
		out[i] = slices.Clone(row)
	}
	return out
}

// FrameOf returns the frame whose calendar month contains date.
func (t *Table) FrameOf(date time.Time) (int, error) {
	i := monthIndex(date) - t.firstMonth
	if i < 0 || i >= len(t.data) {
		return 0, types.NewLookupError(
			date.Format(LabelLayout),
			monthEnd(t.firstMonth).Format(LabelLayout),
			monthEnd(t.firstMonth+len(t.data)-1).Format(LabelLayout),
		)
	}
	return i, nil
}

// Range returns the global finite minimum and maximum. ok is false when the
// table holds no finite value.
func (t *Table) Range() (lo, hi float64, ok bool) {
	var finite []float64
	for _, row := range t.data {
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
	}
	if len(finite) == 0 {
		return 0, 0, false
	}
	return floats.Min(finite), floats.Max(finite), true
}
