package timeseries

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citymap/internal/types"
)

var nan = math.NaN()

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// scenarioTable is the three zip, three month series used across packages.
func scenarioTable(t *testing.T) *Table {
	t.Helper()
	raw, err := NewRaw(
		[]time.Time{day(2020, 1, 31), day(2020, 2, 29), day(2020, 3, 31)},
		[]int{60601, 60602, 60603},
		[][]float64{
			{1, nan, 5},
			{2, 1, 5},
			{3, 2, 5},
		},
	)
	require.NoError(t, err)
	tbl, err := Resample(raw)
	require.NoError(t, err)
	return tbl
}

func TestResampleScenario(t *testing.T) {
	tbl := scenarioTable(t)

	require.Equal(t, 3, tbl.NumFrames())
	assert.Equal(t, []int{60601, 60602, 60603}, tbl.IDs())
	assert.Equal(t, []time.Time{day(2020, 1, 31), day(2020, 2, 29), day(2020, 3, 31)}, tbl.Labels())

	col, err := tbl.Column(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, col[60601])
	assert.True(t, math.IsNaN(col[60602]), "leading gap must stay missing")
	assert.Equal(t, 5.0, col[60603])

	assert.Equal(t, 2.0, tbl.Value(2, 60602))
	assert.True(t, math.IsNaN(tbl.Value(0, 99999)))
	assert.True(t, math.IsNaN(tbl.Value(3, 60601)))
}

// TestResampleFillsInteriorGaps checks month binning, averaging and
// interpolation on an irregular, unordered input.
func TestResampleFillsInteriorGaps(t *testing.T) {
	raw, err := NewRaw(
		[]time.Time{
			day(2019, 5, 20), // out of order on purpose
			day(2019, 1, 3),
			day(2019, 1, 28),
			day(2019, 2, 14),
		},
		[]int{60614, 60622},
		[][]float64{
			{40, 9},
			{10, nan},
			{20, nan},
			{nan, 3},
		},
	)
	require.NoError(t, err)

	tbl, err := Resample(raw)
	require.NoError(t, err)

	// Jan through May.
	require.Equal(t, 5, tbl.NumFrames())
	first, err := tbl.Label(0)
	require.NoError(t, err)
	assert.Equal(t, day(2019, 1, 31), first)

	a, _ := tbl.Row(60614)
	// Jan is the mean of 10 and 20; Feb..Apr interpolate towards May's 40.
	assert.InDeltaSlice(t, []float64{15, 21.25, 27.5, 33.75, 40}, a, 1e-9)

	b, _ := tbl.Row(60622)
	assert.True(t, math.IsNaN(b[0]))
	assert.InDeltaSlice(t, []float64{3, 5, 7, 9}, b[1:], 1e-9)
}

// TestResampleMonotonicity verifies k monthly observations yield at least k
// frames and no missing value inside a covered span.
func TestResampleMonotonicity(t *testing.T) {
	var times []time.Time
	var values [][]float64
	for m := 1; m <= 12; m += 3 {
		times = append(times, day(2018, time.Month(m), 15))
		values = append(values, []float64{float64(m)})
	}
	raw, err := NewRaw(times, []int{60601}, values)
	require.NoError(t, err)

	tbl, err := Resample(raw)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tbl.NumFrames(), raw.Len())
	row, _ := tbl.Row(60601)
	for i, v := range row {
		assert.False(t, math.IsNaN(v), "frame %d is missing", i)
	}
}

func TestResampleTrailingGapStaysMissing(t *testing.T) {
	raw, err := NewRaw(
		[]time.Time{day(2020, 1, 1), day(2020, 3, 1)},
		[]int{1, 2},
		[][]float64{{1, 1}, {nan, 3}},
	)
	require.NoError(t, err)
	tbl, err := Resample(raw)
	require.NoError(t, err)

	row, _ := tbl.Row(1)
	assert.Equal(t, 1.0, row[0])
	assert.True(t, math.IsNaN(row[1]))
	assert.True(t, math.IsNaN(row[2]))
}

func TestResampleEmpty(t *testing.T) {
	raw, err := NewRaw(nil, []int{1}, nil)
	require.NoError(t, err)
	_, err = Resample(raw)
	assert.Equal(t, types.ErrCodeLoadEmpty, types.CodeOf(err))
}

func TestNewRawValidation(t *testing.T) {
	_, err := NewRaw([]time.Time{day(2020, 1, 1)}, []int{1, 1}, [][]float64{{1, 2}})
	assert.Error(t, err)

	_, err = NewRaw([]time.Time{day(2020, 1, 1)}, []int{1}, [][]float64{{1, 2}})
	assert.Error(t, err)

	_, err = NewRaw([]time.Time{day(2020, 1, 1), day(2020, 2, 1)}, []int{1}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestFrameOf(t *testing.T) {
	tbl := scenarioTable(t)

	tests := []struct {
		date time.Time
		want int
	}{
		{day(2020, 1, 31), 0},
		{day(2020, 1, 1), 0},
		{day(2020, 2, 29), 1},
		{time.Date(2020, 3, 15, 13, 0, 0, 0, time.UTC), 2},
	}
	for _, tt := range tests {
		got, err := tbl.FrameOf(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "FrameOf(%s)", tt.date)
	}

	for _, d := range []time.Time{day(2019, 12, 31), day(2020, 4, 1)} {
		_, err := tbl.FrameOf(d)
		assert.True(t, types.IsLookupError(err), "FrameOf(%s) = %v", d, err)
	}
}

// TestLabelRoundTrip verifies every label resolves back to its own frame.
func TestLabelRoundTrip(t *testing.T) {
	tbl := scenarioTable(t)
	for i, l := range tbl.Labels() {
		got, err := tbl.FrameOf(l)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
}

func TestColumnAndLabelRangeErrors(t *testing.T) {
	tbl := scenarioTable(t)
	for _, i := range []int{-1, 3} {
		_, err := tbl.Column(i)
		assert.True(t, types.IsRangeError(err))
		_, err = tbl.Label(i)
		assert.True(t, types.IsRangeError(err))
	}
}

func TestRange(t *testing.T) {
	lo, hi, ok := scenarioTable(t).Range()
	require.True(t, ok)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 5.0, hi)

	empty, err := NewTable(day(2020, 1, 1), []int{1}, [][]float64{{nan}, {math.Inf(1)}})
	require.NoError(t, err)
	_, _, ok = empty.Range()
	assert.False(t, ok)
}

func TestNewTableSortsIdentifiers(t *testing.T) {
	tbl, err := NewTable(day(2020, 1, 1), []int{60603, 60601}, [][]float64{{3, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{60601, 60603}, tbl.IDs())
	assert.Equal(t, 1.0, tbl.Value(0, 60601))
	assert.Equal(t, 3.0, tbl.Value(0, 60603))
}

// TestFramesIsCopy verifies the table stays frozen.
func TestFramesIsCopy(t *testing.T) {
	tbl := scenarioTable(t)
	frames := tbl.Frames()
	frames[0][0] = 100
	assert.Equal(t, 1.0, tbl.Value(0, 60601))
}

func TestInterpolate(t *testing.T) {
	xs := []float64{nan, 0, nan, nan, 3, nan}
	Interpolate(xs)
	assert.True(t, math.IsNaN(xs[0]))
	assert.InDeltaSlice(t, []float64{0, 1, 2, 3}, xs[1:5], 1e-12)
	assert.True(t, math.IsNaN(xs[5]))
}

func TestReadCSV(t *testing.T) {
	in := `date,60601,60602-1234,label,60603
2020-01-31,1,,x,5
2020-02-29,2,1,y,5
2020-03-31,3,2,z,NaN
`
	raw, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Len())
	assert.Equal(t, []int{60601, 60602, 60603}, raw.IDs())

	tbl, err := Resample(raw)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(tbl.Value(0, 60602)))
	assert.True(t, math.IsNaN(tbl.Value(2, 60603)))
	assert.Equal(t, 2.0, tbl.Value(2, 60602))
}

func TestReadCSVCustomDateColumn(t *testing.T) {
	in := "month,60601\n01/15/2021,4\n03/15/2021,8\n"
	raw, err := ReadCSV(strings.NewReader(in), CSVOptions{DateColumn: "month", DateLayout: "01/02/2006"})
	require.NoError(t, err)
	tbl, err := Resample(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumFrames())
	assert.Equal(t, 6.0, tbl.Value(1, 60601))
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no date column", "when,60601\n2020-01-31,1\n"},
		{"bad date", "date,60601\nyesterday,1\n"},
		{"no zip columns", "date,name\n2020-01-31,x\n"},
		{"header only", "date,60601\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), CSVOptions{})
			assert.Error(t, err)
		})
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := scenarioTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, CSVOptions{}))
	assert.True(t, strings.HasPrefix(buf.String(), "date,60601,60602,60603\n2020-01-31,1,,5\n"), buf.String())

	raw, err := ReadCSV(&buf, CSVOptions{})
	require.NoError(t, err)
	back, err := Resample(raw)
	require.NoError(t, err)
	assert.Equal(t, tbl.Labels(), back.Labels())
	assert.Equal(t, tbl.IDs(), back.IDs())
	for i := 0; i < tbl.NumFrames(); i++ {
		for _, id := range tbl.IDs() {
			want, got := tbl.Value(i, id), back.Value(i, id)
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(got))
				continue
			}
			assert.Equal(t, want, got)
		}
	}
}
