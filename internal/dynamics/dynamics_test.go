package dynamics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citymap/internal/timeseries"
	"citymap/internal/types"
)

var (
	jan2020 = time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	nan     = math.NaN()
)

func table(t *testing.T, data ...[]float64) *timeseries.Table {
	t.Helper()
	tbl, err := timeseries.NewTable(jan2020, []int{60601, 60602}, data)
	require.NoError(t, err)
	return tbl
}

func label(t *testing.T, tbl *timeseries.Table, i int) time.Time {
	t.Helper()
	l, err := tbl.Label(i)
	require.NoError(t, err)
	return l
}

func TestNormalizeByBaseline(t *testing.T) {
	in := table(t,
		[]float64{2, 4},
		[]float64{2, 4},
		[]float64{4, 4},
		[]float64{8, 2},
	)

	out, err := NormalizeByBaseline(in, 2)
	require.NoError(t, err)
	require.Equal(t, 2, out.NumFrames())
	assert.Equal(t, label(t, in, 2), label(t, out, 0))

	assert.InDelta(t, 1.0, out.Value(0, 60601), 1e-12)
	assert.InDelta(t, 0.0, out.Value(0, 60602), 1e-12)
	assert.InDelta(t, 2.0, out.Value(1, 60601), 1e-12)
	assert.InDelta(t, -1.0, out.Value(1, 60602), 1e-12)

	assert.Equal(t, 2.0, in.Value(0, 60601), "input untouched")
}

func TestNormalizeSkipsMissingBaseline(t *testing.T) {
	in := table(t,
		[]float64{nan, 4},
		[]float64{2, 4},
		[]float64{4, nan},
	)
	out, err := NormalizeByBaseline(in, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.Value(0, 60601), 1e-12)
	assert.True(t, math.IsNaN(out.Value(0, 60602)))
}

func TestNormalizeBounds(t *testing.T) {
	in := table(t, []float64{1, 1}, []float64{1, 1})
	for _, n := range []int{0, 2, 5} {
		_, err := NormalizeByBaseline(in, n)
		assert.Equal(t, types.ErrCodeConfigInvalidOption, types.CodeOf(err), "n=%d", n)
	}
}

func TestDetrend(t *testing.T) {
	in := table(t,
		[]float64{1, 3},
		[]float64{nan, 5},
	)
	out, err := Detrend(in)
	require.NoError(t, err)
	assert.Equal(t, label(t, in, 0), label(t, out, 0))
	assert.Equal(t, -1.0, out.Value(0, 60601))
	assert.Equal(t, 1.0, out.Value(0, 60602))
	assert.True(t, math.IsNaN(out.Value(1, 60601)))
	assert.Equal(t, 0.0, out.Value(1, 60602))
}

func TestPeakToPeak(t *testing.T) {
	in := table(t,
		[]float64{1, nan},
		[]float64{-2, nan},
		[]float64{5, nan},
	)
	got := PeakToPeak(in)
	assert.Equal(t, 7.0, got[60601])
	assert.True(t, math.IsNaN(got[60602]))
}

func TestDifferentiate(t *testing.T) {
	in := table(t,
		[]float64{0, 0},
		[]float64{2, 1},
		[]float64{4, 4},
		[]float64{6, 9},
		[]float64{8, 16},
	)
	out, err := Differentiate(in, 3, 1)
	require.NoError(t, err)
	require.Equal(t, 4, out.NumFrames())
	assert.Equal(t, label(t, in, 1), label(t, out, 0))

	linear, _ := out.Row(60601)
	assert.InDeltaSlice(t, []float64{2, 2, 2, 2}, linear, 1e-9)
	quadratic, _ := out.Row(60602)
	assert.InDeltaSlice(t, []float64{1, 3, 5, 7}, quadratic, 1e-9)
}

func TestDifferentiateErrors(t *testing.T) {
	short := table(t, []float64{1, 1}, []float64{2, 2}, []float64{3, 3})
	_, err := Differentiate(short, 3, 1)
	assert.Equal(t, types.ErrCodeConfigInvalidOption, types.CodeOf(err), "two diffs cannot fill a window of three")

	single := table(t, []float64{1, 1})
	_, err = Differentiate(single, 1, 0)
	assert.Equal(t, types.ErrCodeConfigInvalidOption, types.CodeOf(err))
}

func TestSavGol(t *testing.T) {
	tests := []struct {
		name          string
		ys            []float64
		window, order int
		want          []float64
	}{
		{"linear is preserved", []float64{0, 1, 2, 3, 4}, 3, 1, []float64{0, 1, 2, 3, 4}},
		{"quadratic is preserved", []float64{0, 1, 4, 9, 16, 25}, 5, 2, []float64{0, 1, 4, 9, 16, 25}},
		{"order zero is a moving mean", []float64{0, 3, 6, 9}, 3, 0, []float64{3, 3, 6, 6}},
		{"window of one is identity", []float64{5, -1, 2}, 1, 0, []float64{5, -1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SavGol(tt.ys, tt.window, tt.order)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestSavGolMissing(t *testing.T) {
	got, err := SavGol([]float64{1, nan, 3, 4, 5}, 3, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(got[i]), "index %d", i)
	}
	assert.InDelta(t, 4.0, got[3], 1e-9)
	assert.InDelta(t, 5.0, got[4], 1e-9)
}

func TestSavGolValidation(t *testing.T) {
	ys := []float64{1, 2, 3, 4}
	for _, args := range [][2]int{{2, 1}, {0, 0}, {3, 3}, {3, -1}, {5, 1}} {
		_, err := SavGol(ys, args[0], args[1])
		assert.Equal(t, types.ErrCodeConfigInvalidOption, types.CodeOf(err), "window=%d order=%d", args[0], args[1])
	}
}
