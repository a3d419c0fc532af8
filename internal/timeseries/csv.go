package timeseries

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"citymap/internal/types"
)

// CSVOptions describes a wide series CSV: one date column plus one column per
// zip code.
type CSVOptions struct {
	DateColumn string
	DateLayout string
}

// DefaultCSVOptions matches the files written by WriteCSV.
var DefaultCSVOptions = CSVOptions{DateColumn: "date", DateLayout: LabelLayout}

// nanCells are the spellings read as a missing observation.
var nanCells = []string{"", "NA", "NaN", "nan", "<nil>"}

// ReadCSV loads a wide series CSV into a Raw series. Headers other than the
// date column are normalized to zip codes; columns without a five-digit zip
// in their header are skipped.
func ReadCSV(r io.Reader, opts CSVOptions) (*Raw, error) {
	if opts.DateColumn == "" {
		opts.DateColumn = DefaultCSVOptions.DateColumn
	}
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultCSVOptions.DateLayout
	}

	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.WithTypes(map[string]series.Type{opts.DateColumn: series.String}),
		dataframe.NaNValues(nanCells),
	)
	if df.Err != nil {
		return nil, types.NewAppError(types.ErrCodeLoadMalformed, "cannot parse series csv", df.Err)
	}

	names := df.Names()
	dateIdx := -1
	for i, name := range names {
		if name == opts.DateColumn {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, types.NewAppError(types.ErrCodeLoadMalformed,
			fmt.Sprintf("series csv has no %q column", opts.DateColumn), nil)
	}

	dates := df.Col(opts.DateColumn).Records()
	times := make([]time.Time, len(dates))
	for i, s := range dates {
		ts, err := time.Parse(opts.DateLayout, strings.TrimSpace(s))
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeLoadMalformed,
				fmt.Sprintf("row %d: bad date %q", i+1, s), err)
		}
		times[i] = ts
	}

	var ids []int
	var cols [][]float64
	for i, name := range names {
		if i == dateIdx {
			continue
		}
		zip, ok := types.ParseZip(name)
		if !ok {
			continue
		}
		ids = append(ids, zip)
		cols = append(cols, df.Col(name).Float())
	}
	if len(ids) == 0 {
		return nil, types.NewAppError(types.ErrCodeLoadEmpty, "series csv has no zip code columns", nil)
	}

	values := make([][]float64, len(times))
	for r := range values {
		values[r] = make([]float64, len(ids))
		for c := range ids {
			values[r][c] = cols[c][r]
		}
	}
	return NewRaw(times, ids, values)
}

// WriteCSV writes t as a wide CSV readable by ReadCSV. Missing values are
// written as empty cells.
func WriteCSV(w io.Writer, t *Table, opts CSVOptions) error {
	if opts.DateColumn == "" {
		opts.DateColumn = DefaultCSVOptions.DateColumn
	}
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultCSVOptions.DateLayout
	}

	labels := t.Labels()
	dates := make([]string, len(labels))
	for i, l := range labels {
		dates[i] = l.Format(opts.DateLayout)
	}
	cols := []series.Series{series.New(dates, series.String, opts.DateColumn)}
	for j, id := range t.ids {
		cells := make([]string, len(t.data))
		for i := range t.data {
			cells[i] = formatCell(t.data[i][j])
		}
		cols = append(cols, series.New(cells, series.String, strconv.Itoa(id)))
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
