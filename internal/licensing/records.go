// Package licensing turns the City of Chicago business license export into
// per-zip count series that the choropleth engine can animate.
//
// Each license row is a Record with a term interval. Records are grouped
// into locations (one account at one site) and counted per month with one
// of the interval selectors.
package licensing

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"citymap/internal/types"
)

// DateLayout is the date format used by every date column of the export.
const DateLayout = "01/02/2006"

// Column names of the license export.
const (
	ColID              = "ID"
	ColLicenseID       = "LICENSE ID"
	ColAccount         = "ACCOUNT NUMBER"
	ColSite            = "SITE NUMBER"
	ColZip             = "ZIP CODE"
	ColCode            = "LICENSE CODE"
	ColActivityID      = "BUSINESS ACTIVITY ID"
	ColApplicationType = "APPLICATION TYPE"
	ColTermStart       = "LICENSE TERM START DATE"
	ColTermEnd         = "LICENSE TERM EXPIRATION DATE"
	ColIssued          = "DATE ISSUED"
	ColStatus          = "LICENSE STATUS"
	ColStatusChange    = "LICENSE STATUS CHANGE DATE"
)

var requiredColumns = []string{ColAccount, ColSite, ColZip, ColCode, ColTermStart, ColTermEnd, ColIssued, ColStatus}

var missingCells = []string{"", "NA", "NaN", "<nil>"}

// Record is one license row.
type Record struct {
	ID              string
	LicenseID       int
	Account         int
	Site            int
	Zip             int
	Code            int
	Activities      []string
	ApplicationType string
	Status          string
	Start           time.Time
	End             time.Time
	Issued          time.Time
	StatusChanged   time.Time
}

// Zipcode implements Interval.
func (r Record) Zipcode() int { return r.Zip }

// Term implements Interval.
func (r Record) Term() (start, end time.Time) { return r.Start, r.End }

// ReadCSV loads license rows. Rows without a parsable zip code, or whose zip
// is not in cityZips, are dropped; a nil cityZips keeps every zip. Records
// are returned sorted by issue date with undated records last.
func ReadCSV(r io.Reader, cityZips []int) ([]Record, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingCells),
	)
	if df.Err != nil {
		return nil, types.NewAppError(types.ErrCodeLoadMalformed, "cannot parse license csv", df.Err)
	}

	cols := make(map[string][]string)
	for _, name := range df.Names() {
		cols[name] = cells(df.Col(name))
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, types.NewAppError(types.ErrCodeLoadMalformed,
				fmt.Sprintf("license csv has no %q column", name), nil)
		}
	}

	var keep map[int]bool
	if cityZips != nil {
		keep = make(map[int]bool, len(cityZips))
		for _, z := range cityZips {
			keep[z] = true
		}
	}

	var out []Record
	for i := 0; i < df.Nrow(); i++ {
		get := func(name string) string {
			if c, ok := cols[name]; ok {
				return c[i]
			}
			return ""
		}

		zip, ok := types.ParseZip(get(ColZip))
		if !ok || (keep != nil && !keep[zip]) {
			continue
		}

		rec, err := parseRecord(get)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeLoadMalformed,
				fmt.Sprintf("license csv row %d", i+1), err)
		}
		rec.Zip = zip
		out = append(out, rec)
	}

	slices.SortStableFunc(out, func(a, b Record) int { return compareDates(a.Issued, b.Issued) })
	return out, nil
}

func parseRecord(get func(string) string) (Record, error) {
	var rec Record
	var err error
	rec.ID = get(ColID)
	rec.ApplicationType = get(ColApplicationType)
	rec.Status = get(ColStatus)
	rec.Activities = splitActivities(get(ColActivityID))

	ints := []struct {
		col      string
		dst      *int
		optional bool
	}{
		{ColAccount, &rec.Account, false},
		{ColSite, &rec.Site, false},
		{ColCode, &rec.Code, false},
		{ColLicenseID, &rec.LicenseID, true},
	}
	for _, f := range ints {
		s := get(f.col)
		if s == "" && f.optional {
			continue
		}
		if *f.dst, err = strconv.Atoi(s); err != nil {
			return rec, fmt.Errorf("%s: %w", f.col, err)
		}
	}

	dates := []struct {
		col string
		dst *time.Time
	}{
		{ColTermStart, &rec.Start},
		{ColTermEnd, &rec.End},
		{ColIssued, &rec.Issued},
		{ColStatusChange, &rec.StatusChanged},
	}
	for _, f := range dates {
		if *f.dst, err = parseDate(get(f.col)); err != nil {
			return rec, fmt.Errorf("%s: %w", f.col, err)
		}
	}
	return rec, nil
}

// parseDate returns the zero time for an empty cell.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

// splitActivities splits the pipe separated activity id list.
func splitActivities(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cells returns the column as trimmed strings with missing cells empty.
func cells(s series.Series) []string {
	out := make([]string, s.Len())
	for i := range out {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		out[i] = strings.TrimSpace(e.String())
	}
	return out
}

// compareDates orders zero times after every real date.
func compareDates(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}
