package licensing

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"citymap/internal/timeseries"
	"citymap/internal/types"
)

// Interval is anything with a zip code and a term.
type Interval interface {
	Zipcode() int
	Term() (start, end time.Time)
}

// Selector reports whether iv counts towards the bin [first, last]. An
// interval with an unknown start or end is never selected by a test that
// needs that bound.
type Selector func(iv Interval, first, last time.Time) bool

// IncludesDate selects intervals active on the first day of the bin.
func IncludesDate(iv Interval, first, _ time.Time) bool {
	start, end := iv.Term()
	return known(start, end) && !start.After(first) && !end.Before(first)
}

// SpansRange selects intervals overlapping the bin.
func SpansRange(iv Interval, first, last time.Time) bool {
	start, end := iv.Term()
	return known(start, end) && !start.After(last) && !end.Before(first)
}

// StartsWithin selects intervals starting inside the bin.
func StartsWithin(iv Interval, first, last time.Time) bool {
	start, _ := iv.Term()
	return !start.IsZero() && between(start, first, last)
}

// EndsWithin selects intervals ending inside the bin.
func EndsWithin(iv Interval, first, last time.Time) bool {
	_, end := iv.Term()
	return !end.IsZero() && between(end, first, last)
}

var selectors = map[string]Selector{
	"includes": IncludesDate,
	"spans":    SpansRange,
	"starts":   StartsWithin,
	"ends":     EndsWithin,
}

// SelectorNames lists the names accepted by SelectorByName.
func SelectorNames() []string {
	names := make([]string, 0, len(selectors))
	for name := range selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectorByName resolves a selector from its command line name.
func SelectorByName(name string) (Selector, error) {
	if s, ok := selectors[name]; ok {
		return s, nil
	}
	return nil, types.NewAppError(types.ErrCodeConfigInvalidOption,
		fmt.Sprintf("unknown selector %q", name), nil).
		WithDetails(map[string]any{"known": SelectorNames()})
}

func known(a, b time.Time) bool { return !a.IsZero() && !b.IsZero() }

func between(t, first, last time.Time) bool {
	return !t.Before(first) && !t.After(last)
}

// MonthlyBins returns the first day of every month from first's month up to
// and including the month after last, so the final bin pair covers last.
func MonthlyBins(first, last time.Time) []time.Time {
	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	stop := time.Date(last.Year(), last.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	var bins []time.Time
	for t := start; !t.After(stop); t = t.AddDate(0, 1, 0) {
		bins = append(bins, t)
	}
	return bins
}

// BuildSeries counts the selected intervals per zip code for every
// consecutive pair of bins. Each count is stamped with the opening bin date.
// Zips that never appear in a bin get zero there.
func BuildSeries[T Interval](sel Selector, items []T, bins []time.Time) (*timeseries.Raw, error) {
	if len(bins) < 2 {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption, "need at least two bin edges", nil)
	}
	if !slices.IsSortedFunc(bins, func(a, b time.Time) int { return a.Compare(b) }) {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption, "bin edges must be ascending", nil)
	}

	counts := make([]map[int]float64, len(bins)-1)
	seen := make(map[int]bool)
	for i := range counts {
		counts[i] = make(map[int]float64)
		first, last := bins[i], bins[i+1]
		for _, it := range items {
			if sel(it, first, last) {
				counts[i][it.Zipcode()]++
				seen[it.Zipcode()] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil, types.NewAppError(types.ErrCodeLoadEmpty, "no records selected in any bin", nil)
	}

	ids := make([]int, 0, len(seen))
	for z := range seen {
		ids = append(ids, z)
	}
	slices.Sort(ids)

	values := make([][]float64, len(counts))
	for i, c := range counts {
		row := make([]float64, len(ids))
		for j, z := range ids {
			row[j] = c[z]
		}
		values[i] = row
	}
	return timeseries.NewRaw(slices.Clone(bins[:len(bins)-1]), ids, values)
}

// Span returns the earliest start and latest end over items.
func Span[T Interval](items []T) (first, last time.Time, ok bool) {
	for _, it := range items {
		start, end := it.Term()
		if !start.IsZero() && (first.IsZero() || start.Before(first)) {
			first = start
		}
		if !end.IsZero() && end.After(last) {
			last = end
		}
	}
	return first, last, !first.IsZero() && !last.IsZero()
}
