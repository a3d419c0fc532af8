package licensing

import (
	"slices"
	"time"
)

// OriginalApplication is the application type of a first license at a site.
const OriginalApplication = "ISSUE"

// Rules decide how license records chain into a continuously operating
// location.
type Rules struct {
	// ActiveStatus marks a license that is currently in force.
	ActiveStatus string
	// ClosedStatuses end a chain: the next license at the site starts anew.
	ClosedStatuses []string
	// GapThreshold is the longest break between one term's expiration and
	// the next term's start that still counts as continuous.
	GapThreshold time.Duration
}

// DefaultRules uses the export's status codes and allows a one year gap.
var DefaultRules = Rules{
	ActiveStatus:   "AAI",
	ClosedStatuses: []string{"AAC", "REV"},
	GapThreshold:   365 * 24 * time.Hour,
}

// LocationKey identifies one business account at one site.
type LocationKey struct {
	Account int
	Site    int
}

// Location aggregates every license held by one account at one site.
type Location struct {
	LocationKey
	Zip         int
	Original    bool
	Active      bool
	Continuous  bool
	Start       time.Time
	End         time.Time
	Lifespan    time.Duration
	Codes       []int
	Activities  int
	NumLicenses int
}

// Zipcode implements Interval.
func (l Location) Zipcode() int { return l.Zip }

// Term implements Interval.
func (l Location) Term() (start, end time.Time) { return l.Start, l.End }

// Locations groups records by account and site, in order of first
// appearance.
//
// Within a location, records are walked in term order. A record continues
// the previous one when the previous status is not closed and the gap
// between them is at most rules.GapThreshold. Lifespan is the longest
// continuous chain, measured from the chain's first start to its last end.
func Locations(records []Record, rules Rules) []Location {
	var order []LocationKey
	groups := make(map[LocationKey][]Record)
	for _, r := range records {
		k := LocationKey{Account: r.Account, Site: r.Site}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]Location, 0, len(order))
	for _, k := range order {
		out = append(out, aggregate(k, groups[k], rules))
	}
	return out
}

func aggregate(k LocationKey, recs []Record, rules Rules) Location {
	slices.SortStableFunc(recs, func(a, b Record) int { return compareDates(a.Start, b.Start) })

	loc := Location{LocationKey: k, Zip: recs[0].Zip, NumLicenses: len(recs)}
	var chainStart time.Time
	for i, r := range recs {
		if r.ApplicationType == OriginalApplication {
			loc.Original = true
		}
		if r.Status == rules.ActiveStatus {
			loc.Active = true
		}
		if !slices.Contains(loc.Codes, r.Code) {
			loc.Codes = append(loc.Codes, r.Code)
		}
		loc.Activities += len(r.Activities)

		if !r.Start.IsZero() && (loc.Start.IsZero() || r.Start.Before(loc.Start)) {
			loc.Start = r.Start
		}
		if r.End.After(loc.End) {
			loc.End = r.End
		}

		if i > 0 && continues(recs[i-1], r, rules) {
			loc.Continuous = true
		} else {
			chainStart = r.Start
		}
		if !chainStart.IsZero() && !r.End.IsZero() {
			loc.Lifespan = max(loc.Lifespan, r.End.Sub(chainStart))
		}
	}
	return loc
}

// continues reports whether next renews prev without a closing status or an
// overlong gap.
func continues(prev, next Record, rules Rules) bool {
	if slices.Contains(rules.ClosedStatuses, prev.Status) {
		return false
	}
	if prev.End.IsZero() || next.Start.IsZero() {
		return false
	}
	return next.Start.Sub(prev.End) <= rules.GapThreshold
}
