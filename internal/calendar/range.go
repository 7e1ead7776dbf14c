// Package calendar implements the allocation algebra over an accommodation's availability
// intervals: overlap classification, carving a reservation out of free intervals, reopening
// occupied intervals and consolidating touching free intervals.
//
// Every function here is pure. Callers load the intervals, ask for a list of Changes and
// persist them in order inside one resource-scoped transaction.
package calendar

import (
	"errors"
	"time"

	"staybook/pkg/model"
)

var ErrInvalidRange = errors.New("range end is before its start")

// Day returns the calendar date of t as midnight UTC. All interval bounds are stored this way.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a day by n whole days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// Range is an inclusive span of whole days.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange normalises both bounds to days and rejects end < start.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: Day(start), End: Day(end)}
	if r.End.Before(r.Start) {
		return Range{}, ErrInvalidRange
	}
	return r, nil
}

// Of returns the span covered by an interval.
func Of(a *model.Availability) Range {
	return Range{Start: a.StartDate, End: a.EndDate}
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r Range) Overlaps(o Range) bool {
	return !(r.End.Before(o.Start) || r.Start.After(o.End))
}

// Touches reports whether next begins the day after r ends.
func (r Range) Touches(next Range) bool {
	return AddDays(r.End, 1).Equal(next.Start)
}

// Nights is the number of days in the range.
func (r Range) Nights() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// FindOverlap returns the first interval overlapping r, skipping the interval with id skipID.
func FindOverlap(intervals []*model.Availability, r Range, skipID string) *model.Availability {
	for _, iv := range intervals {
		if skipID != "" && iv.ID == skipID {
			continue
		}
		if Of(iv).Overlaps(r) {
			return iv
		}
	}
	return nil
}
