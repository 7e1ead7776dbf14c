package calendar

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staybook/pkg/model"
)

const acc = "5b0a7f52-8d3c-4c59-9d0e-1b2f6a7c3e41"

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rng(start, end string) Range {
	return Range{Start: day(start), End: day(end)}
}

func interval(id, start, end string, price string, status model.AvailabilityStatus) *model.Availability {
	return &model.Availability{
		ID:              id,
		AccommodationID: acc,
		StartDate:       day(start),
		EndDate:         day(end),
		Price:           decimal.RequireFromString(price),
		PriceType:       model.PriceNormal,
		Status:          status,
	}
}

func free(id, start, end string) *model.Availability {
	return interval(id, start, end, "100", model.AvailabilityAvailable)
}

// assignIDs gives created intervals synthetic ids so the set can be reused as stored state.
func assignIDs(changes []Change) {
	n := 0
	for _, c := range changes {
		if c.Kind == Created && c.Interval.ID == "" {
			n++
			c.Interval.ID = fmt.Sprintf("new-%d", n)
		}
	}
}

func assertNoOverlap(t *testing.T, intervals []*model.Availability) {
	t.Helper()
	for i := range intervals {
		for j := i + 1; j < len(intervals); j++ {
			if Of(intervals[i]).Overlaps(Of(intervals[j])) {
				t.Fatalf("intervals overlap: [%s..%s] and [%s..%s]",
					intervals[i].StartDate.Format("2006-01-02"), intervals[i].EndDate.Format("2006-01-02"),
					intervals[j].StartDate.Format("2006-01-02"), intervals[j].EndDate.Format("2006-01-02"))
			}
		}
	}
}

func coveredDays(intervals []*model.Availability) map[time.Time]bool {
	days := make(map[time.Time]bool)
	for _, iv := range intervals {
		for d := iv.StartDate; !d.After(iv.EndDate); d = AddDays(d, 1) {
			days[d] = true
		}
	}
	return days
}
