package calendar

import (
	"sort"

	"staybook/pkg/model"
)

// Merge coalesces touching AVAILABLE intervals with equal price and category in a single pass
// ordered by start date. A run of mergeable intervals collapses into its first member, which is
// extended to the run's end; the absorbed intervals are deleted. Deletions precede the extension
// so persisting the changes in order never leaves two rows overlapping.
func Merge(intervals []*model.Availability) []Change {
	var free []*model.Availability
	for _, iv := range intervals {
		if iv.Status == model.AvailabilityAvailable {
			free = append(free, iv.Clone())
		}
	}
	if len(free) < 2 {
		return nil
	}
	sort.SliceStable(free, func(i, j int) bool {
		return free[i].StartDate.Before(free[j].StartDate)
	})

	var changes []Change
	current := free[0]
	extended := false
	for _, next := range free[1:] {
		if mergeable(current, next) {
			current.EndDate = next.EndDate
			changes = append(changes, Change{Kind: Deleted, Interval: next})
			extended = true
			continue
		}
		if extended {
			changes = append(changes, Change{Kind: Updated, Interval: current})
		}
		current = next
		extended = false
	}
	if extended {
		changes = append(changes, Change{Kind: Updated, Interval: current})
	}
	return changes
}

func mergeable(current, next *model.Availability) bool {
	return Of(current).Touches(Of(next)) &&
		current.Price.Equal(next.Price) &&
		current.PriceType == next.PriceType
}
