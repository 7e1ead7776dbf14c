package calendar

import (
	"errors"

	"staybook/pkg/model"
)

var ErrOccupied = errors.New("reservation range overlaps an occupied interval")

// Allocate carves reservation out of the AVAILABLE intervals of one accommodation:
//
//   - full cover marks the interval OCCUPIED in place
//   - interior split replaces it with AVAILABLE [As, Rs-1], OCCUPIED [Rs, Re], AVAILABLE [Re+1, Ae]
//   - left trim moves its start to Re+1 and adds OCCUPIED [As, Re]
//   - right trim moves its end to Rs-1 and adds OCCUPIED [Rs, Ae]
//
// Price and category are copied into every fragment. Intervals that do not overlap are left alone,
// and a range with no priced interval at all yields no changes. EXPIRED intervals are ignored.
// If any OCCUPIED interval overlaps the range the whole allocation is refused with ErrOccupied.
func Allocate(intervals []*model.Availability, reservation Range) ([]Change, error) {
	for _, iv := range intervals {
		if iv.Status == model.AvailabilityOccupied && Of(iv).Overlaps(reservation) {
			return nil, ErrOccupied
		}
	}

	var changes []Change
	for _, iv := range intervals {
		if iv.Status != model.AvailabilityAvailable {
			continue
		}
		changes = append(changes, carve(iv, reservation)...)
	}
	return changes, nil
}

func carve(iv *model.Availability, r Range) []Change {
	as, ae := iv.StartDate, iv.EndDate

	switch Classify(Of(iv), r) {
	case FullCover:
		occupied := iv.Clone()
		occupied.Status = model.AvailabilityOccupied
		return []Change{{Kind: StatusChanged, Interval: occupied}}

	case InteriorSplit:
		return []Change{
			{Kind: Deleted, Interval: iv.Clone()},
			{Kind: Created, Interval: iv.Fragment(as, AddDays(r.Start, -1), model.AvailabilityAvailable)},
			{Kind: Created, Interval: iv.Fragment(r.Start, r.End, model.AvailabilityOccupied)},
			{Kind: Created, Interval: iv.Fragment(AddDays(r.End, 1), ae, model.AvailabilityAvailable)},
		}

	case LeftTrim:
		trimmed := iv.Clone()
		trimmed.StartDate = AddDays(r.End, 1)
		return []Change{
			{Kind: Updated, Interval: trimmed},
			{Kind: Created, Interval: iv.Fragment(as, r.End, model.AvailabilityOccupied)},
		}

	case RightTrim:
		trimmed := iv.Clone()
		trimmed.EndDate = AddDays(r.Start, -1)
		return []Change{
			{Kind: Updated, Interval: trimmed},
			{Kind: Created, Interval: iv.Fragment(r.Start, ae, model.AvailabilityOccupied)},
		}
	}
	return nil
}

// Release flips every OCCUPIED interval overlapping the cancelled stay back to AVAILABLE.
// Boundaries are kept as they are; Merge is expected to run afterwards.
func Release(intervals []*model.Availability, stay Range) []Change {
	var changes []Change
	for _, iv := range intervals {
		if iv.Status != model.AvailabilityOccupied || !Of(iv).Overlaps(stay) {
			continue
		}
		freed := iv.Clone()
		freed.Status = model.AvailabilityAvailable
		changes = append(changes, Change{Kind: StatusChanged, Interval: freed})
	}
	return changes
}

// Reopen is Release followed by one Merge pass over the resulting calendar.
func Reopen(intervals []*model.Availability, stay Range) []Change {
	released := Release(intervals, stay)
	merged := Merge(Apply(intervals, released))
	return append(released, merged...)
}
