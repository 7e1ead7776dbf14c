package calendar

import "staybook/pkg/model"

// Kind says what happened to an interval. Created inserts a row, Deleted removes one, the other
// two rewrite an existing row in place.
type Kind int

const (
	Created Kind = iota
	Updated
	StatusChanged
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case StatusChanged:
		return "status_changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one mutation of the calendar. Interval holds the state after the change (the removed
// state for Deleted). Created intervals carry no ID until persisted.
type Change struct {
	Kind     Kind
	Interval *model.Availability
}

// Apply replays changes over a copy of intervals and returns the resulting set.
// Inputs are not modified.
func Apply(intervals []*model.Availability, changes []Change) []*model.Availability {
	out := make([]*model.Availability, 0, len(intervals)+len(changes))
	index := make(map[string]int, len(intervals))
	removed := make(map[int]bool)
	for _, iv := range intervals {
		index[iv.ID] = len(out)
		out = append(out, iv.Clone())
	}

	for _, c := range changes {
		switch c.Kind {
		case Created:
			if c.Interval.ID != "" {
				index[c.Interval.ID] = len(out)
			}
			out = append(out, c.Interval.Clone())
		case Updated, StatusChanged:
			if i, ok := index[c.Interval.ID]; ok {
				out[i] = c.Interval.Clone()
			}
		case Deleted:
			if i, ok := index[c.Interval.ID]; ok {
				removed[i] = true
				delete(index, c.Interval.ID)
			}
		}
	}

	result := make([]*model.Availability, 0, len(out))
	for i, iv := range out {
		if !removed[i] {
			result = append(result, iv)
		}
	}
	return result
}
