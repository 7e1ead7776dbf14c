package calendar

// Case is the relation between an existing interval A and a reservation range R.
type Case int

const (
	NoOverlap     Case = iota // A and R share no day
	FullCover                 // R covers all of A
	InteriorSplit             // R lies strictly inside A
	LeftTrim                  // R covers the start of A but ends inside it
	RightTrim                 // R starts inside A and covers its end
)

func (c Case) String() string {
	switch c {
	case NoOverlap:
		return "no_overlap"
	case FullCover:
		return "full_cover"
	case InteriorSplit:
		return "interior_split"
	case LeftTrim:
		return "left_trim"
	case RightTrim:
		return "right_trim"
	default:
		return "unknown"
	}
}

// Classify evaluates the five cases in order. Given the overlap precondition the last four are
// exhaustive and disjoint, so a boundary coinciding with the interval's boundary is always a trim
// or a full cover, never an interior split.
func Classify(interval, reservation Range) Case {
	as, ae := interval.Start, interval.End
	rs, re := reservation.Start, reservation.End

	switch {
	case ae.Before(rs) || as.After(re):
		return NoOverlap
	case !rs.After(as) && !re.Before(ae):
		return FullCover
	case rs.After(as) && re.Before(ae):
		return InteriorSplit
	case !rs.After(as) && re.Before(ae):
		return LeftTrim
	default:
		return RightTrim
	}
}
