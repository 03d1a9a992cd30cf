package sync3

import "fmt"

// Range is an inclusive [start, end] pair of indexes into a list's filtered,
// server-ordered room set. It marshals to and from the two-element JSON array
// the sliding sync wire format uses everywhere a range appears.
type Range [2]int64

// Start returns the inclusive lower bound.
func (r Range) Start() int64 { return r[0] }

// End returns the inclusive upper bound.
func (r Range) End() int64 { return r[1] }

// Valid reports whether 0 <= start <= end, the only shape the protocol allows.
func (r Range) Valid() bool {
	return r[0] >= 0 && r[0] <= r[1]
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r[0], r[1])
}

// clampEnd bounds an upper index against whichever of total/cap are known,
// always taking the tightest (smallest) applicable bound.
func clampEnd(end int64, total, cap_ *int64) int64 {
	if total != nil && end > *total-1 {
		end = *total - 1
	}
	if cap_ != nil && end > *cap_-1 {
		end = *cap_ - 1
	}
	if end < 0 {
		end = 0
	}
	return end
}

// effectiveCap returns max_rooms_to_fetch if set, else the server-reported
// total, else nil when neither is known yet.
func effectiveCap(maxRoomsToFetch, total *int64) *int64 {
	if maxRoomsToFetch != nil {
		return maxRoomsToFetch
	}
	return total
}
