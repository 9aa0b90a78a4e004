package furniview

// Empty-state messages.
const (
	StatusNoFurni   = "No furni in room"
	StatusNoMatches = "No furni matches"
)

// Status holds the signals derived from room membership and item counts.
type Status struct {
	// IsEmpty is true while in a room that has no furni at all.
	IsEmpty Property[bool]
	// EmptyStatus explains an empty item list, or is "" when the list has entries.
	EmptyStatus Property[string]
}

// Recompute derives both signals from one snapshot of the inputs.
//
// Precondition: total is the unfiltered item count and filtered the length of
// the filtered item view, both observed after the same change batch.
func (s *Status) Recompute(inRoom bool, total, filtered int) {
	s.IsEmpty.set(inRoom && total == 0)
	s.EmptyStatus.set(emptyStatus(total, filtered))
}

func emptyStatus(total, filtered int) string {
	switch {
	case total == 0:
		return StatusNoFurni
	case filtered == 0:
		return StatusNoMatches
	default:
		return ""
	}
}
