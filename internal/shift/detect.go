package shift

import "github.com/JustinTDCT/MarkerVault/internal/models"

// interval is an effective marker position used for overlap testing: the
// shifted position for enabled candidates, the original position for ignored
// candidates and for context markers the filter did not match.
type interval struct {
	id    int64
	start int64
	end   int64
}

// detectOverlaps annotates every enabled, non-Invalid candidate in a single
// parent's group that would intersect another marker of the same parent.
// Overlap checking composes across simultaneously-moving markers: enabled
// siblings are tested at their shifted positions, everything else at its
// original position. Invalid candidates are excluded on both sides; they
// are never applied, so they cannot collide.
func detectOverlaps(group []Candidate, context []models.Marker) {
	intervals := make([]interval, 0, len(group)+len(context))
	for i := range group {
		c := &group[i]
		switch {
		case c.Enabled && c.Class == Invalid:
			// dropped on apply; occupies nothing
		case c.Enabled:
			intervals = append(intervals, interval{id: c.Marker.ID, start: c.NewStart, end: c.NewEnd})
		default:
			intervals = append(intervals, interval{id: c.Marker.ID, start: c.Marker.StartMs, end: c.Marker.EndMs})
		}
	}
	for _, m := range context {
		intervals = append(intervals, interval{id: m.ID, start: m.StartMs, end: m.EndMs})
	}

	for i := range group {
		c := &group[i]
		if !c.Enabled || c.Class == Invalid {
			continue
		}
		for _, iv := range intervals {
			if iv.id == c.Marker.ID {
				continue
			}
			// Two markers overlap iff existing.end >= newStart and
			// existing.start <= newEnd (closed intervals, touching counts).
			if iv.end >= c.NewStart && iv.start <= c.NewEnd {
				c.Class = UnresolvedOverlap
				break
			}
		}
	}
}
