package shift

import (
	"sort"

	"github.com/JustinTDCT/MarkerVault/internal/models"
)

// Plan computes the proposed new position and classification for every marker
// the request targets. markers must be the complete marker set for every
// parent in scope: markers the filter does not match participate as overlap
// context but are never candidates themselves.
//
// Plan is pure and deterministic: identical inputs yield identical output,
// and no persisted state is touched.
func Plan(markers []models.Marker, req Request, durations map[int64]int64) ([]Candidate, error) {
	ignored := req.ignoredSet()

	byParent := make(map[int64][]models.Marker)
	for _, m := range markers {
		byParent[m.ParentID] = append(byParent[m.ParentID], m)
	}
	parentIDs := make([]int64, 0, len(byParent))
	for id := range byParent {
		parentIDs = append(parentIDs, id)
	}
	sort.Slice(parentIDs, func(i, j int) bool { return parentIDs[i] < parentIDs[j] })

	var candidates []Candidate
	for _, pid := range parentIDs {
		duration, ok := durations[pid]
		if !ok || duration <= 0 {
			return nil, validationf("no duration known for parent item %d", pid)
		}

		var scoped, context []models.Marker
		for _, m := range byParent[pid] {
			if req.TypeFilter.Matches(m.MarkerType) {
				scoped = append(scoped, m)
			} else {
				context = append(context, m)
			}
		}
		if len(scoped) == 0 {
			continue
		}
		sort.Slice(scoped, func(i, j int) bool {
			if scoped[i].StartMs != scoped[j].StartMs {
				return scoped[i].StartMs < scoped[j].StartMs
			}
			return scoped[i].ID < scoped[j].ID
		})

		linked := len(scoped) > 1
		group := make([]Candidate, 0, len(scoped))
		for _, m := range scoped {
			rawStart := m.StartMs + req.StartDeltaMs
			rawEnd := m.EndMs + req.EndDeltaMs
			c := Candidate{
				Marker:   m,
				NewStart: clamp(rawStart, 0, duration),
				NewEnd:   clamp(rawEnd, 0, duration),
				Enabled:  !ignored[m.ID],
				Linked:   linked,
			}
			switch {
			case rawEnd < 0 || rawStart > duration || c.NewEnd <= c.NewStart:
				// The marker would vanish past an edge or invert; no clamped
				// position can save it.
				c.Class = Invalid
			case rawStart < 0 || rawEnd > duration:
				c.Class = Truncated
			default:
				c.Class = Clean
			}
			group = append(group, c)
		}

		detectOverlaps(group, context)
		candidates = append(candidates, group...)
	}

	if len(candidates) == 0 {
		return nil, validationf("no markers match the requested types")
	}
	return candidates, nil
}
