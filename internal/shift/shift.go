// Package shift implements the bulk marker shift engine: planning a time
// delta across the markers of one or more episodes, detecting the overlaps
// and boundary truncations the shift would create, and committing the final
// marker set atomically once conflicts are resolved.
package shift

import (
	"context"

	"github.com/JustinTDCT/MarkerVault/internal/models"
)

// ──────────────────── Classification ────────────────────

// Classification is the per-candidate verdict computed during planning.
type Classification string

const (
	// Clean markers shift without clamping or overlap.
	Clean Classification = "clean"
	// Truncated markers were clamped to an episode boundary but remain valid.
	Truncated Classification = "truncated"
	// Invalid markers would vanish or invert; they cannot be applied and are
	// dropped on a forced commit.
	Invalid Classification = "invalid"
	// UnresolvedOverlap markers would intersect another marker in the same
	// episode; the caller must resolve before a normal commit.
	UnresolvedOverlap Classification = "unresolved"
)

// ──────────────────── Request / Candidate / Result ────────────────────

// Request describes one shift (or dry-run check) over a set of parent items.
type Request struct {
	ParentIDs    []int64                 `json:"parent_ids"`
	StartDeltaMs int64                   `json:"start_delta_ms"`
	EndDeltaMs   int64                   `json:"end_delta_ms"`
	TypeFilter   models.MarkerTypeFilter `json:"-"`
	Force        bool                    `json:"force"`

	// IgnoredMarkerIDs excludes markers from the shift; they stay at their
	// original position and act as overlap context only.
	IgnoredMarkerIDs []int64 `json:"ignored_marker_ids"`

	// Customized is set when the caller has been through the customization
	// step and the ignore list is an explicit choice. Until then, episodes
	// with more than one marker in scope are never auto-resolved.
	Customized bool `json:"-"`
}

func (r *Request) ignoredSet() map[int64]bool {
	if len(r.IgnoredMarkerIDs) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(r.IgnoredMarkerIDs))
	for _, id := range r.IgnoredMarkerIDs {
		set[id] = true
	}
	return set
}

// Candidate is one marker's proposed new position. Computed fresh per
// request, never persisted.
type Candidate struct {
	Marker   models.Marker  `json:"marker"`
	NewStart int64          `json:"new_start"`
	NewEnd   int64          `json:"new_end"`
	Class    Classification `json:"classification"`

	// Enabled is false for markers in the caller's ignore list.
	Enabled bool `json:"enabled"`
	// Linked is true when other markers of the same parent are also in
	// scope, so the group must be resolved together.
	Linked bool `json:"linked"`
}

// Result is the engine's response for both checks and applies.
type Result struct {
	Applied  bool `json:"applied"`
	Conflict bool `json:"conflict"`
	Overflow bool `json:"overflow"`

	// AllMarkers is the full marker set for every parent in scope, post-apply
	// when Applied is true, pre-shift otherwise.
	AllMarkers []models.Marker `json:"all_markers"`
	// EpisodeData maps parent id to its item so the caller can render
	// durations and season/episode numbers.
	EpisodeData map[int64]models.ParentItem `json:"episode_data,omitempty"`
	// Candidates is the customization set; populated whenever the request
	// was planned (empty only for no-op paths).
	Candidates []Candidate `json:"candidates,omitempty"`
}

// ──────────────────── Storage boundary ────────────────────

// Store is the marker persistence the engine runs against. CommitBatch must
// be transactional: every statement in the batch succeeds or none do.
type Store interface {
	GetMarkersForParents(ctx context.Context, parentIDs []int64) ([]models.Marker, error)
	GetParentItems(ctx context.Context, parentIDs []int64) (map[int64]models.ParentItem, error)
	CommitBatch(ctx context.Context, batch *Batch) error
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
