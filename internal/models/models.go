package models

import (
	"errors"
	"fmt"
	"time"
)

// ──────────────────── Enums ────────────────────

type MarkerType string

const (
	MarkerIntro        MarkerType = "intro"
	MarkerCredits      MarkerType = "credits"
	MarkerCreditsFinal MarkerType = "credits_final"
	MarkerAd           MarkerType = "ad"
)

// Valid reports whether t is a known marker type.
func (t MarkerType) Valid() bool {
	switch t {
	case MarkerIntro, MarkerCredits, MarkerCreditsFinal, MarkerAd:
		return true
	}
	return false
}

// MarkerTypeFilter selects which marker types an operation targets.
type MarkerTypeFilter uint8

const (
	FilterIntro        MarkerTypeFilter = 1 << 0
	FilterCredits      MarkerTypeFilter = 1 << 1
	FilterCreditsFinal MarkerTypeFilter = 1 << 2
	FilterAd           MarkerTypeFilter = 1 << 3

	FilterAll = FilterIntro | FilterCredits | FilterCreditsFinal | FilterAd
)

var filterBits = map[MarkerType]MarkerTypeFilter{
	MarkerIntro:        FilterIntro,
	MarkerCredits:      FilterCredits,
	MarkerCreditsFinal: FilterCreditsFinal,
	MarkerAd:           FilterAd,
}

// Matches reports whether the filter includes the given marker type.
func (f MarkerTypeFilter) Matches(t MarkerType) bool {
	return f&filterBits[t] != 0
}

// Types returns the marker types included in the filter, in declaration order.
func (f MarkerTypeFilter) Types() []MarkerType {
	var out []MarkerType
	for _, t := range []MarkerType{MarkerIntro, MarkerCredits, MarkerCreditsFinal, MarkerAd} {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// ParseMarkerTypeFilter builds a filter from type names. An empty list means
// all types. Unknown names are rejected outright.
func ParseMarkerTypeFilter(names []string) (MarkerTypeFilter, error) {
	if len(names) == 0 {
		return FilterAll, nil
	}
	var f MarkerTypeFilter
	for _, name := range names {
		bit, ok := filterBits[MarkerType(name)]
		if !ok {
			return 0, fmt.Errorf("unknown marker type %q", name)
		}
		f |= bit
	}
	return f, nil
}

// ──────────────────── Marker ────────────────────

// Marker is a timestamped region (milliseconds) attached to an episode or
// movie in the media-server database. Index is a dense, zero-based, per-parent
// ordering by StartMs; the repository re-derives it after every committed
// mutation.
type Marker struct {
	ID            int64      `json:"id" db:"id"`
	ParentID      int64      `json:"parent_id" db:"parent_id"`
	MarkerType    MarkerType `json:"marker_type" db:"marker_type"`
	StartMs       int64      `json:"start" db:"start_ms"`
	EndMs         int64      `json:"end" db:"end_ms"`
	Index         int        `json:"index" db:"marker_index"`
	CreatedByUser bool       `json:"created_by_user" db:"created_by_user"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

var ErrInvalidMarkerRange = errors.New("marker start must be non-negative and before end")

// Validate checks the start/end invariant and the marker type.
func (m *Marker) Validate() error {
	if m.StartMs < 0 || m.StartMs >= m.EndMs {
		return ErrInvalidMarkerRange
	}
	if !m.MarkerType.Valid() {
		return fmt.Errorf("unknown marker type %q", m.MarkerType)
	}
	return nil
}

// ──────────────────── ParentItem ────────────────────

// ParentItem is the episode or movie a marker belongs to. Read-only here; it
// supplies the duration bound markers cannot exceed.
type ParentItem struct {
	MetadataID  int64  `json:"metadata_id" db:"metadata_id"`
	Title       string `json:"title,omitempty" db:"title"`
	DurationMs  int64  `json:"duration" db:"duration_ms"`
	SeasonIndex *int   `json:"season_index,omitempty" db:"season_index"`
	Index       *int   `json:"index,omitempty" db:"item_index"`
	ShowID      *int64 `json:"show_id,omitempty" db:"show_id"`
}

// ──────────────────── Marker Backups ────────────────────

type BackupOp string

const (
	BackupOpAdd     BackupOp = "add"
	BackupOpEdit    BackupOp = "edit"
	BackupOpDelete  BackupOp = "delete"
	BackupOpShift   BackupOp = "shift"
	BackupOpRestore BackupOp = "restore"
)

// MarkerBackup records a marker's state before a committed mutation so purged
// or mangled markers can be restored later.
type MarkerBackup struct {
	ID            int64      `json:"id" db:"id"`
	BatchID       string     `json:"batch_id" db:"batch_id"`
	Op            BackupOp   `json:"op" db:"op"`
	MarkerID      int64      `json:"marker_id" db:"marker_id"`
	ParentID      int64      `json:"parent_id" db:"parent_id"`
	MarkerType    MarkerType `json:"marker_type" db:"marker_type"`
	StartMs       int64      `json:"start" db:"start_ms"`
	EndMs         int64      `json:"end" db:"end_ms"`
	CreatedByUser bool       `json:"created_by_user" db:"created_by_user"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ──────────────────── Sessions ────────────────────

// Session is a logged-in browser session. Tokens are signed JWTs whose jti is
// stored here so logout and admin revocation work server-side.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ExpiresAt int64     `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
