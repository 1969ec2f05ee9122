package shift

import (
	"context"

	"github.com/JustinTDCT/MarkerVault/internal/models"
)

// ──────────────────── Session state machine ────────────────────

type State string

const (
	StateInitial     State = "initial"
	StateChecked     State = "checked"
	StateCustomizing State = "customizing"
	StateResolved    State = "resolved"
	StateApplied     State = "applied"
	StateAborted     State = "aborted"
)

// Session is the explicit state of one check→resolve→apply cycle. It is
// built fresh for every request and discarded after commit or abort; nothing
// is retained server-side between calls, so the caller re-supplies its ignore
// list on every resubmit.
type Session struct {
	State      State
	Request    Request
	Candidates []Candidate
}

func NewSession(req Request) *Session {
	return &Session{State: StateInitial, Request: req}
}

// Plan moves Initial → Checked with a freshly computed candidate set. A
// validation failure aborts the session.
func (s *Session) Plan(markers []models.Marker, durations map[int64]int64) error {
	candidates, err := Plan(markers, s.Request, durations)
	if err != nil {
		s.State = StateAborted
		return err
	}
	s.Candidates = candidates
	s.State = StateChecked
	return nil
}

// Resolve moves a checked session to Resolved when the candidate set can be
// committed as-is, or to Customizing when the caller must intervene first.
// A forced request always resolves: Invalid candidates are dropped at batch
// build time and everything enabled is committed.
func (s *Session) Resolve() State {
	if s.Request.Force {
		s.State = StateResolved
		return s.State
	}
	if s.HasOverlap() || s.HasInvalid() || s.needsLinkedResolution() {
		s.State = StateCustomizing
		return s.State
	}
	s.State = StateResolved
	return s.State
}

// HasOverlap reports whether any enabled candidate is an unresolved overlap.
func (s *Session) HasOverlap() bool {
	for _, c := range s.Candidates {
		if c.Enabled && c.Class == UnresolvedOverlap {
			return true
		}
	}
	return false
}

// HasInvalid reports whether any enabled candidate would vanish or invert.
func (s *Session) HasInvalid() bool {
	for _, c := range s.Candidates {
		if c.Enabled && c.Class == Invalid {
			return true
		}
	}
	return false
}

// needsLinkedResolution is true while an episode holds more than one in-scope
// marker and the caller has not yet made an explicit enable/disable choice.
// A single marker per episode is auto-resolved.
func (s *Session) needsLinkedResolution() bool {
	if s.Request.Customized {
		return false
	}
	for _, c := range s.Candidates {
		if c.Linked {
			return true
		}
	}
	return false
}

// Conflict reports whether the session requires caller intervention before a
// normal (unforced) commit.
func (s *Session) Conflict() bool {
	return s.HasOverlap() || s.needsLinkedResolution()
}

// ──────────────────── Engine ────────────────────

// Engine orchestrates plan → resolve → apply against a Store. Planning and
// detection are pure synchronous computations; the only suspension point is
// the transactional commit.
type Engine struct {
	store Store
	locks *parentLock
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, locks: newParentLock()}
}

// Check is the dry-run entry point: zero deltas, no force, no ignore list.
// It reports which markers a shift would touch and whether customization
// will be required, and never writes.
func (e *Engine) Check(ctx context.Context, parentIDs []int64, filter models.MarkerTypeFilter) (*Result, error) {
	req := Request{ParentIDs: parentIDs, TypeFilter: filter}
	return e.run(ctx, req, true)
}

// Shift plans the requested deltas and commits when the candidate set is
// clean, the caller's customization resolved every conflict, or force is set.
// Conflicts are conveyed inside the Result, never as errors; only validation
// and storage failures return an error.
func (e *Engine) Shift(ctx context.Context, req Request) (*Result, error) {
	if req.StartDeltaMs == 0 && req.EndDeltaMs == 0 {
		return nil, validationf("shift requires a non-zero start or end delta")
	}
	return e.run(ctx, req, false)
}

func (e *Engine) run(ctx context.Context, req Request, dryRun bool) (*Result, error) {
	if len(req.ParentIDs) == 0 {
		return nil, validationf("at least one parent item is required")
	}
	if req.TypeFilter == 0 {
		return nil, validationf("marker type filter must select at least one type")
	}

	unlock := e.locks.lock(req.ParentIDs)
	defer unlock()

	items, err := e.store.GetParentItems(ctx, req.ParentIDs)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	for _, pid := range req.ParentIDs {
		if _, ok := items[pid]; !ok {
			return nil, validationf("parent item %d not found", pid)
		}
	}
	markers, err := e.store.GetMarkersForParents(ctx, req.ParentIDs)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	durations := make(map[int64]int64, len(items))
	for pid, item := range items {
		durations[pid] = item.DurationMs
	}

	sess := NewSession(req)
	if err := sess.Plan(markers, durations); err != nil {
		return nil, err
	}

	res := &Result{
		AllMarkers:  markers,
		EpisodeData: items,
		Candidates:  sess.Candidates,
		Conflict:    sess.Conflict(),
		Overflow:    sess.HasInvalid(),
	}
	if dryRun {
		return res, nil
	}

	if sess.Resolve() != StateResolved {
		// Customizing: the caller resubmits with an explicit ignore list or
		// abandons the cycle. No writes either way.
		return res, nil
	}

	batch := buildBatch(sess.Candidates)
	if len(batch.Updates) > 0 {
		if err := e.store.CommitBatch(ctx, batch); err != nil {
			sess.State = StateAborted
			return nil, &StorageError{Err: err}
		}
	}
	sess.State = StateApplied

	updated, err := e.store.GetMarkersForParents(ctx, req.ParentIDs)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	res.AllMarkers = updated
	res.Applied = true
	res.Conflict = false
	return res, nil
}
