package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JustinTDCT/MarkerVault/internal/jobs"
	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/JustinTDCT/MarkerVault/internal/shift"
	"github.com/hibiken/asynq"
)

// ──────────────────── Shift engine ────────────────────

type shiftBody struct {
	ParentIDs    []int64  `json:"parent_ids"`
	StartDeltaMs int64    `json:"start_delta_ms"`
	EndDeltaMs   int64    `json:"end_delta_ms"`
	MarkerTypes  []string `json:"marker_types"`
	Force        bool     `json:"force"`

	// Omitted (null) until the user has been through the customization step;
	// an explicit empty list means "keep every marker enabled".
	IgnoredMarkerIDs *[]int64 `json:"ignored_marker_ids"`
}

func (b *shiftBody) toRequest() (shift.Request, error) {
	filter, err := models.ParseMarkerTypeFilter(b.MarkerTypes)
	if err != nil {
		return shift.Request{}, err
	}
	req := shift.Request{
		ParentIDs:    b.ParentIDs,
		StartDeltaMs: b.StartDeltaMs,
		EndDeltaMs:   b.EndDeltaMs,
		TypeFilter:   filter,
		Force:        b.Force,
	}
	if b.IgnoredMarkerIDs != nil {
		req.IgnoredMarkerIDs = *b.IgnoredMarkerIDs
		req.Customized = true
	}
	return req, nil
}

// handleShiftCheck is the dry run: which markers would a shift touch, and is
// customization required. Never writes.
func (s *Server) handleShiftCheck(w http.ResponseWriter, r *http.Request) {
	var body shiftBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	filter, err := models.ParseMarkerTypeFilter(body.MarkerTypes)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Check(r.Context(), body.ParentIDs, filter)
	if err != nil {
		s.respondShiftError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: res})
}

// handleShift plans and, when clean (or forced), commits a shift.
func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	var body shiftBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := body.toRequest()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Shift(r.Context(), req)
	if err != nil {
		s.respondShiftError(w, err)
		return
	}

	if res.Applied {
		s.wsHub.Broadcast("markers:update", map[string]interface{}{
			"parent_ids": req.ParentIDs,
			"markers":    res.AllMarkers,
		})
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: res})
}

// handleBulkShift queues a show- or season-wide forced shift as a background
// job and returns immediately.
func (s *Server) handleBulkShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShowID       int64    `json:"show_id"`
		SeasonIndex  *int     `json:"season_index"`
		StartDeltaMs int64    `json:"start_delta_ms"`
		EndDeltaMs   int64    `json:"end_delta_ms"`
		MarkerTypes  []string `json:"marker_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShowID == 0 {
		s.respondError(w, http.StatusBadRequest, "show_id is required")
		return
	}
	if req.StartDeltaMs == 0 && req.EndDeltaMs == 0 {
		s.respondError(w, http.StatusBadRequest, "shift requires a non-zero start or end delta")
		return
	}
	if _, err := models.ParseMarkerTypeFilter(req.MarkerTypes); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload := jobs.BulkShiftPayload{
		ShowID:       req.ShowID,
		SeasonIndex:  req.SeasonIndex,
		StartDeltaMs: req.StartDeltaMs,
		EndDeltaMs:   req.EndDeltaMs,
		MarkerTypes:  req.MarkerTypes,
	}
	uniqueID := fmt.Sprintf("bulkshift:%d", req.ShowID)
	if req.SeasonIndex != nil {
		uniqueID = fmt.Sprintf("bulkshift:%d:s%d", req.ShowID, *req.SeasonIndex)
	}
	jobID, err := s.jobQueue.EnqueueUnique(jobs.TaskBulkShift, payload, uniqueID,
		asynq.Timeout(30*time.Minute), asynq.Retention(time.Hour))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to enqueue bulk shift")
		return
	}

	s.respondJSON(w, http.StatusAccepted, Response{Success: true, Data: map[string]string{
		"job_id": jobID,
		"status": "queued",
	}})
}

// respondShiftError maps the engine's error taxonomy onto HTTP statuses:
// validation is the caller's fault, storage failures are ours. Conflicts and
// overflow never arrive here; they ride inside the Result.
func (s *Server) respondShiftError(w http.ResponseWriter, err error) {
	var verr *shift.ValidationError
	if errors.As(err, &verr) {
		s.respondError(w, http.StatusBadRequest, verr.Msg)
		return
	}
	var serr *shift.StorageError
	if errors.As(err, &serr) {
		s.respondError(w, http.StatusInternalServerError, "marker store unavailable")
		return
	}
	s.respondError(w, http.StatusInternalServerError, "shift failed")
}
