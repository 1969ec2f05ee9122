package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/JustinTDCT/MarkerVault/internal/shift"
)

func pathInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}

// ──────────────────── Markers ────────────────────

// handleListMarkers returns all markers for a parent item, ordered by start.
func (s *Server) handleListMarkers(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	markers, err := s.markerRepo.GetMarkersForParents(r.Context(), []int64{parentID})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get markers")
		return
	}
	if markers == nil {
		markers = []models.Marker{}
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: markers})
}

// handleAddMarker creates a marker on a parent item (manual entry).
func (s *Server) handleAddMarker(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req struct {
		MarkerType string `json:"marker_type"`
		StartMs    int64  `json:"start"`
		EndMs      int64  `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	marker := models.Marker{
		ParentID:      parentID,
		MarkerType:    models.MarkerType(req.MarkerType),
		StartMs:       req.StartMs,
		EndMs:         req.EndMs,
		CreatedByUser: true,
	}
	if err := marker.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.markerRepo.GetParentItems(r.Context(), []int64{parentID})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	item, found := items[parentID]
	if !found {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if marker.EndMs > item.DurationMs {
		s.respondError(w, http.StatusBadRequest, "marker extends past the end of the item")
		return
	}

	batch := shift.NewBatch()
	batch.Inserts = append(batch.Inserts, marker)
	batch.InsertOp = models.BackupOpAdd
	batch.Reindex = []int64{parentID}
	if err := s.markerRepo.CommitBatch(r.Context(), batch); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save marker")
		return
	}

	s.broadcastMarkers(r, []int64{parentID})
	s.respondJSON(w, http.StatusCreated, Response{Success: true, Data: batch.Inserts[0]})
}

// handleEditMarker updates a marker's bounds and/or type.
func (s *Server) handleEditMarker(w http.ResponseWriter, r *http.Request) {
	markerID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid marker ID")
		return
	}

	var req struct {
		MarkerType *string `json:"marker_type"`
		StartMs    *int64  `json:"start"`
		EndMs      *int64  `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.markerRepo.GetByID(r.Context(), markerID)
	if err == sql.ErrNoRows {
		s.respondError(w, http.StatusNotFound, "marker not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get marker")
		return
	}

	prior := *existing
	updated := *existing
	if req.MarkerType != nil {
		updated.MarkerType = models.MarkerType(*req.MarkerType)
	}
	if req.StartMs != nil {
		updated.StartMs = *req.StartMs
	}
	if req.EndMs != nil {
		updated.EndMs = *req.EndMs
	}
	if err := updated.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.markerRepo.GetParentItems(r.Context(), []int64{updated.ParentID})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item, found := items[updated.ParentID]; found && updated.EndMs > item.DurationMs {
		s.respondError(w, http.StatusBadRequest, "marker extends past the end of the item")
		return
	}

	batch := shift.NewBatch()
	batch.Updates = append(batch.Updates, updated)
	batch.Backups = append(batch.Backups, shift.BackupFor(prior, models.BackupOpEdit, batch.BatchID))
	batch.Reindex = []int64{updated.ParentID}
	if err := s.markerRepo.CommitBatch(r.Context(), batch); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save marker")
		return
	}

	s.broadcastMarkers(r, []int64{updated.ParentID})
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: updated})
}

// handleDeleteMarker removes a marker; its last state stays in the backup
// trail so it can be restored.
func (s *Server) handleDeleteMarker(w http.ResponseWriter, r *http.Request) {
	markerID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid marker ID")
		return
	}

	existing, err := s.markerRepo.GetByID(r.Context(), markerID)
	if err == sql.ErrNoRows {
		s.respondError(w, http.StatusNotFound, "marker not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get marker")
		return
	}

	batch := shift.NewBatch()
	batch.Deletes = append(batch.Deletes, markerID)
	batch.Backups = append(batch.Backups, shift.BackupFor(*existing, models.BackupOpDelete, batch.BatchID))
	batch.Reindex = []int64{existing.ParentID}
	if err := s.markerRepo.CommitBatch(r.Context(), batch); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to delete marker")
		return
	}

	s.broadcastMarkers(r, []int64{existing.ParentID})
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

// handleBulkDeleteMarkers deletes every marker of the given types across a
// set of parent items, in one transaction.
func (s *Server) handleBulkDeleteMarkers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentIDs   []int64  `json:"parent_ids"`
		MarkerTypes []string `json:"marker_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ParentIDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one parent item is required")
		return
	}
	filter, err := models.ParseMarkerTypeFilter(req.MarkerTypes)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	markers, err := s.markerRepo.GetMarkersForParents(r.Context(), req.ParentIDs)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get markers")
		return
	}

	batch := shift.NewBatch()
	touched := make(map[int64]bool)
	for _, m := range markers {
		if !filter.Matches(m.MarkerType) {
			continue
		}
		batch.Deletes = append(batch.Deletes, m.ID)
		batch.Backups = append(batch.Backups, shift.BackupFor(m, models.BackupOpDelete, batch.BatchID))
		touched[m.ParentID] = true
	}
	if len(batch.Deletes) == 0 {
		s.respondError(w, http.StatusBadRequest, "no markers match the requested types")
		return
	}
	for pid := range touched {
		batch.Reindex = append(batch.Reindex, pid)
	}

	if err := s.markerRepo.CommitBatch(r.Context(), batch); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to delete markers")
		return
	}

	s.broadcastMarkers(r, batch.Reindex)
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]int{
		"deleted": len(batch.Deletes),
	}})
}

// broadcastMarkers pushes the fresh marker set for the given parents to
// connected clients.
func (s *Server) broadcastMarkers(r *http.Request, parentIDs []int64) {
	markers, err := s.markerRepo.GetMarkersForParents(r.Context(), parentIDs)
	if err != nil {
		return
	}
	s.wsHub.Broadcast("markers:update", map[string]interface{}{
		"parent_ids": parentIDs,
		"markers":    markers,
	})
}
