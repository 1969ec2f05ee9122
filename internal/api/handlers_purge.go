package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/JustinTDCT/MarkerVault/internal/shift"
)

// ──────────────────── Purged markers & backups ────────────────────

// handleListPurged returns backup snapshots for markers that disappeared from
// the markers table without us deleting them. The server-side database drops
// markers whenever the item is re-analyzed, so this is how users find out.
func (s *Server) handleListPurged(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	purged, err := s.backupRepo.PurgedForParents(r.Context(), []int64{parentID})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to scan for purged markers")
		return
	}

	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: purged})
}

// decodeRestoreFilter reads the optional backup_ids body. A missing body
// means "restore everything"; the Content-Length header is not consulted, so
// chunked bodies decode like any other.
func decodeRestoreFilter(r *http.Request) ([]int64, error) {
	var body struct {
		BackupIDs []int64 `json:"backup_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return body.BackupIDs, nil
}

// handleRestorePurged re-inserts purged markers from their latest backup
// snapshots. With no body (or an empty backup_ids list) every purged marker
// for the item is restored. The restore trail row closes out the purged id,
// so a second restore finds nothing.
func (s *Server) handleRestorePurged(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	backupIDs, err := decodeRestoreFilter(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	purged, err := s.backupRepo.PurgedForParents(r.Context(), []int64{parentID})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to scan for purged markers")
		return
	}

	batch := shift.RestoreBatch(purged, backupIDs)
	if len(batch.Inserts) == 0 {
		s.respondError(w, http.StatusNotFound, "no purged markers to restore")
		return
	}

	if err := s.markerRepo.CommitBatch(r.Context(), batch); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to restore markers")
		return
	}

	s.broadcastMarkers(r, []int64{parentID})
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"restored": len(batch.Inserts),
	}})
}

// handleListBackups returns the full backup trail for one item, newest first.
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathInt64(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	backups, err := s.backupRepo.ListByParent(r.Context(), parentID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to get backups")
		return
	}

	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: backups})
}
