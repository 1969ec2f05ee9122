package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/JustinTDCT/MarkerVault/internal/repository"
	"github.com/JustinTDCT/MarkerVault/internal/shift"
	"github.com/hibiken/asynq"
)

// BulkShiftPayload is a show- or season-wide shift applied in the background.
// Bulk shifts are always forced: a user asking to move every intro in a show
// has already accepted that clamped or vanished markers are dropped.
type BulkShiftPayload struct {
	ShowID       int64    `json:"show_id"`
	SeasonIndex  *int     `json:"season_index,omitempty"`
	StartDeltaMs int64    `json:"start_delta_ms"`
	EndDeltaMs   int64    `json:"end_delta_ms"`
	MarkerTypes  []string `json:"marker_types"`
}

// Broadcaster pushes progress events to connected clients.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

type BulkShiftHandler struct {
	engine    *shift.Engine
	items     *repository.ItemRepository
	hub       Broadcaster
	batchSize int
}

func NewBulkShiftHandler(engine *shift.Engine, items *repository.ItemRepository, hub Broadcaster, batchSize int) *BulkShiftHandler {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &BulkShiftHandler{engine: engine, items: items, hub: hub, batchSize: batchSize}
}

// tallyShift counts what a committed batch actually did: markers whose
// bounds changed, and Invalid markers the forced apply dropped. Candidates
// already at their target position produce no write and are not counted.
func tallyShift(candidates []shift.Candidate) (shifted, dropped int) {
	for _, c := range candidates {
		switch {
		case c.Class == shift.Invalid:
			dropped++
		case c.Enabled && (c.NewStart != c.Marker.StartMs || c.NewEnd != c.Marker.EndMs):
			shifted++
		}
	}
	return shifted, dropped
}

func (h *BulkShiftHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload BulkShiftPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal bulk shift payload: %w", err)
	}

	filter, err := models.ParseMarkerTypeFilter(payload.MarkerTypes)
	if err != nil {
		return err
	}

	var parentIDs []int64
	if payload.SeasonIndex != nil {
		parentIDs, err = h.items.ListEpisodeIDsBySeason(ctx, payload.ShowID, *payload.SeasonIndex)
	} else {
		parentIDs, err = h.items.ListEpisodeIDsByShow(ctx, payload.ShowID)
	}
	if err != nil {
		return fmt.Errorf("list episodes for show %d: %w", payload.ShowID, err)
	}
	if len(parentIDs) == 0 {
		log.Printf("[jobs] bulk shift: show %d has no episodes, nothing to do", payload.ShowID)
		return nil
	}

	shifted := 0
	dropped := 0
	for start := 0; start < len(parentIDs); start += h.batchSize {
		end := start + h.batchSize
		if end > len(parentIDs) {
			end = len(parentIDs)
		}
		req := shift.Request{
			ParentIDs:    parentIDs[start:end],
			StartDeltaMs: payload.StartDeltaMs,
			EndDeltaMs:   payload.EndDeltaMs,
			TypeFilter:   filter,
			Force:        true,
		}
		res, err := h.engine.Shift(ctx, req)
		if err != nil {
			// Episodes without matching markers are expected in a bulk run.
			var verr *shift.ValidationError
			if errors.As(err, &verr) {
				continue
			}
			return fmt.Errorf("bulk shift batch %d-%d: %w", start, end, err)
		}
		s, d := tallyShift(res.Candidates)
		shifted += s
		dropped += d
		h.hub.Broadcast("shift:progress", map[string]interface{}{
			"show_id":   payload.ShowID,
			"processed": end,
			"total":     len(parentIDs),
		})
	}

	log.Printf("[jobs] bulk shift complete: show=%d shifted=%d dropped=%d", payload.ShowID, shifted, dropped)
	h.hub.Broadcast("shift:complete", map[string]interface{}{
		"show_id": payload.ShowID,
		"shifted": shifted,
		"dropped": dropped,
	})
	return nil
}
