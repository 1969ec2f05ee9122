package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/JustinTDCT/MarkerVault/internal/shift"
	"github.com/lib/pq"
)

// MarkerRepository is the marker store: it owns the markers table mirrored
// from the media server and implements the engine's transactional boundary.
type MarkerRepository struct {
	db *sql.DB
}

func NewMarkerRepository(db *sql.DB) *MarkerRepository {
	return &MarkerRepository{db: db}
}

const markerColumns = `id, parent_id, marker_type, start_ms, end_ms, marker_index, created_by_user, created_at, updated_at`

func scanMarker(row interface{ Scan(...interface{}) error }) (models.Marker, error) {
	var m models.Marker
	err := row.Scan(&m.ID, &m.ParentID, &m.MarkerType, &m.StartMs, &m.EndMs,
		&m.Index, &m.CreatedByUser, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// GetByID returns a single marker.
func (r *MarkerRepository) GetByID(ctx context.Context, id int64) (*models.Marker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+markerColumns+` FROM markers WHERE id = $1`, id)
	m, err := scanMarker(row)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMarkersForParents returns every marker for the given parent items,
// ordered by parent then start.
func (r *MarkerRepository) GetMarkersForParents(ctx context.Context, parentIDs []int64) ([]models.Marker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+markerColumns+`
		 FROM markers
		 WHERE parent_id = ANY($1)
		 ORDER BY parent_id, start_ms, id`, pq.Array(parentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []models.Marker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// GetParentItems returns the episode/movie rows for the given metadata ids.
func (r *MarkerRepository) GetParentItems(ctx context.Context, parentIDs []int64) (map[int64]models.ParentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT metadata_id, title, duration_ms, season_index, item_index, show_id
		 FROM parent_items
		 WHERE metadata_id = ANY($1)`, pq.Array(parentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64]models.ParentItem)
	for rows.Next() {
		var item models.ParentItem
		if err := rows.Scan(&item.MetadataID, &item.Title, &item.DurationMs,
			&item.SeasonIndex, &item.Index, &item.ShowID); err != nil {
			return nil, err
		}
		items[item.MetadataID] = item
	}
	return items, rows.Err()
}

// CommitBatch persists one batch of marker mutations atomically: updates and
// deletes first, then inserts, then backup rows, then dense index
// renumbering for every touched parent. Any failure rolls the whole batch
// back.
func (r *MarkerRepository) CommitBatch(ctx context.Context, batch *shift.Batch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range batch.Updates {
		res, err := tx.ExecContext(ctx,
			`UPDATE markers
			 SET start_ms = $1, end_ms = $2, marker_type = $3, updated_at = CURRENT_TIMESTAMP
			 WHERE id = $4`,
			m.StartMs, m.EndMs, m.MarkerType, m.ID)
		if err != nil {
			return fmt.Errorf("update marker %d: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update marker %d: not found", m.ID)
		}
	}

	if len(batch.Deletes) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM markers WHERE id = ANY($1)`, pq.Array(batch.Deletes)); err != nil {
			return fmt.Errorf("delete markers: %w", err)
		}
	}

	for i := range batch.Inserts {
		m := &batch.Inserts[i]
		err := tx.QueryRowContext(ctx,
			`INSERT INTO markers (parent_id, marker_type, start_ms, end_ms, marker_index, created_by_user)
			 VALUES ($1, $2, $3, $4, 0, $5)
			 RETURNING id, created_at, updated_at`,
			m.ParentID, m.MarkerType, m.StartMs, m.EndMs, m.CreatedByUser).
			Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert marker for parent %d: %w", m.ParentID, err)
		}
		if batch.InsertOp != "" {
			b := shift.BackupFor(*m, batch.InsertOp, batch.BatchID)
			batch.Backups = append(batch.Backups, b)
		}
	}

	for _, b := range batch.Backups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO marker_backups (batch_id, op, marker_id, parent_id, marker_type, start_ms, end_ms, created_by_user)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			batch.BatchID, b.Op, b.MarkerID, b.ParentID, b.MarkerType,
			b.StartMs, b.EndMs, b.CreatedByUser); err != nil {
			return fmt.Errorf("backup marker %d: %w", b.MarkerID, err)
		}
	}

	for _, parentID := range batch.Reindex {
		if err := reindexParent(ctx, tx, parentID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// reindexParent reassigns dense 0..n-1 indexes ordered by start ascending.
// Only markers whose index actually changed are written.
func reindexParent(ctx context.Context, tx *sql.Tx, parentID int64) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, marker_index FROM markers WHERE parent_id = $1 ORDER BY start_ms, id`, parentID)
	if err != nil {
		return fmt.Errorf("reindex parent %d: %w", parentID, err)
	}

	type move struct {
		id  int64
		idx int
	}
	var moves []move
	pos := 0
	for rows.Next() {
		var id int64
		var idx int
		if err := rows.Scan(&id, &idx); err != nil {
			rows.Close()
			return err
		}
		if idx != pos {
			moves = append(moves, move{id: id, idx: pos})
		}
		pos++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, mv := range moves {
		if _, err := tx.ExecContext(ctx,
			`UPDATE markers SET marker_index = $1 WHERE id = $2`, mv.idx, mv.id); err != nil {
			return fmt.Errorf("reindex marker %d: %w", mv.id, err)
		}
	}
	return nil
}
