package repository

import (
	"context"
	"database/sql"
)

// ItemRepository reads the episode/movie rows mirrored from the media
// server. This side of the schema is read-only: the editor never changes
// durations or season structure.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// ListEpisodeIDsByShow returns the metadata ids of every episode of a show,
// ordered by season then episode. Used to expand a show-wide bulk shift into
// a parent-id set.
func (r *ItemRepository) ListEpisodeIDsByShow(ctx context.Context, showID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT metadata_id
		 FROM parent_items
		 WHERE show_id = $1
		 ORDER BY season_index, item_index`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEpisodeIDsBySeason returns the metadata ids of one season's episodes.
func (r *ItemRepository) ListEpisodeIDsBySeason(ctx context.Context, showID int64, seasonIndex int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT metadata_id
		 FROM parent_items
		 WHERE show_id = $1 AND season_index = $2
		 ORDER BY item_index`, showID, seasonIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllParentIDs returns every known parent id. Used by the nightly purge scan.
func (r *ItemRepository) AllParentIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT metadata_id FROM parent_items ORDER BY metadata_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
