package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/lib/pq"
)

// BackupRepository reads the marker backup trail written by CommitBatch and
// prunes it. Backups power purge detection: a marker whose latest backed-up
// state exists but whose live row is gone was removed behind our back.
type BackupRepository struct {
	db *sql.DB
}

func NewBackupRepository(db *sql.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

const backupColumns = `id, batch_id, op, marker_id, parent_id, marker_type, start_ms, end_ms, created_by_user, created_at`

// ListByParent returns the backup trail for one parent, newest first.
func (r *BackupRepository) ListByParent(ctx context.Context, parentID int64) ([]models.MarkerBackup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+backupColumns+`
		 FROM marker_backups
		 WHERE parent_id = $1
		 ORDER BY created_at DESC, id DESC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBackups(rows)
}

// PurgedForParents returns, for each marker that has a backup trail but no
// live row, its most recent backed-up state. Trails whose head already
// explains the missing row are excluded.
func (r *BackupRepository) PurgedForParents(ctx context.Context, parentIDs []int64) ([]models.MarkerBackup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (mb.marker_id) `+prefixedBackupColumns+`
		 FROM marker_backups mb
		 LEFT JOIN markers m ON m.id = mb.marker_id
		 WHERE mb.parent_id = ANY($1) AND m.id IS NULL
		 ORDER BY mb.marker_id, mb.created_at DESC, mb.id DESC`, pq.Array(parentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	backups, err := scanBackups(rows)
	if err != nil {
		return nil, err
	}
	return purgedFromTrail(backups), nil
}

// purgedFromTrail drops trail heads that explain why the live row is gone: a
// delete we made ourselves, or a restore that already re-inserted the marker
// under a new id. Without the restore exclusion the old id would be reported
// (and restored) again on every scan.
func purgedFromTrail(latest []models.MarkerBackup) []models.MarkerBackup {
	purged := latest[:0]
	for _, b := range latest {
		if b.Op == models.BackupOpDelete || b.Op == models.BackupOpRestore {
			continue
		}
		purged = append(purged, b)
	}
	return purged
}

const prefixedBackupColumns = `mb.id, mb.batch_id, mb.op, mb.marker_id, mb.parent_id, mb.marker_type, mb.start_ms, mb.end_ms, mb.created_by_user, mb.created_at`

// PruneOlderThan deletes backup rows past the retention window and returns
// the number removed.
func (r *BackupRepository) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM marker_backups WHERE created_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanBackups(rows *sql.Rows) ([]models.MarkerBackup, error) {
	var backups []models.MarkerBackup
	for rows.Next() {
		var b models.MarkerBackup
		if err := rows.Scan(&b.ID, &b.BatchID, &b.Op, &b.MarkerID, &b.ParentID,
			&b.MarkerType, &b.StartMs, &b.EndMs, &b.CreatedByUser, &b.CreatedAt); err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}
