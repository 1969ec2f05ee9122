package shift

import (
	"sort"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/google/uuid"
)

// Batch is one transactional unit of marker mutations. The repository runs
// updates and deletes first, then inserts, then recomputes dense per-parent
// indexes for every parent listed in Reindex, all inside a single
// transaction, so intermediate states are never observable.
type Batch struct {
	BatchID string
	Updates []models.Marker
	Inserts []models.Marker
	Deletes []int64
	// Backups snapshot the pre-mutation state of every touched marker and
	// are written in the same transaction.
	Backups []models.MarkerBackup
	// InsertOp, when set, makes the store record a backup row for each
	// insert after its id is known (inserts have no prior state to snapshot
	// up front).
	InsertOp models.BackupOp
	// Reindex lists every parent whose marker ordering may have changed.
	Reindex []int64
}

// NewBatch allocates a batch with a fresh batch id for the backup trail.
func NewBatch() *Batch {
	return &Batch{BatchID: uuid.NewString()}
}

// BackupFor snapshots a marker's current state for the backup table.
func BackupFor(m models.Marker, op models.BackupOp, batchID string) models.MarkerBackup {
	return models.MarkerBackup{
		BatchID:       batchID,
		Op:            op,
		MarkerID:      m.ID,
		ParentID:      m.ParentID,
		MarkerType:    m.MarkerType,
		StartMs:       m.StartMs,
		EndMs:         m.EndMs,
		CreatedByUser: m.CreatedByUser,
	}
}

// RestoreBatch builds the transactional batch that re-inserts purged markers
// from their backup snapshots. backupIDs narrows the restore to specific
// backup rows; empty means everything. The restore trail row is recorded
// under the purged marker's original id, closing out that id's trail so the
// purge scan stops reporting it; the re-inserted row gets a fresh id and
// starts a trail of its own.
func RestoreBatch(purged []models.MarkerBackup, backupIDs []int64) *Batch {
	wanted := make(map[int64]bool, len(backupIDs))
	for _, id := range backupIDs {
		wanted[id] = true
	}

	batch := NewBatch()
	touched := make(map[int64]bool)
	for _, b := range purged {
		if len(wanted) > 0 && !wanted[b.ID] {
			continue
		}
		restored := models.Marker{
			ID:            b.MarkerID,
			ParentID:      b.ParentID,
			MarkerType:    b.MarkerType,
			StartMs:       b.StartMs,
			EndMs:         b.EndMs,
			CreatedByUser: b.CreatedByUser,
		}
		insert := restored
		insert.ID = 0
		batch.Inserts = append(batch.Inserts, insert)
		batch.Backups = append(batch.Backups, BackupFor(restored, models.BackupOpRestore, batch.BatchID))
		touched[b.ParentID] = true
	}
	for pid := range touched {
		batch.Reindex = append(batch.Reindex, pid)
	}
	sort.Slice(batch.Reindex, func(i, j int) bool { return batch.Reindex[i] < batch.Reindex[j] })
	return batch
}

// buildBatch turns the final candidate set into one transactional batch.
// Disabled and Invalid candidates are skipped (a forced commit drops
// Invalid markers by simply not moving them) and Truncated candidates carry
// their clamped bounds. Candidates whose position did not change produce no
// writes.
func buildBatch(candidates []Candidate) *Batch {
	batch := NewBatch()
	touched := make(map[int64]bool)
	for _, c := range candidates {
		if !c.Enabled || c.Class == Invalid {
			continue
		}
		if c.NewStart == c.Marker.StartMs && c.NewEnd == c.Marker.EndMs {
			continue
		}
		m := c.Marker
		m.StartMs = c.NewStart
		m.EndMs = c.NewEnd
		batch.Updates = append(batch.Updates, m)
		batch.Backups = append(batch.Backups, BackupFor(c.Marker, models.BackupOpShift, batch.BatchID))
		touched[m.ParentID] = true
	}
	for pid := range touched {
		batch.Reindex = append(batch.Reindex, pid)
	}
	sort.Slice(batch.Reindex, func(i, j int) bool { return batch.Reindex[i] < batch.Reindex[j] })
	return batch
}
