package shift

import (
	"testing"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBatch_WritesOnlyMovedMarkers(t *testing.T) {
	candidates := []Candidate{
		{Marker: mk(1, 1, models.MarkerIntro, 10000, 20000), NewStart: 15000, NewEnd: 25000, Class: Clean, Enabled: true},
		{Marker: mk(2, 1, models.MarkerIntro, 30000, 40000), NewStart: 30000, NewEnd: 40000, Class: Clean, Enabled: true},
	}

	batch := buildBatch(candidates)
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, int64(1), batch.Updates[0].ID)
	assert.Equal(t, int64(15000), batch.Updates[0].StartMs)
	assert.Equal(t, int64(25000), batch.Updates[0].EndMs)
}

func TestBuildBatch_SkipsDisabledAndInvalid(t *testing.T) {
	candidates := []Candidate{
		{Marker: mk(1, 1, models.MarkerIntro, 10000, 20000), NewStart: 15000, NewEnd: 25000, Class: Clean, Enabled: false},
		{Marker: mk(2, 1, models.MarkerIntro, 1000, 5000), NewStart: 0, NewEnd: 0, Class: Invalid, Enabled: true},
		{Marker: mk(3, 1, models.MarkerIntro, 30000, 40000), NewStart: 35000, NewEnd: 45000, Class: Clean, Enabled: true},
	}

	batch := buildBatch(candidates)
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, int64(3), batch.Updates[0].ID)
}

func TestBuildBatch_TruncatedCarriesClampedBounds(t *testing.T) {
	candidates := []Candidate{
		{Marker: mk(1, 1, models.MarkerCredits, 580000, 590000), NewStart: 595000, NewEnd: 600000, Class: Truncated, Enabled: true},
	}

	batch := buildBatch(candidates)
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, int64(595000), batch.Updates[0].StartMs)
	assert.Equal(t, int64(600000), batch.Updates[0].EndMs)
}

func TestBuildBatch_BackupsSnapshotOriginalPositions(t *testing.T) {
	candidates := []Candidate{
		{Marker: mk(1, 1, models.MarkerIntro, 10000, 20000), NewStart: 15000, NewEnd: 25000, Class: Clean, Enabled: true},
	}

	batch := buildBatch(candidates)
	require.Len(t, batch.Backups, 1)
	b := batch.Backups[0]
	assert.Equal(t, models.BackupOpShift, b.Op)
	assert.Equal(t, int64(1), b.MarkerID)
	assert.Equal(t, int64(10000), b.StartMs)
	assert.Equal(t, int64(20000), b.EndMs)
	assert.Equal(t, batch.BatchID, b.BatchID)
	assert.NotEmpty(t, batch.BatchID)
}

func TestBuildBatch_ReindexListsTouchedParentsOnce(t *testing.T) {
	candidates := []Candidate{
		{Marker: mk(1, 5, models.MarkerIntro, 10000, 20000), NewStart: 15000, NewEnd: 25000, Class: Clean, Enabled: true},
		{Marker: mk(2, 5, models.MarkerIntro, 30000, 40000), NewStart: 35000, NewEnd: 45000, Class: Clean, Enabled: true},
		{Marker: mk(3, 2, models.MarkerIntro, 10000, 20000), NewStart: 15000, NewEnd: 25000, Class: Clean, Enabled: true},
	}

	batch := buildBatch(candidates)
	assert.Equal(t, []int64{2, 5}, batch.Reindex)
}

func TestRestoreBatch_TrailRowKeyedToOriginalMarkerID(t *testing.T) {
	purged := []models.MarkerBackup{
		{ID: 77, MarkerID: 41, ParentID: 1, MarkerType: models.MarkerIntro, StartMs: 10000, EndMs: 20000, Op: models.BackupOpShift},
	}

	batch := RestoreBatch(purged, nil)
	require.Len(t, batch.Inserts, 1)
	require.Len(t, batch.Backups, 1)

	// The insert gets a fresh id from the store; the trail row closes out
	// the purged marker's original id so it stops scanning as purged.
	assert.Equal(t, int64(0), batch.Inserts[0].ID)
	assert.Equal(t, int64(41), batch.Backups[0].MarkerID)
	assert.Equal(t, models.BackupOpRestore, batch.Backups[0].Op)
	assert.Equal(t, int64(10000), batch.Backups[0].StartMs)
	assert.Equal(t, int64(20000), batch.Backups[0].EndMs)
	assert.Empty(t, batch.InsertOp)
	assert.Equal(t, []int64{1}, batch.Reindex)
}

func TestRestoreBatch_FiltersByBackupID(t *testing.T) {
	purged := []models.MarkerBackup{
		{ID: 10, MarkerID: 1, ParentID: 1, MarkerType: models.MarkerIntro, StartMs: 1000, EndMs: 2000},
		{ID: 11, MarkerID: 2, ParentID: 2, MarkerType: models.MarkerCredits, StartMs: 3000, EndMs: 4000},
	}

	batch := RestoreBatch(purged, []int64{11})
	require.Len(t, batch.Inserts, 1)
	assert.Equal(t, int64(2), batch.Inserts[0].ParentID)
	assert.Equal(t, []int64{2}, batch.Reindex)
}

func TestRestoreBatch_EmptyFilterRestoresEverything(t *testing.T) {
	purged := []models.MarkerBackup{
		{ID: 10, MarkerID: 1, ParentID: 2, MarkerType: models.MarkerIntro, StartMs: 1000, EndMs: 2000},
		{ID: 11, MarkerID: 2, ParentID: 1, MarkerType: models.MarkerCredits, StartMs: 3000, EndMs: 4000},
	}

	batch := RestoreBatch(purged, []int64{})
	assert.Len(t, batch.Inserts, 2)
	assert.Len(t, batch.Backups, 2)
	assert.Equal(t, []int64{1, 2}, batch.Reindex)
}

func TestBuildBatch_NoChangesYieldsEmptyBatch(t *testing.T) {
	candidates := []Candidate{
		{Marker: mk(1, 1, models.MarkerIntro, 10000, 20000), NewStart: 10000, NewEnd: 20000, Class: Clean, Enabled: true},
	}

	batch := buildBatch(candidates)
	assert.Empty(t, batch.Updates)
	assert.Empty(t, batch.Backups)
	assert.Empty(t, batch.Reindex)
}
