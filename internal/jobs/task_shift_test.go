package jobs

import (
	"testing"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/JustinTDCT/MarkerVault/internal/shift"
	"github.com/stretchr/testify/assert"
)

func cand(id int64, start, end, newStart, newEnd int64, class shift.Classification, enabled bool) shift.Candidate {
	return shift.Candidate{
		Marker:   models.Marker{ID: id, ParentID: 1, MarkerType: models.MarkerIntro, StartMs: start, EndMs: end},
		NewStart: newStart,
		NewEnd:   newEnd,
		Class:    class,
		Enabled:  enabled,
	}
}

func TestTallyShift_CountsOnlyMovedMarkers(t *testing.T) {
	candidates := []shift.Candidate{
		cand(1, 10000, 20000, 15000, 25000, shift.Clean, true),
		// Already at the target position: no write, not counted.
		cand(2, 30000, 40000, 30000, 40000, shift.Clean, true),
	}

	shifted, dropped := tallyShift(candidates)
	assert.Equal(t, 1, shifted)
	assert.Equal(t, 0, dropped)
}

func TestTallyShift_CountsDroppedInvalid(t *testing.T) {
	candidates := []shift.Candidate{
		cand(1, 1000, 5000, 0, 0, shift.Invalid, true),
		cand(2, 100000, 110000, 90000, 100000, shift.Clean, true),
	}

	shifted, dropped := tallyShift(candidates)
	assert.Equal(t, 1, shifted)
	assert.Equal(t, 1, dropped)
}

func TestTallyShift_IgnoresDisabled(t *testing.T) {
	candidates := []shift.Candidate{
		cand(1, 10000, 20000, 15000, 25000, shift.Clean, false),
	}

	shifted, dropped := tallyShift(candidates)
	assert.Equal(t, 0, shifted)
	assert.Equal(t, 0, dropped)
}

func TestTallyShift_TruncatedCountsWhenClamped(t *testing.T) {
	candidates := []shift.Candidate{
		cand(1, 580000, 590000, 595000, 600000, shift.Truncated, true),
	}

	shifted, dropped := tallyShift(candidates)
	assert.Equal(t, 1, shifted)
	assert.Equal(t, 0, dropped)
}
