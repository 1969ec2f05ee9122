package shift

import (
	"testing"

	"github.com/JustinTDCT/MarkerVault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const episodeMs = int64(600000) // ten minutes

func mk(id, parent int64, typ models.MarkerType, start, end int64) models.Marker {
	return models.Marker{ID: id, ParentID: parent, MarkerType: typ, StartMs: start, EndMs: end}
}

func planOne(t *testing.T, markers []models.Marker, req Request) []Candidate {
	t.Helper()
	out, err := Plan(markers, req, map[int64]int64{1: episodeMs})
	require.NoError(t, err)
	return out
}

func TestPlan_CleanShift(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerIntro, 10000, 20000)}
	req := Request{ParentIDs: []int64{1}, StartDeltaMs: 5000, EndDeltaMs: 5000, TypeFilter: models.FilterAll}

	out := planOne(t, markers, req)
	require.Len(t, out, 1)
	assert.Equal(t, Clean, out[0].Class)
	assert.Equal(t, int64(15000), out[0].NewStart)
	assert.Equal(t, int64(25000), out[0].NewEnd)
	assert.True(t, out[0].Enabled)
	assert.False(t, out[0].Linked)
}

func TestPlan_CleanShiftRoundTrips(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerIntro, 10000, 20000)}
	fwd := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 5000, EndDeltaMs: 5000, TypeFilter: models.FilterAll})
	require.Equal(t, Clean, fwd[0].Class)

	shifted := fwd[0].Marker
	shifted.StartMs = fwd[0].NewStart
	shifted.EndMs = fwd[0].NewEnd

	back := planOne(t, []models.Marker{shifted}, Request{ParentIDs: []int64{1}, StartDeltaMs: -5000, EndDeltaMs: -5000, TypeFilter: models.FilterAll})
	require.Equal(t, Clean, back[0].Class)
	assert.Equal(t, int64(10000), back[0].NewStart)
	assert.Equal(t, int64(20000), back[0].NewEnd)
}

func TestPlan_TruncatedAtStart(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerIntro, 500, 10000)}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: -1000, EndDeltaMs: -1000, TypeFilter: models.FilterAll})

	require.Len(t, out, 1)
	assert.Equal(t, Truncated, out[0].Class)
	assert.Equal(t, int64(0), out[0].NewStart)
	assert.Equal(t, int64(9000), out[0].NewEnd)
}

func TestPlan_TruncatedAtEnd(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerCredits, 580000, 590000)}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 15000, EndDeltaMs: 15000, TypeFilter: models.FilterAll})

	require.Len(t, out, 1)
	assert.Equal(t, Truncated, out[0].Class)
	assert.Equal(t, int64(595000), out[0].NewStart)
	assert.Equal(t, episodeMs, out[0].NewEnd)
}

func TestPlan_InvalidWhenEndBeforeZero(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerIntro, 1000, 5000)}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: -10000, EndDeltaMs: -10000, TypeFilter: models.FilterAll})

	require.Len(t, out, 1)
	assert.Equal(t, Invalid, out[0].Class)
}

func TestPlan_InvalidWhenStartPastDuration(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerCredits, 590000, 599000)}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 20000, EndDeltaMs: 20000, TypeFilter: models.FilterAll})

	require.Len(t, out, 1)
	assert.Equal(t, Invalid, out[0].Class)
}

func TestPlan_InvalidWhenClampCollapsesWidth(t *testing.T) {
	// Only the end moves, down to the start: zero width after clamping.
	markers := []models.Marker{mk(1, 1, models.MarkerIntro, 0, 500)}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 0, EndDeltaMs: -500, TypeFilter: models.FilterAll})

	require.Len(t, out, 1)
	assert.Equal(t, Invalid, out[0].Class)
}

func TestPlan_OverlapWithContextMarker(t *testing.T) {
	// Only intros are in scope; the credits marker stays put and the shifted
	// intro lands on top of it.
	markers := []models.Marker{
		mk(1, 1, models.MarkerIntro, 10000, 20000),
		mk(2, 1, models.MarkerCredits, 30000, 40000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 15000, EndDeltaMs: 15000, TypeFilter: models.FilterIntro})

	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].Marker.ID)
	assert.Equal(t, UnresolvedOverlap, out[0].Class)
}

func TestPlan_TouchingCountsAsOverlap(t *testing.T) {
	markers := []models.Marker{
		mk(1, 1, models.MarkerIntro, 10000, 20000),
		mk(2, 1, models.MarkerCredits, 30000, 40000),
	}
	// New end lands exactly on the context marker's start.
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 10000, EndDeltaMs: 10000, TypeFilter: models.FilterIntro})

	require.Len(t, out, 1)
	assert.Equal(t, UnresolvedOverlap, out[0].Class)
}

func TestPlan_SiblingsMoveTogetherWithoutOverlap(t *testing.T) {
	// Both markers shift by the same delta, so the gap between them is
	// preserved and no overlap is reported.
	markers := []models.Marker{
		mk(1, 1, models.MarkerIntro, 10000, 20000),
		mk(2, 1, models.MarkerIntro, 30000, 40000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 15000, EndDeltaMs: 15000, TypeFilter: models.FilterIntro})

	require.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, Clean, c.Class)
		assert.True(t, c.Linked)
	}
}

func TestPlan_IgnoredMarkerBlocksAsContext(t *testing.T) {
	// The ignored sibling stays at its original position; shifting onto it is
	// still an overlap.
	markers := []models.Marker{
		mk(1, 1, models.MarkerIntro, 10000, 20000),
		mk(2, 1, models.MarkerIntro, 30000, 40000),
	}
	req := Request{
		ParentIDs:        []int64{1},
		StartDeltaMs:     15000,
		EndDeltaMs:       15000,
		TypeFilter:       models.FilterIntro,
		IgnoredMarkerIDs: []int64{2},
	}
	out := planOne(t, markers, req)

	require.Len(t, out, 2)
	byID := map[int64]Candidate{out[0].Marker.ID: out[0], out[1].Marker.ID: out[1]}
	assert.Equal(t, UnresolvedOverlap, byID[1].Class)
	assert.True(t, byID[1].Enabled)
	assert.False(t, byID[2].Enabled)
}

func TestPlan_InvalidCandidateOccupiesNothing(t *testing.T) {
	// Marker 1 shifts off the front and becomes Invalid; marker 2 moves into
	// the space marker 1 used to occupy without conflict.
	markers := []models.Marker{
		mk(1, 1, models.MarkerIntro, 1000, 5000),
		mk(2, 1, models.MarkerIntro, 20000, 25000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: -18000, EndDeltaMs: -18000, TypeFilter: models.FilterIntro})

	require.Len(t, out, 2)
	byID := map[int64]Candidate{out[0].Marker.ID: out[0], out[1].Marker.ID: out[1]}
	assert.Equal(t, Invalid, byID[1].Class)
	assert.Equal(t, Clean, byID[2].Class)
	assert.Equal(t, int64(2000), byID[2].NewStart)
}

func TestPlan_TrailingMarkerClampsWhileSiblingStaysClean(t *testing.T) {
	markers := []models.Marker{
		mk(1, 1, models.MarkerCredits, 500000, 550000),
		mk(2, 1, models.MarkerCredits, 560000, 600000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 20000, EndDeltaMs: 20000, TypeFilter: models.FilterAll})

	require.Len(t, out, 2)
	byID := map[int64]Candidate{out[0].Marker.ID: out[0], out[1].Marker.ID: out[1]}
	assert.Equal(t, Clean, byID[1].Class)
	assert.Equal(t, int64(520000), byID[1].NewStart)
	assert.Equal(t, int64(570000), byID[1].NewEnd)
	assert.Equal(t, Truncated, byID[2].Class)
	assert.Equal(t, int64(580000), byID[2].NewStart)
	assert.Equal(t, episodeMs, byID[2].NewEnd)
}

func TestPlan_BothCleanWhenGapSurvivesClamp(t *testing.T) {
	markers := []models.Marker{
		mk(1, 1, models.MarkerCredits, 500000, 550000),
		mk(2, 1, models.MarkerCredits, 560000, 600000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 15000, EndDeltaMs: 15000, TypeFilter: models.FilterAll})

	require.Len(t, out, 2)
	byID := map[int64]Candidate{out[0].Marker.ID: out[0], out[1].Marker.ID: out[1]}
	assert.Equal(t, Clean, byID[1].Class)
	assert.Equal(t, int64(565000), byID[1].NewEnd)
	assert.Equal(t, Truncated, byID[2].Class)
	assert.Equal(t, int64(575000), byID[2].NewStart)
	assert.Equal(t, episodeMs, byID[2].NewEnd)
}

func TestPlan_AsymmetricDeltaCollidesSiblings(t *testing.T) {
	// Only the end moves, stretching the first marker into the second's
	// shifted range. Both enabled candidates report the overlap.
	markers := []models.Marker{
		mk(1, 1, models.MarkerAd, 10000, 20000),
		mk(2, 1, models.MarkerAd, 30000, 40000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 0, EndDeltaMs: 15000, TypeFilter: models.FilterAd})

	require.Len(t, out, 2)
	assert.Equal(t, UnresolvedOverlap, out[0].Class)
	assert.Equal(t, UnresolvedOverlap, out[1].Class)
}

func TestPlan_CandidatesOrderedByStartThenID(t *testing.T) {
	markers := []models.Marker{
		mk(7, 1, models.MarkerIntro, 30000, 40000),
		mk(3, 1, models.MarkerIntro, 10000, 20000),
		mk(5, 1, models.MarkerIntro, 10000, 15000),
	}
	out := planOne(t, markers, Request{ParentIDs: []int64{1}, StartDeltaMs: 1000, EndDeltaMs: 1000, TypeFilter: models.FilterAll})

	require.Len(t, out, 3)
	assert.Equal(t, int64(3), out[0].Marker.ID)
	assert.Equal(t, int64(5), out[1].Marker.ID)
	assert.Equal(t, int64(7), out[2].Marker.ID)
}

func TestPlan_NoMatchingMarkersIsValidationError(t *testing.T) {
	markers := []models.Marker{mk(1, 1, models.MarkerCredits, 10000, 20000)}
	_, err := Plan(markers, Request{ParentIDs: []int64{1}, TypeFilter: models.FilterIntro}, map[int64]int64{1: episodeMs})

	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPlan_MissingDurationIsValidationError(t *testing.T) {
	markers := []models.Marker{mk(1, 2, models.MarkerIntro, 10000, 20000)}
	_, err := Plan(markers, Request{ParentIDs: []int64{2}, TypeFilter: models.FilterAll}, map[int64]int64{1: episodeMs})

	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPlan_IsPure(t *testing.T) {
	markers := []models.Marker{
		mk(1, 1, models.MarkerIntro, 10000, 20000),
		mk(2, 1, models.MarkerCredits, 500000, 590000),
	}
	req := Request{ParentIDs: []int64{1}, StartDeltaMs: 15000, EndDeltaMs: 15000, TypeFilter: models.FilterAll}

	first := planOne(t, markers, req)
	second := planOne(t, markers, req)
	assert.Equal(t, first, second)

	// Inputs are untouched.
	assert.Equal(t, int64(10000), markers[0].StartMs)
	assert.Equal(t, int64(500000), markers[1].StartMs)
}
