package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRestoreFilter_EmptyBodyMeansEverything(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/items/1/purged/restore", nil)

	ids, err := decodeRestoreFilter(r)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestDecodeRestoreFilter_ExplicitIDs(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/items/1/purged/restore",
		strings.NewReader(`{"backup_ids":[3,7]}`))

	ids, err := decodeRestoreFilter(r)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, ids)
}

func TestDecodeRestoreFilter_ChunkedBody(t *testing.T) {
	// Chunked uploads carry no Content-Length; the filter must still decode.
	r := httptest.NewRequest("POST", "/api/v1/items/1/purged/restore",
		strings.NewReader(`{"backup_ids":[5]}`))
	r.ContentLength = -1

	ids, err := decodeRestoreFilter(r)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
}

func TestDecodeRestoreFilter_MalformedBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/items/1/purged/restore",
		strings.NewReader(`{"backup_ids":`))

	_, err := decodeRestoreFilter(r)
	assert.Error(t, err)
}
