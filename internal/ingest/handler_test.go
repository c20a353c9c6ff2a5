package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postIngest(h *Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Reindex(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil))
	return rec
}

func TestHandler_SyncReindex(t *testing.T) {
	svc := &fakeReindexer{res: &Result{Documents: 2, Chunks: 7, Duration: 1500 * time.Millisecond}}
	rec := postIngest(NewHandler(NewTrigger(svc, nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body reindexResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "Inserted 7 chunks successfully", body.Message)
	assert.Equal(t, 2, body.Documents)
	assert.Equal(t, 7, body.Chunks)
	assert.Equal(t, int64(1500), body.DurationMs)
}

func TestHandler_SyncFailure(t *testing.T) {
	svc := &fakeReindexer{err: errors.New("embedding generation failed or incomplete")}
	rec := postIngest(NewHandler(NewTrigger(svc, nil)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "embedding generation failed")
}

func TestHandler_AsyncQueues(t *testing.T) {
	pub := &fakePublisher{}
	rec := postIngest(NewHandler(NewTrigger(&fakeReindexer{}, pub)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body queuedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "queued", body.Status)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, pub.jobs[0].ID, body.JobID)
}

func TestHandler_AsyncPublishFailure(t *testing.T) {
	rec := postIngest(NewHandler(NewTrigger(&fakeReindexer{}, &fakePublisher{err: errors.New("timeout")})))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
