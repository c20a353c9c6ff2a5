package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/ragchat/internal/memory"
	"github.com/aiox-platform/ragchat/internal/middleware"
	"github.com/aiox-platform/ragchat/internal/prompt"
	"github.com/aiox-platform/ragchat/internal/retrieval"
)

func postChat(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.Chat(rec, req)
	return rec
}

func TestHandler_Chat(t *testing.T) {
	f := newFixture()
	rec := postChat(NewHandler(f.build()), `{"prompt":"hi","thread_id":"t1"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Hello! How can I help you with your store today?", body["response"])
	assert.Equal(t, "t1", body["thread_id"])
	assert.Equal(t, []any{}, body["usedChunks"])
}

func TestHandler_ChatMissingPrompt(t *testing.T) {
	rec := postChat(NewHandler(newFixture().build()), `{"thread_id":"t1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing 'prompt'")
}

func TestHandler_ChatMalformedBody(t *testing.T) {
	rec := postChat(NewHandler(newFixture().build()), `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ChatPersistenceFailure(t *testing.T) {
	f := newFixture()
	f.repo.upsertErr = errors.New("disk full")

	rec := postChat(NewHandler(f.build()), `{"prompt":"hi","thread_id":"t1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_ChatUnexpectedErrorIsApology(t *testing.T) {
	f := newFixture()
	f.cfg.Prompt = prompt.Config{}

	rec := postChat(NewHandler(f.build()), `{"prompt":"hi","thread_id":"t1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ApologyMessage, body.Response)
	assert.Equal(t, "t1", body.ThreadID)
	assert.Empty(t, body.UsedChunks)
}

type panickingRetriever struct{}

func (panickingRetriever) Retrieve(context.Context, []float32, int, int) ([]retrieval.Result, error) {
	var seen map[string]bool
	seen["x"] = true
	return nil, nil
}

func TestHandler_ChatPanicIsApology(t *testing.T) {
	f := newFixture()
	mgr := memory.NewManager(f.repo, f.summarizer, nil, memory.DefaultConfig())
	orch := NewOrchestrator(f.embedder, panickingRetriever{}, f.generator, mgr, f.events, f.cfg)

	handler := middleware.Recovery(http.HandlerFunc(NewHandler(orch).Chat))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"prompt":"hi","thread_id":"t1"}`))
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ApologyMessage, body.Response)
	assert.Equal(t, "t1", body.ThreadID)
}

func TestHandler_ChatApologyIssuesThreadID(t *testing.T) {
	f := newFixture()
	f.cfg.Prompt = prompt.Config{}

	rec := postChat(NewHandler(f.build()), `{"prompt":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ApologyMessage, body.Response)
	_, err := uuid.Parse(body.ThreadID)
	assert.NoError(t, err)
}
