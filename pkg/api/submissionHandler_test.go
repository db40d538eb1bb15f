package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaykit/go-submitq/pkg/config"
	"github.com/relaykit/go-submitq/pkg/processor"
	"github.com/relaykit/go-submitq/pkg/ratelimit"
	"github.com/relaykit/go-submitq/pkg/store"
	"github.com/relaykit/go-submitq/pkg/submission"
	"github.com/relaykit/go-submitq/pkg/transport"
)

type stubEndpoint struct {
	err    error
	ledger transport.Ledger
}

func (s *stubEndpoint) Send(ctx context.Context, sub submission.Submission) (transport.Ack, error) {
	if s.err != nil {
		return transport.Ack{}, s.err
	}
	if err := s.ledger.AppendRecord(ctx, sub.Record(time.Now())); err != nil {
		return transport.Ack{}, err
	}
	return transport.Ack{ID: "srv_" + sub.QueueID}, nil
}

func newTestRouter(t *testing.T, endpointErr error) (http.Handler, *store.MemoryRepository) {
	t.Helper()
	repo := store.NewMemoryRepository()
	client := &stubEndpoint{err: endpointErr, ledger: repo}
	proc := processor.NewSubmissionProcessor(repo, client, ratelimit.New(repo), zap.NewNop())
	router := SetupRouter(zap.NewNop(), config.ServerSettings{Port: 8080}, proc, repo)
	return router, repo
}

func postSubmission(t *testing.T, router http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validPayload() map[string]string {
	return map[string]string{
		"name":       "Asha Verma",
		"email":      "asha@example.com",
		"phone":      "9876543210",
		"position":   "Field Technician",
		"experience": "4 years",
	}
}

func TestSubmit_Delivered(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := postSubmission(t, router, submitRequest{
		FormType: string(submission.FormJob),
		Data:     validPayload(),
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(processor.StatusDelivered), resp["status"])
	assert.Contains(t, resp["id"], "srv_")
}

func TestSubmit_TransientFailureQueues(t *testing.T) {
	router, repo := newTestRouter(t, &transport.NetworkError{Err: context.DeadlineExceeded})

	rec := postSubmission(t, router, submitRequest{
		FormType: string(submission.FormJob),
		Data:     validPayload(),
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)

	queued, err := repo.ListQueued(context.Background())
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	router, repo := newTestRouter(t, nil)

	rec := postSubmission(t, router, submitRequest{
		FormType: string(submission.FormJob),
		Data:     map[string]string{"email": "not-an-address"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Status string   `json:"status"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(processor.StatusRejectedValidation), resp.Status)
	assert.NotEmpty(t, resp.Errors)

	queued, err := repo.ListQueued(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queued, "invalid submissions must never reach the queue")
}

func TestSubmit_ServerRejection(t *testing.T) {
	router, _ := newTestRouter(t, &transport.ServerRejectedError{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    "duplicate application",
	})

	rec := postSubmission(t, router, submitRequest{
		FormType: string(submission.FormJob),
		Data:     validPayload(),
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate application")
}

func TestSubmit_RateLimited(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	var rec *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		rec = postSubmission(t, router, submitRequest{
			FormType: string(submission.FormJob),
			Data:     validPayload(),
		})
	}

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSubmit_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueListing(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	require.NoError(t, repo.Enqueue(context.Background(), submission.New(submission.FormAgent, validPayload())))

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestHistoryListing(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	// a delivered submission lands in the history
	rec := postSubmission(t, router, submitRequest{
		FormType: string(submission.FormJob),
		Data:     validPayload(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asha@example.com")
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":true`)
}
