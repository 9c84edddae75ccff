package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rig-profit/internal/errors"
	"github.com/rig-profit/internal/logging"
	"github.com/rig-profit/internal/service"
	"github.com/rig-profit/internal/types"
)

// mockOrchestrator validates the trigger secret the way the real one does
// and records the auth it received.
type mockOrchestrator struct {
	secret   string
	summary  *service.RunSummary
	err      error
	lastAuth service.TriggerAuth
}

func (m *mockOrchestrator) Run(ctx context.Context, auth service.TriggerAuth) (*service.RunSummary, error) {
	m.lastAuth = auth
	if m.secret != "" &&
		auth.HeaderSecret != m.secret && auth.BearerToken != m.secret && auth.QueryToken != m.secret {
		return &service.RunSummary{State: types.RunStateFailed}, apperrors.NewUnauthorizedError("trigger secret mismatch")
	}
	if m.err != nil {
		return &service.RunSummary{State: types.RunStateFailed}, m.err
	}
	return m.summary, nil
}

func newTestServer(orch OrchestratorInterface) *Server {
	return NewServer(
		&ServerConfig{Host: "127.0.0.1", Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		orch,
		logging.NewLogger(logging.LevelFatal, logging.FormatText),
	)
}

func completedSummary() *service.RunSummary {
	return &service.RunSummary{
		RunID:                "run-1",
		State:                types.RunStateCompleted,
		ComputedAt:           time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		DurationMs:           412,
		DevicesTotal:         12,
		SnapshotsWritten:     10,
		Skipped:              2,
		ReferencePriceUsd:    60000,
		ReferencePriceSource: types.PriceSourceLive,
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&mockOrchestrator{summary: completedSummary()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestSnapshotRun_Success(t *testing.T) {
	orch := &mockOrchestrator{secret: "s3cret", summary: completedSummary()}
	server := newTestServer(orch)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/run", nil)
	req.Header.Set("X-Trigger-Token", "s3cret")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Ok)
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, 12, body.DevicesTotal)
	assert.Equal(t, 10, body.SnapshotsWritten)
	assert.Equal(t, 2, body.Skipped)
	assert.InDelta(t, 60000.0, body.ReferencePriceUsd, 1e-9)
	assert.Equal(t, types.PriceSourceLive, body.ReferencePriceSource)
}

func TestSnapshotRun_AuthCarriers(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*http.Request)
		status  int
	}{
		{
			"header token",
			func(r *http.Request) { r.Header.Set("X-Trigger-Token", "s3cret") },
			http.StatusOK,
		},
		{
			"bearer token",
			func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") },
			http.StatusOK,
		},
		{
			"query token",
			func(r *http.Request) { r.URL.RawQuery = "token=s3cret" },
			http.StatusOK,
		},
		{
			"no credential",
			func(r *http.Request) {},
			http.StatusUnauthorized,
		},
		{
			"wrong secret",
			func(r *http.Request) { r.Header.Set("X-Trigger-Token", "nope") },
			http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &mockOrchestrator{secret: "s3cret", summary: completedSummary()}
			server := newTestServer(orch)

			req := httptest.NewRequest(http.MethodGet, "/api/snapshots/run", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSnapshotRun_UnauthorizedBody(t *testing.T) {
	server := newTestServer(&mockOrchestrator{secret: "s3cret"})

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/run", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ok)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestSnapshotRun_SharedInputFailure(t *testing.T) {
	orch := &mockOrchestrator{
		summary: completedSummary(),
		err:     apperrors.NewSharedInputError("payout rate feed", assert.AnError),
	}
	server := newTestServer(orch)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/run", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SHARED_INPUT_UNAVAILABLE", body.Error.Code)
}

func TestSnapshotRun_PersistenceFailure(t *testing.T) {
	orch := &mockOrchestrator{
		summary: completedSummary(),
		err:     apperrors.NewPersistenceError("write snapshots", assert.AnError),
	}
	server := newTestServer(orch)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/run", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExtractTriggerAuth_PassesUserAgent(t *testing.T) {
	orch := &mockOrchestrator{summary: completedSummary()}
	server := newTestServer(orch)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/run", nil)
	req.Header.Set("User-Agent", "rig-profit-cron/1.2")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "rig-profit-cron/1.2", orch.lastAuth.UserAgent)
}
