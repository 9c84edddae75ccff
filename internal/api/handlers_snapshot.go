package api

import (
	"net/http"
	"strings"

	apperrors "github.com/rig-profit/internal/errors"
	"github.com/rig-profit/internal/service"
	"github.com/rig-profit/internal/types"
)

// triggerTokenHeader carries the shared trigger secret directly.
const triggerTokenHeader = "X-Trigger-Token"

// runResponse is the trigger endpoint's success payload.
type runResponse struct {
	Ok                   bool              `json:"ok"`
	RunID                string            `json:"runId"`
	ComputedAt           string            `json:"computedAt"`
	DurationMs           int64             `json:"durationMs"`
	DevicesTotal         int               `json:"devicesTotal"`
	SnapshotsWritten     int               `json:"snapshotsWritten"`
	Skipped              int               `json:"skipped"`
	ReferencePriceUsd    float64           `json:"referencePriceUsd"`
	ReferencePriceSource types.PriceSource `json:"referencePriceSource"`
}

// handleSnapshotRun triggers one orchestration run. Authorization is
// delegated to the orchestrator; this handler only extracts the credential
// carriers from the request.
func (s *Server) handleSnapshotRun(w http.ResponseWriter, r *http.Request) {
	auth := extractTriggerAuth(r)

	summary, err := s.orchestrator.Run(r.Context(), auth)
	if err != nil {
		respondError(w, apperrors.HTTPStatus(err), apperrors.ErrorCode(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, runResponse{
		Ok:                   true,
		RunID:                summary.RunID,
		ComputedAt:           summary.ComputedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		DurationMs:           summary.DurationMs,
		DevicesTotal:         summary.DevicesTotal,
		SnapshotsWritten:     summary.SnapshotsWritten,
		Skipped:              summary.Skipped,
		ReferencePriceUsd:    summary.ReferencePriceUsd,
		ReferencePriceSource: summary.ReferencePriceSource,
	})
}

// extractTriggerAuth pulls every supported credential carrier off the
// request. Validation happens in the orchestrator, not here.
func extractTriggerAuth(r *http.Request) service.TriggerAuth {
	auth := service.TriggerAuth{
		HeaderSecret: r.Header.Get(triggerTokenHeader),
		QueryToken:   r.URL.Query().Get("token"),
		UserAgent:    r.Header.Get("User-Agent"),
	}

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		auth.BearerToken = strings.TrimPrefix(header, "Bearer ")
	}

	return auth
}
