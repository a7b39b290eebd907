package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"clubledger/internal/application/listutil"
	"clubledger/internal/application/orchestrators"
	"clubledger/internal/application/projections"
	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/ledger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// partialFailureBody names the attendance chunk that failed.
type partialFailureBody struct {
	Error              string   `json:"error"`
	ChunkIndex         int      `json:"chunk_index"`
	TotalChunks        int      `json:"total_chunks"`
	CommittedPlayerIDs []string `json:"committed_player_ids"`
	FailedPlayerIDs    []string `json:"failed_player_ids"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// errorStatus maps the ledger error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var (
		validation  *ledger.ValidationError
		eligibility *ledger.EligibilityError
		conflict    *ledger.ConflictError
		partial     *ledger.PartialBatchFailure
	)
	switch {
	case errors.As(err, &partial):
		return http.StatusInternalServerError
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &eligibility):
		return http.StatusConflict
	case errors.As(err, &conflict):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrPlayerNotFound), errors.Is(err, ledger.ErrItemNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeLedgerError writes the response for an error returned by an
// orchestrator or projection.
func writeLedgerError(w http.ResponseWriter, err error) {
	var (
		validation  *ledger.ValidationError
		eligibility *ledger.EligibilityError
		partial     *ledger.PartialBatchFailure
	)
	status := errorStatus(err)
	switch {
	case errors.As(err, &partial):
		slog.Error("attendance_partial_failure",
			"chunk_index", partial.ChunkIndex,
			"total_chunks", partial.TotalChunks,
			"failed_players", len(partial.FailedPlayerIDs),
			"error", err,
		)
		writeJSON(w, status, partialFailureBody{
			Error:              "attendance partially applied",
			ChunkIndex:         partial.ChunkIndex,
			TotalChunks:        partial.TotalChunks,
			CommittedPlayerIDs: nonNil(partial.CommittedPlayerIDs),
			FailedPlayerIDs:    nonNil(partial.FailedPlayerIDs),
		})
	case errors.As(err, &validation):
		writeJSON(w, status, errorBody{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &eligibility):
		writeJSON(w, status, errorBody{Error: "not eligible", Reason: eligibility.Reason})
	case status == http.StatusServiceUnavailable:
		slog.Warn("ledger_conflict", "error", err)
		w.Header().Set("Retry-After", "1")
		writeJSON(w, status, errorBody{Error: "ledger busy, retry"})
	case status == http.StatusNotFound:
		writeJSON(w, status, errorBody{Error: "not found"})
	default:
		internalError(w, err)
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// queryLimit parses ?limit=, falling back to def outside 1..max.
func queryLimit(r *http.Request, def, max int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= max {
		return n
	}
	return def
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if services.Health != nil {
		if err := services.Health(r.Context()); err != nil {
			slog.Error("healthz_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleApplyAttendance handles POST /api/attendance
// Saves one subgroup session and pays or deducts attendance points.
func handleApplyAttendance(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.ApplyAttendanceInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := orchestrators.ExecuteApplyAttendance(r.Context(), input, orchestrators.ApplyAttendanceDeps{
		Runner:   services.Runner,
		Env:      services.Env,
		Policy:   services.Policy.Attendance,
		ChunkOps: services.Policy.ChunkOps,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func rewardDeps() orchestrators.ApplyRewardDeps {
	return orchestrators.ApplyRewardDeps{
		Runner:                   services.Runner,
		Env:                      services.Env,
		FoundationalKeyword:      services.Policy.FoundationalKeyword,
		DefaultPartnerPercentage: services.Policy.DefaultPartnerPercentage,
	}
}

// handleApplyReward handles POST /api/rewards
// Applies a manual, penalty, challenge or exercise reward to one player.
func handleApplyReward(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.ApplyRewardInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := orchestrators.ExecuteApplyReward(r.Context(), input, rewardDeps())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// batchItemResponse is one player's outcome in a batch reward.
type batchItemResponse struct {
	PlayerID string                           `json:"player_id"`
	Status   int                              `json:"status"`
	Result   *orchestrators.ApplyRewardResult `json:"result,omitempty"`
	Error    string                           `json:"error,omitempty"`
}

// handleApplyRewardBatch handles POST /api/rewards/batch
// Each player is applied in its own unit; one failure does not stop the rest.
func handleApplyRewardBatch(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.ApplyRewardBatchInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := orchestrators.ExecuteApplyRewardBatch(r.Context(), input, rewardDeps())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	items := make([]batchItemResponse, 0, len(result.Items))
	for _, it := range result.Items {
		resp := batchItemResponse{PlayerID: it.PlayerID, Status: http.StatusCreated, Result: it.Result}
		if it.Err != nil {
			resp.Status = errorStatus(it.Err)
			resp.Error = it.Err.Error()
			if resp.Status == http.StatusInternalServerError {
				resp.Error = "internal server error"
			}
		}
		items = append(items, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":     items,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}

// handleListItems handles GET /api/items?kind=
func handleListItems(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != catalog.KindChallenge && kind != catalog.KindExercise {
		badRequest(w, "kind must be challenge or exercise")
		return
	}
	items, err := stores.CatalogStore.ListItems(r.Context(), kind)
	if err != nil {
		internalError(w, err)
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleMilestoneProgress handles GET /api/milestones/progress?player_id=&item_id=
func handleMilestoneProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := projections.QueryMilestoneProgress(r.Context(), projections.GetMilestoneProgressQuery{
		PlayerID: q.Get("player_id"),
		ItemID:   q.Get("item_id"),
	}, projections.GetMilestoneProgressDeps{
		ItemStore:     stores.CatalogStore,
		ProgressStore: stores.MilestoneStore,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePlayerHistory handles GET /api/players/{id}/history?limit=
func handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryLedgerHistory(r.Context(), projections.GetLedgerHistoryQuery{
		PlayerID: r.PathValue("id"),
		Limit:    queryLimit(r, projections.DefaultHistoryLimit, 500),
	}, projections.GetLedgerHistoryDeps{LedgerStore: stores.LedgerStore})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePlayerList handles GET /api/players?subgroup=&page=&per_page=
func handlePlayerList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := projections.QueryPlayerList(r.Context(), projections.GetPlayerListQuery{
		SubgroupID: q.Get("subgroup"),
		Page:       listutil.ParsePageParams(q),
	}, projections.GetPlayerListDeps{AccountStore: stores.AccountStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePlayerRank handles GET /api/players/{id}/rank
func handlePlayerRank(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryRankProgress(r.Context(), projections.GetRankProgressQuery{
		PlayerID: r.PathValue("id"),
	}, projections.GetRankProgressDeps{
		AccountStore: stores.AccountStore,
		StreakStore:  stores.StreakStore,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePlayerNotifications handles GET /api/players/{id}/notifications?unread=true&limit=
func handlePlayerNotifications(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	result, err := projections.QueryNotifications(r.Context(), projections.GetNotificationsQuery{
		PlayerID:   r.PathValue("id"),
		UnreadOnly: unread,
		Limit:      queryLimit(r, 50, 200),
	}, projections.GetNotificationsDeps{NotificationStore: stores.NotificationStore})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleNotificationRead handles POST /api/players/{id}/notifications/{notificationID}/read
func handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := stores.NotificationStore.MarkRead(r.Context(), r.PathValue("id"), r.PathValue("notificationID")); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminPerf handles GET /api/admin/perf?minutes=
// Returns request and query timings from the in-memory collector.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "perf collection disabled"})
		return
	}
	window := time.Hour
	if n, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && n > 0 && n <= 24*60 {
		window = time.Duration(n) * time.Minute
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), 10))
}
