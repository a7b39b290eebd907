package web

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"clubledger/internal/application/orchestrators"
	"clubledger/internal/domain/outbox"
)

// handleAdminOutboxList handles GET /api/admin/outbox?status=&limit=
// Lists failed entries by default; status=all lists every entry newest first.
func handleAdminOutboxList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryLimit(r, 50, 100)

	var entries []outbox.Entry
	var err error
	switch status := r.URL.Query().Get("status"); status {
	case "", outbox.StatusFailed:
		entries, err = stores.OutboxStore.ListFailed(ctx, limit)
	case "pending":
		entries, err = stores.OutboxStore.ListPending(ctx, limit)
	case "all":
		entries, err = stores.OutboxStore.ListRecent(ctx, "", limit)
	case outbox.StatusRetrying, outbox.StatusDone, outbox.StatusAbandoned:
		entries, err = stores.OutboxStore.ListRecent(ctx, status, limit)
	default:
		badRequest(w, "unknown status")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []outbox.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleAdminOutboxRetry handles POST /api/admin/outbox/{id}/retry
// Delivers the entry now, granting one more attempt to a failed entry.
func handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if services.Outbox == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "outbox processing disabled"})
		return
	}
	id := r.PathValue("id")
	entry, err := services.Outbox.ProcessSingle(r.Context(), id)
	if err != nil {
		writeOutboxError(w, err)
		return
	}
	slog.Info("outbox_manual_retry", "entry_id", id, "status", entry.Status)
	writeJSON(w, http.StatusOK, entry)
}

// handleAdminOutboxAbandon handles POST /api/admin/outbox/{id}/abandon
func handleAdminOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	if services.Outbox == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "outbox processing disabled"})
		return
	}
	id := r.PathValue("id")
	if err := services.Outbox.AbandonEntry(r.Context(), id); err != nil {
		writeOutboxError(w, err)
		return
	}
	slog.Info("outbox_abandoned", "entry_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": outbox.StatusAbandoned})
}

func writeOutboxError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "outbox entry not found"})
	case errors.Is(err, orchestrators.ErrEntryTerminal):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		internalError(w, err)
	}
}
