package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/salescope/salescope/internal/auth"
	"github.com/salescope/salescope/internal/history"
)

func handleHistoryList(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "exchange recording is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	exchanges, err := deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list exchanges", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exchanges": exchanges})
}

func handleHistoryGet(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "exchange recording is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ID", "id path parameter must be a positive integer", false, nil)
		return
	}

	exchange, err := deps.History.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "EXCHANGE_NOT_FOUND", "exchange was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to get exchange", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, exchange)
}
