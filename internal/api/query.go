package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/salescope/salescope/internal/auth"
	"github.com/salescope/salescope/internal/observability"
	"github.com/salescope/salescope/internal/store"
)

type queryRequest struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type queryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "warehouse store is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}

	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	if !store.ReadOnlyStatement(request.SQL) {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only SELECT/WITH queries are allowed", false, nil)
		return
	}

	start := time.Now()
	result, err := deps.Store.Execute(r.Context(), request.SQL, request.Params)
	observability.ObserveWarehouseQuery(time.Since(start), err != nil)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		Stats: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
			"row_count":   len(result.Rows),
		},
	})
}
