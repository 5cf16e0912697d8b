package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/salescope/salescope/internal/auth"
	"github.com/salescope/salescope/internal/observability"
	"github.com/salescope/salescope/internal/sqlbuilder"
	"github.com/salescope/salescope/internal/viz"
)

type nlQueryRequest struct {
	Question string `json:"question"`
}

// nlQueryResponse is the rule-engine envelope. Success false carries only
// the error; the caller is expected to degrade to a text-only answer.
type nlQueryResponse struct {
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	SQL         string         `json:"sql,omitempty"`
	Params      []any          `json:"params,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
	Columns     []string       `json:"columns,omitempty"`
	Rows        [][]any        `json:"rows,omitempty"`
	ChartData   *viz.ChartSpec `json:"chartData,omitempty"`
}

func handleNLQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Analyzer == nil || deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "NLQUERY_NOT_CONFIGURED", "rule engine dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req nlQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid nlquery request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	intent, err := deps.Analyzer.Analyze(question)
	if err != nil {
		writeJSON(w, http.StatusOK, nlQueryResponse{Success: false, Error: err.Error()})
		return
	}

	health := deps.Store.HealthCheck(r.Context())
	if !health.Connected {
		message := "database unavailable"
		if health.Error != "" {
			message += ": " + health.Error
		}
		writeJSON(w, http.StatusOK, nlQueryResponse{Success: false, Error: message})
		return
	}

	sqlText, params := sqlbuilder.Build(intent)
	start := time.Now()
	result, err := deps.Store.Execute(r.Context(), sqlText, params)
	observability.ObserveWarehouseQuery(time.Since(start), err != nil)
	if err != nil {
		writeJSON(w, http.StatusOK, nlQueryResponse{Success: false, Error: err.Error()})
		return
	}

	dataset := viz.Dataset{Columns: result.Columns, Rows: result.Rows}
	var chart *viz.ChartSpec
	if viz.ShouldVisualize(question, dataset, false) {
		chart = viz.Normalize(viz.BuildChart(question, dataset))
	}

	writeJSON(w, http.StatusOK, nlQueryResponse{
		Success:     true,
		SQL:         sqlText,
		Params:      params,
		Explanation: deps.Analyzer.Explain(intent),
		Columns:     result.Columns,
		Rows:        result.Rows,
		ChartData:   chart,
	})
}
