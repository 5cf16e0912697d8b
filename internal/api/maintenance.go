package api

import (
	"net/http"

	"github.com/salescope/salescope/internal/auth"
)

func handleRetentionRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Maintenance == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MAINTENANCE_NOT_CONFIGURED", "maintenance service is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	summary, err := deps.Maintenance.RunRetentionOnce(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "RETENTION_FAILED", "retention run failed", true, map[string]any{
			"details": err.Error(),
			"summary": summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"summary": summary,
	})
}

func handleDatasetCheckRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Maintenance == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MAINTENANCE_NOT_CONFIGURED", "maintenance service is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	summary, err := deps.Maintenance.RunDatasetCheckOnce(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DATASET_CHECK_FAILED", "dataset check failed", true, map[string]any{
			"details": err.Error(),
			"summary": summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"summary": summary,
	})
}
