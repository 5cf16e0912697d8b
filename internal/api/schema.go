package api

import (
	"net/http"
	"strconv"

	"github.com/salescope/salescope/internal/auth"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema catalog is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	sampleRows := schemaSampleRows(deps)
	tables := make([]map[string]any, 0, 3)
	for _, table := range deps.Catalog.Tables() {
		columns := make([]map[string]any, 0, len(table.Columns))
		for _, col := range table.Columns {
			if col.Internal() {
				continue
			}
			columns = append(columns, map[string]any{
				"name":        col.StorageName,
				"type":        string(col.Type),
				"description": col.Description,
				"nullable":    col.Nullable,
			})
		}
		entry := map[string]any{
			"name":        table.Name,
			"description": table.Description,
			"columns":     columns,
		}
		if deps.Store != nil && sampleRows > 0 {
			// Sample fetch failures leave the entry without rows rather
			// than failing the whole schema response.
			result, err := deps.Store.Execute(r.Context(), "SELECT * FROM "+table.StorageName+" LIMIT "+strconv.Itoa(sampleRows), nil)
			if err == nil {
				entry["sampleColumns"] = result.Columns
				entry["sampleRows"] = result.Rows
			}
		}
		tables = append(tables, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func schemaSampleRows(deps Dependencies) int {
	if deps.SchemaSampleRows > 0 {
		return deps.SchemaSampleRows
	}
	return 5
}
