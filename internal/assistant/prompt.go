package assistant

import (
	"fmt"
	"strings"

	"github.com/salescope/salescope/internal/llm"
	"github.com/salescope/salescope/internal/schema"
)

const (
	toolQueryDatabase = "query_database"
	toolGenerateChart = "generate_chart"
)

func toolDefinitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        toolQueryDatabase,
			Description: "Run one read-only SQL query against the sales warehouse. Use ? placeholders for every literal value and pass the values in params, in order.",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The user's question, restated in plain language.",
				},
				"sql": map[string]any{
					"type":        "string",
					"description": "A single SELECT statement with ? placeholders.",
				},
				"params": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Positional values for the ? placeholders.",
				},
			},
			Required: []string{"query", "sql"},
		},
		{
			Name:        toolGenerateChart,
			Description: "Propose a visualization for the answer. When a query ran, the chart is rebuilt from the real rows and only the chart type is taken as a suggestion.",
			Properties: map[string]any{
				"chartType": map[string]any{
					"type": "string",
					"enum": []string{"bar", "multiBar", "line", "pie", "area", "stackedArea"},
				},
				"data": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "object"},
					"description": "Row objects to plot.",
				},
				"config":      map[string]any{"type": "object"},
				"chartConfig": map[string]any{"type": "object"},
			},
			Required: []string{"chartType", "data"},
		},
	}
}

func buildSystemPrompt(catalog *schema.Catalog, dialect string) string {
	var b strings.Builder
	b.WriteString("You are a sales analytics assistant for a retail sales warehouse. ")
	b.WriteString("You answer questions about sales transactions, product design and cost data, and delivery vehicles.\n\n")

	b.WriteString(dialectHint(dialect))
	b.WriteString("\n\nTables:\n")
	for _, table := range catalog.Tables() {
		fmt.Fprintf(&b, "\n%s (alias %s): %s\n", table.StorageName, table.Alias, table.Description)
		for _, col := range table.Columns {
			if col.Internal() {
				continue
			}
			suffix := ""
			if col.Nullable {
				suffix = ", nullable"
			}
			fmt.Fprintf(&b, "  - %s (%s%s): %s\n", col.StorageName, col.Type, suffix, col.Description)
		}
	}

	b.WriteString("\nJoin rules:\n")
	b.WriteString("  - sales_data joins product_design on product_name plus country, region, city.\n")
	b.WriteString("  - sales_data joins vehicle_master on delivery_plate plus country, region, city.\n")

	b.WriteString("\nWhen a question needs data, call query_database with the question and one SELECT statement. ")
	b.WriteString("Aggregate and LIMIT where sensible so result sets stay small. Never modify data.\n")
	b.WriteString("When a visualization would help the answer, call generate_chart.\n")
	b.WriteString("State only numbers that appear in the query results. ")
	b.WriteString("If the query fails, explain the failure briefly and answer without inventing figures.")
	return b.String()
}

func dialectHint(dialect string) string {
	if strings.EqualFold(dialect, "duckdb") {
		return "Database dialect: DuckDB. Use ? placeholders for literal values. For month truncation use strftime(column, '%Y-%m')."
	}
	return "Database dialect: PostgreSQL. Use ? placeholders for literal values; they are bound positionally. For month truncation use to_char(column, 'YYYY-MM')."
}
