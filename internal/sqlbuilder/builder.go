package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/salescope/salescope/internal/nlquery"
	"github.com/salescope/salescope/internal/schema"
)

// Build renders an intent into a single SQL statement with `?` placeholders
// and the positional parameter list, one element per placeholder in order.
// Build never fails: a malformed intent degrades to the widest legal
// statement and correctness enforcement is left to the executing store.
func Build(intent nlquery.Intent) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectList(intent), ", "))
	b.WriteString(" FROM " + intent.Main.StorageName + " AS " + intent.Main.Alias)

	if intent.Join != nil {
		if cond, ok := schema.JoinCondition(intent.Main, *intent.Join); ok {
			b.WriteString(" LEFT JOIN " + intent.Join.StorageName + " AS " + intent.Join.Alias + " ON " + cond)
		}
	}

	params := make([]any, 0, len(intent.Filters))
	if len(intent.Filters) > 0 {
		clauses := make([]string, 0, len(intent.Filters))
		for _, f := range intent.Filters {
			clauses = append(clauses, fmt.Sprintf("%s %s ?", f.Field, f.Operator))
			params = append(params, f.Value)
		}
		b.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}

	if len(intent.GroupBy) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(intent.GroupBy, ", "))
	}

	if intent.Sort != nil && nlquery.OrderByAllowed(*intent.Sort, intent.Aggregated, intent.GroupBy) {
		b.WriteString(" ORDER BY " + intent.Sort.Field + " " + string(intent.Sort.Direction))
	}

	if intent.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", intent.Limit))
	}
	return b.String(), params
}

// selectList assembles the projection, synthesizing a selection for every
// GROUP BY item that is not already selected so the statement never groups
// by an invisible column.
func selectList(intent nlquery.Intent) []string {
	selected := make([]nlquery.SelectedColumn, len(intent.Columns))
	copy(selected, intent.Columns)

	for _, item := range intent.GroupBy {
		if covered(selected, item) {
			continue
		}
		if isColumnRef(item) {
			selected = append(selected, nlquery.SelectedColumn{Expr: item, Column: unqualify(item)})
			continue
		}
		alias := nlquery.GroupAlias(item)
		if aliasTaken(selected, alias) {
			continue
		}
		selected = append(selected, nlquery.SelectedColumn{Expr: item, Alias: alias})
	}

	if len(selected) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(selected))
	for _, col := range selected {
		out = append(out, render(col))
	}
	return out
}

func covered(selected []nlquery.SelectedColumn, item string) bool {
	name := ""
	if isColumnRef(item) {
		name = unqualify(item)
	}
	for _, col := range selected {
		if col.Expr == item {
			return true
		}
		if name != "" && col.Column == name {
			return true
		}
	}
	return false
}

func aliasTaken(selected []nlquery.SelectedColumn, alias string) bool {
	for _, col := range selected {
		if col.Alias == alias {
			return true
		}
	}
	return false
}

func render(col nlquery.SelectedColumn) string {
	expr := col.Expr
	if col.Aggregate != nlquery.AggregateNone {
		expr = fmt.Sprintf("%s(%s)", col.Aggregate, col.Expr)
	}
	if col.Alias != "" {
		return expr + " AS " + col.Alias
	}
	return expr
}

func isColumnRef(item string) bool {
	return !strings.Contains(item, "(")
}

func unqualify(item string) string {
	if i := strings.LastIndex(item, "."); i >= 0 {
		return item[i+1:]
	}
	return item
}
