package nlquery

import (
	"fmt"
	"strings"
)

// Explain renders a one-sentence human description of an intent. Sorting is
// mentioned only when the builder would actually emit it, via the same
// OrderByAllowed check.
func (a *Analyzer) Explain(intent Intent) string {
	var b strings.Builder
	b.WriteString("Reads " + intent.Main.Name)
	if intent.Join != nil {
		b.WriteString(" joined with " + intent.Join.Name)
	}

	parts := make([]string, 0, len(intent.Columns))
	for _, col := range intent.Columns {
		switch {
		case col.Aggregate == AggregateCount:
			parts = append(parts, "the row count")
		case col.Aggregate != AggregateNone:
			parts = append(parts, strings.ToLower(string(col.Aggregate))+" of "+spoken(col.Column))
		case col.Column != "":
			parts = append(parts, spoken(col.Column))
		default:
			parts = append(parts, spoken(col.Alias))
		}
	}
	if len(parts) > 0 {
		b.WriteString(", returning " + strings.Join(parts, ", "))
	}

	if len(intent.GroupBy) > 0 {
		groups := make([]string, 0, len(intent.GroupBy))
		for _, item := range intent.GroupBy {
			groups = append(groups, describeGroupItem(item))
		}
		b.WriteString(", grouped by " + strings.Join(groups, ", "))
	}

	switch n := len(intent.Filters); {
	case n == 1:
		b.WriteString(", with 1 filter")
	case n > 1:
		b.WriteString(fmt.Sprintf(", with %d filters", n))
	}

	if intent.Sort != nil && OrderByAllowed(*intent.Sort, intent.Aggregated, intent.GroupBy) {
		dir := "ascending"
		if intent.Sort.Direction == Descending {
			dir = "descending"
		}
		b.WriteString(", ordered by " + spoken(unqualify(intent.Sort.Field)) + " " + dir)
	}

	if intent.Limit > 0 {
		b.WriteString(fmt.Sprintf(", limited to %d rows", intent.Limit))
	}
	b.WriteString(".")
	return b.String()
}

func describeGroupItem(item string) string {
	if strings.Contains(item, "(") {
		return GroupAlias(item)
	}
	return spoken(unqualify(item))
}

func unqualify(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		return field[i+1:]
	}
	return field
}
