package nlquery

import (
	"fmt"
	"strings"
)

type DateUnit string

const (
	UnitDay     DateUnit = "day"
	UnitWeek    DateUnit = "week"
	UnitMonth   DateUnit = "month"
	UnitQuarter DateUnit = "quarter"
	UnitYear    DateUnit = "year"
)

// Dialect renders the date-truncation expressions that differ between the
// supported engines. Everything else in the generated SQL is portable.
type Dialect interface {
	DateTrunc(unit DateUnit, column string) string
}

type PostgresDialect struct{}

func (PostgresDialect) DateTrunc(unit DateUnit, column string) string {
	switch unit {
	case UnitYear:
		return fmt.Sprintf("to_char(%s, 'YYYY')", column)
	case UnitQuarter:
		return fmt.Sprintf(`to_char(%s, 'YYYY-"Q"Q')`, column)
	case UnitWeek:
		return fmt.Sprintf(`to_char(%s, 'IYYY-"W"IW')`, column)
	case UnitDay:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", column)
	default:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	}
}

type DuckDBDialect struct{}

func (DuckDBDialect) DateTrunc(unit DateUnit, column string) string {
	switch unit {
	case UnitYear:
		return fmt.Sprintf("strftime(%s, '%%Y')", column)
	case UnitQuarter:
		return fmt.Sprintf("concat(strftime(%s, '%%Y'), '-Q', quarter(%s))", column, column)
	case UnitWeek:
		return fmt.Sprintf("strftime(%s, '%%Y-W%%W')", column)
	case UnitDay:
		return fmt.Sprintf("strftime(%s, '%%Y-%%m-%%d')", column)
	default:
		return fmt.Sprintf("strftime(%s, '%%Y-%%m')", column)
	}
}

// GroupAlias derives the output alias for a GROUP BY expression that is not
// a plain column reference. Recognition is textual, over the format markers
// the dialects above emit; unrecognized expressions fall back to a generic
// alias.
func GroupAlias(expr string) string {
	switch {
	case strings.Contains(expr, "quarter(") || strings.Contains(expr, `"Q"`):
		return "quarter"
	case strings.Contains(expr, `"W"`) || strings.Contains(expr, "%W") || strings.Contains(expr, "IW"):
		return "week"
	case strings.Contains(expr, "YYYY-MM-DD") || strings.Contains(expr, "%Y-%m-%d"):
		return "day"
	case strings.Contains(expr, "YYYY-MM") || strings.Contains(expr, "%Y-%m"):
		return "month"
	case strings.Contains(expr, "YYYY") || strings.Contains(expr, "%Y"):
		return "year"
	default:
		return "group_field"
	}
}
