package nlquery

import (
	"github.com/salescope/salescope/internal/schema"
)

type AggregateFn string

const (
	AggregateNone  AggregateFn = ""
	AggregateSum   AggregateFn = "SUM"
	AggregateAvg   AggregateFn = "AVG"
	AggregateCount AggregateFn = "COUNT"
)

type Operator string

const (
	OpEquals         Operator = "="
	OpLike           Operator = "LIKE"
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
)

type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// SelectedColumn is one projected output of a statement. Expr is a
// table-qualified column reference or a SQL expression; Column holds the
// underlying storage column name when there is one, and is what duplicate
// detection keys on.
type SelectedColumn struct {
	Expr      string
	Alias     string
	Column    string
	Aggregate AggregateFn
}

// Filter renders as `Field Operator ?`. Field and Operator are inlined into
// the SQL text, so they must only ever come from the schema catalog and the
// Operator constants above; only Value is parameterized.
type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

type Sort struct {
	Field     string
	Direction Direction
	Aggregate bool
}

// Intent is the schema-bound interpretation of one natural-language
// question, built per request and discarded after SQL rendering.
type Intent struct {
	Main       schema.Table
	Join       *schema.Table
	Columns    []SelectedColumn
	Aggregated bool
	GroupBy    []string
	Filters    []Filter
	Sort       *Sort
	Limit      int
}

func (in *Intent) HasAggregate() bool {
	for _, col := range in.Columns {
		if col.Aggregate != AggregateNone {
			return true
		}
	}
	return false
}

func (in *Intent) hasAggregateOn(storageName string) bool {
	for _, col := range in.Columns {
		if col.Column == storageName && col.Aggregate != AggregateNone {
			return true
		}
	}
	return false
}

// addColumn appends col unless an equivalent selection (same storage column
// and aggregate, or same alias) is already present.
func (in *Intent) addColumn(col SelectedColumn) bool {
	for _, existing := range in.Columns {
		if col.Column != "" && existing.Column == col.Column && existing.Aggregate == col.Aggregate {
			return false
		}
		if col.Alias != "" && existing.Alias == col.Alias {
			return false
		}
	}
	in.Columns = append(in.Columns, col)
	return true
}

func (in *Intent) addGroup(item string) {
	for _, existing := range in.GroupBy {
		if existing == item {
			return
		}
	}
	in.GroupBy = append(in.GroupBy, item)
}

// OrderByAllowed reports whether ordering by sort is legal for a statement
// with the given aggregation state and GROUP BY items: always on a
// non-aggregated statement, otherwise only on an aggregate output or on a
// field that is itself grouped. The SQL builder and the intent explainer
// both rely on this single definition.
func OrderByAllowed(sort Sort, aggregated bool, groupBy []string) bool {
	if !aggregated {
		return true
	}
	if sort.Aggregate {
		return true
	}
	for _, item := range groupBy {
		if item == sort.Field {
			return true
		}
	}
	return false
}
