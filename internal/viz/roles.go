package viz

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Dataset is a columnar query result as the selector sees it: column order
// is the statement's projection order, which the role heuristics rely on.
type Dataset struct {
	Columns []string
	Rows    [][]any
}

func (d Dataset) firstValue(column string) any {
	idx := -1
	for i, name := range d.Columns {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, row := range d.Rows {
		if idx < len(row) && row[idx] != nil {
			return row[idx]
		}
	}
	return nil
}

func (d Dataset) value(row []any, column string) any {
	for i, name := range d.Columns {
		if name == column && i < len(row) {
			return row[i]
		}
	}
	return nil
}

var timeNameParts = []string{"date", "month", "year", "period", "time_period"}

var dateFnParts = []string{"to_char(", "strftime(", "date_trunc(", "extract("}

func isDateExpression(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range dateFnParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func isTimeName(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range timeNameParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return isDateExpression(name)
}

func isNumericValue(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func isTextValue(v any) bool {
	_, ok := v.(string)
	return ok
}

func (d Dataset) TimeColumns() []string {
	var out []string
	for _, name := range d.Columns {
		if isTimeName(name) {
			out = append(out, name)
		}
	}
	return out
}

// NumericColumns excludes identifier-ish columns so charts never plot ids.
func (d Dataset) NumericColumns() []string {
	var out []string
	for _, name := range d.Columns {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "id") {
			continue
		}
		if isNumericValue(d.firstValue(name)) {
			out = append(out, name)
		}
	}
	return out
}

func (d Dataset) CategoricalColumns() []string {
	var out []string
	for _, name := range d.Columns {
		if isTimeName(name) {
			continue
		}
		if isTextValue(d.firstValue(name)) {
			out = append(out, name)
		}
	}
	return out
}

// chooseXAxis picks a time column first, then a categorical one, then the
// leading column.
func (d Dataset) chooseXAxis() (string, bool) {
	if cols := d.TimeColumns(); len(cols) > 0 {
		return cols[0], true
	}
	if cols := d.CategoricalColumns(); len(cols) > 0 {
		return cols[0], true
	}
	if len(d.Columns) > 0 {
		return d.Columns[0], true
	}
	return "", false
}

// Labelize turns a result column name into a display label.
func Labelize(name string) string {
	switch {
	case isDateExpression(name):
		return "Date"
	case strings.HasPrefix(name, "total_"):
		return "Total " + titleCase(strings.TrimPrefix(name, "total_"))
	case strings.HasPrefix(name, "avg_"):
		return "Average " + titleCase(strings.TrimPrefix(name, "avg_"))
	case strings.HasPrefix(name, "count_"):
		return "Count of " + titleCase(strings.TrimPrefix(name, "count_"))
	default:
		return titleCase(name)
	}
}

func titleCase(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

var (
	fullDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearMonthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	quarterRe   = regexp.MustCompile(`^(\d{4})-(Q\d)$`)
)

// formatDateLabel rewrites date-like axis values for display; anything
// unrecognized passes through untouched.
func formatDateLabel(raw string) string {
	switch {
	case fullDateRe.MatchString(raw):
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	case yearMonthRe.MatchString(raw):
		if t, err := time.Parse("2006-01", raw); err == nil {
			return t.Format("Jan 2006")
		}
	case quarterRe.MatchString(raw):
		m := quarterRe.FindStringSubmatch(raw)
		return m[2] + " " + m[1]
	}
	return raw
}

func displayValue(v any) any {
	if s, ok := v.(string); ok {
		return formatDateLabel(s)
	}
	return v
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
