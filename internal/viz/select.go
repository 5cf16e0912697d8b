package viz

import (
	"fmt"
	"math"
	"strings"
)

// BuildChart picks a chart type for the rows and reshapes them into the
// renderer contract. A nil return means no chart; it never returns a
// half-formed spec.
func BuildChart(query string, d Dataset) *ChartSpec {
	if len(d.Rows) == 0 || len(d.Columns) == 0 {
		return nil
	}
	q := strings.ToLower(query)
	switch chooseChartType(q, d) {
	case Pie:
		return buildPie(d)
	case MultiBar:
		return buildMultiSeries(d)
	case Line:
		return buildSingleSeries(q, d, Line)
	default:
		return buildSingleSeries(q, d, Bar)
	}
}

// BuildChartWithHint builds a chart of the requested type when the result
// shape supports it, and falls back to the default selection when it does
// not. The hint only steers the type; data shaping stays rule-driven.
func BuildChartWithHint(query string, d Dataset, hint ChartType) *ChartSpec {
	if len(d.Rows) == 0 || len(d.Columns) == 0 {
		return nil
	}
	q := strings.ToLower(query)
	var spec *ChartSpec
	switch hint {
	case Pie:
		spec = buildPie(d)
	case MultiBar, StackedArea:
		if spec = buildMultiSeries(d); spec != nil {
			spec.ChartType = hint
		}
	case Bar, Line, Area:
		spec = buildSingleSeries(q, d, hint)
	}
	if spec == nil {
		return BuildChart(query, d)
	}
	return spec
}

// chooseChartType works off the result schema alone, except for the two
// text overrides (distribution vocabulary and trend vocabulary).
func chooseChartType(q string, d Dataset) ChartType {
	hasTime := len(d.TimeColumns()) > 0
	numeric := len(d.NumericColumns())
	categorical := len(d.CategoricalColumns())

	switch {
	case containsAny(q, distributionWords):
		return Pie
	case containsAny(q, trendWords) && hasTime:
		return Line
	case hasTime && len(d.Rows) > 10:
		return Line
	case categorical >= 1 && numeric > 1:
		return MultiBar
	case numeric > 3:
		return MultiBar
	default:
		return Bar
	}
}

func buildSingleSeries(q string, d Dataset, chartType ChartType) *ChartSpec {
	x, ok := d.chooseXAxis()
	if !ok {
		return nil
	}
	value := pickValueColumn(q, d, x)
	if value == "" {
		return nil
	}

	data := make([]map[string]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		data = append(data, map[string]any{
			x:     displayValue(d.value(row, x)),
			value: sanitizeNumber(d.value(row, value)),
		})
	}

	spec := &ChartSpec{
		ChartType: chartType,
		Data:      data,
		Config: Config{
			XAxisKey:       x,
			Title:          Labelize(value) + " by " + Labelize(x),
			YAxisFormatter: inferFormatter(value),
		},
		ChartConfig: map[string]SeriesConfig{
			value: {DataKey: value, Name: Labelize(value), Color: paletteColor(0)},
		},
	}
	if chartType == Line {
		series := spec.ChartConfig[value]
		series.StrokeWidth = 2
		spec.ChartConfig[value] = series
	}
	return spec
}

func buildMultiSeries(d Dataset) *ChartSpec {
	x, ok := d.chooseXAxis()
	if !ok {
		return nil
	}
	var numeric []string
	for _, name := range d.NumericColumns() {
		if name != x {
			numeric = append(numeric, name)
		}
	}
	if len(numeric) == 0 {
		return nil
	}

	data := make([]map[string]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		item := map[string]any{x: displayValue(d.value(row, x))}
		for _, name := range numeric {
			item[name] = sanitizeNumber(d.value(row, name))
		}
		data = append(data, item)
	}

	series := make(map[string]SeriesConfig, len(numeric))
	for i, name := range numeric {
		series[name] = SeriesConfig{DataKey: name, Name: Labelize(name), Color: paletteColor(i)}
	}
	return &ChartSpec{
		ChartType: MultiBar,
		Data:      data,
		Config: Config{
			XAxisKey:       x,
			Title:          "Comparison by " + Labelize(x),
			YAxisFormatter: inferFormatter(numeric[0]),
		},
		ChartConfig: series,
	}
}

func buildPie(d Dataset) *ChartSpec {
	x, ok := d.chooseXAxis()
	if !ok {
		return nil
	}
	value := ""
	for _, name := range d.NumericColumns() {
		if name != x {
			value = name
			break
		}
	}
	if value == "" {
		return nil
	}

	data := make([]map[string]any, 0, len(d.Rows))
	series := make(map[string]SeriesConfig)
	for _, row := range d.Rows {
		segment := displayValue(d.value(row, x))
		data = append(data, map[string]any{
			"segment": segment,
			"value":   sanitizeNumber(d.value(row, value)),
		})
		key := fmt.Sprint(segment)
		if _, seen := series[key]; !seen {
			series[key] = SeriesConfig{DataKey: "value", Name: key, Color: paletteColor(len(series))}
		}
	}
	return &ChartSpec{
		ChartType: Pie,
		Data:      data,
		Config: Config{
			XAxisKey:       "segment",
			Title:          Labelize(value) + " by " + Labelize(x),
			LegendPosition: "bottom",
			YAxisFormatter: inferFormatter(value),
		},
		ChartConfig: series,
	}
}

// pickValueColumn prefers a metric the question names, then the customary
// aggregate names, then the leading numeric column.
func pickValueColumn(q string, d Dataset, exclude string) string {
	var numeric []string
	for _, name := range d.NumericColumns() {
		if name != exclude {
			numeric = append(numeric, name)
		}
	}
	if len(numeric) == 0 {
		return ""
	}
	for _, name := range numeric {
		if strings.Contains(q, strings.ToLower(name)) || strings.Contains(q, strings.ReplaceAll(strings.ToLower(name), "_", " ")) {
			return name
		}
	}
	for _, name := range numeric {
		if strings.Contains(strings.ToLower(name), "total") {
			return name
		}
	}
	for _, name := range numeric {
		if strings.Contains(strings.ToLower(name), "sum") {
			return name
		}
	}
	for _, name := range numeric {
		if strings.ToLower(name) == "quantity" {
			return name
		}
	}
	return numeric[0]
}

func inferFormatter(name string) Formatter {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "price") || strings.Contains(lower, "cost") ||
		strings.Contains(lower, "revenue") || strings.Contains(lower, "fee"):
		return FormatterCurrency
	case strings.Contains(lower, "count") || strings.Contains(lower, "quantity"):
		return FormatterInteger
	default:
		return FormatterNone
	}
}

// sanitizeNumber strips values JSON cannot carry.
func sanitizeNumber(v any) any {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}
	return v
}
