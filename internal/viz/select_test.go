package viz

import (
	"math"
	"reflect"
	"testing"
)

func TestChooseChartType(t *testing.T) {
	tests := []struct {
		name  string
		query string
		data  Dataset
		want  ChartType
	}{
		{
			name:  "aggregate by category",
			query: "total sales by product",
			data: dataset([]string{"total_quantity", "product_name"},
				[]any{10.0, "chair"}, []any{4.0, "desk"}, []any{7.0, "lamp"}, []any{2.0, "sofa"}),
			want: Bar,
		},
		{
			name:  "trend vocabulary with a time column",
			query: "show me revenue trend by month",
			data: dataset([]string{"month", "total_cost"},
				[]any{"2024-01", 100.0}, []any{"2024-02", 90.0}, []any{"2024-03", 120.0}),
			want: Line,
		},
		{
			name:  "distribution vocabulary",
			query: "market share breakdown",
			data: dataset([]string{"region", "total_quantity"},
				[]any{"emea", 10.0}, []any{"apac", 5.0}),
			want: Pie,
		},
		{
			name:  "category plus several metrics",
			query: "store results",
			data: dataset([]string{"store_name", "revenue", "cost"},
				[]any{"north", 10.0, 4.0}, []any{"south", 8.0, 3.0}, []any{"east", 6.0, 2.0},
				[]any{"west", 5.0, 2.0}, []any{"hub", 4.0, 1.0}),
			want: MultiBar,
		},
		{
			name:  "long time series",
			query: "daily figures",
			data: dataset([]string{"sales_date", "total_cost"},
				[]any{"2024-01-01", 1.0}, []any{"2024-01-02", 2.0}, []any{"2024-01-03", 3.0},
				[]any{"2024-01-04", 4.0}, []any{"2024-01-05", 5.0}, []any{"2024-01-06", 6.0},
				[]any{"2024-01-07", 7.0}, []any{"2024-01-08", 8.0}, []any{"2024-01-09", 9.0},
				[]any{"2024-01-10", 10.0}, []any{"2024-01-11", 11.0}),
			want: Line,
		},
		{
			name:  "many metrics without category",
			query: "warehouse audit",
			data: dataset([]string{"m1", "m2", "m3", "m4"},
				[]any{1.0, 2.0, 3.0, 4.0}, []any{5.0, 6.0, 7.0, 8.0}),
			want: MultiBar,
		},
		{
			name:  "single metric single category",
			query: "warehouse audit",
			data: dataset([]string{"region", "total"},
				[]any{"emea", 1.0}, []any{"apac", 2.0}),
			want: Bar,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := chooseChartType(tc.query, tc.data); got != tc.want {
				t.Fatalf("chooseChartType(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestBuildChartBar(t *testing.T) {
	d := dataset([]string{"total_quantity", "product_name"},
		[]any{10.0, "chair"}, []any{4.0, "desk"}, []any{7.0, "lamp"}, []any{2.0, "sofa"})

	spec := BuildChart("total sales by product", d)
	if spec == nil {
		t.Fatal("BuildChart() = nil, want chart")
	}
	if spec.ChartType != Bar {
		t.Fatalf("ChartType = %q, want %q", spec.ChartType, Bar)
	}
	if spec.Config.XAxisKey != "product_name" {
		t.Fatalf("XAxisKey = %q, want product_name", spec.Config.XAxisKey)
	}
	if spec.Config.Title != "Total Quantity by Product Name" {
		t.Fatalf("Title = %q", spec.Config.Title)
	}
	if spec.Config.YAxisFormatter != FormatterInteger {
		t.Fatalf("YAxisFormatter = %q, want %q", spec.Config.YAxisFormatter, FormatterInteger)
	}
	want := map[string]any{"product_name": "chair", "total_quantity": 10.0}
	if !reflect.DeepEqual(spec.Data[0], want) {
		t.Fatalf("Data[0] = %#v, want %#v", spec.Data[0], want)
	}
	series, ok := spec.ChartConfig["total_quantity"]
	if !ok {
		t.Fatalf("ChartConfig missing total_quantity: %#v", spec.ChartConfig)
	}
	if series.Name != "Total Quantity" || series.Color != "#4a90d9" {
		t.Fatalf("series = %#v", series)
	}
}

func TestBuildChartLineStroke(t *testing.T) {
	d := dataset([]string{"month", "total_cost"},
		[]any{"2024-01", 100.0}, []any{"2024-02", 90.0}, []any{"2024-03", 120.0})

	spec := BuildChart("show me revenue trend by month", d)
	if spec == nil || spec.ChartType != Line {
		t.Fatalf("BuildChart() = %#v, want line chart", spec)
	}
	if got := spec.Data[0]["month"]; got != "Jan 2024" {
		t.Fatalf("month label = %v, want Jan 2024", got)
	}
	if spec.Config.YAxisFormatter != FormatterCurrency {
		t.Fatalf("YAxisFormatter = %q, want %q", spec.Config.YAxisFormatter, FormatterCurrency)
	}
	if spec.ChartConfig["total_cost"].StrokeWidth != 2 {
		t.Fatalf("StrokeWidth = %d, want 2", spec.ChartConfig["total_cost"].StrokeWidth)
	}
}

func TestBuildChartMultiSeries(t *testing.T) {
	d := dataset([]string{"store_name", "revenue", "cost"},
		[]any{"north", 10.0, 4.0}, []any{"south", 8.0, 3.0}, []any{"east", 6.0, 2.0},
		[]any{"west", 5.0, 2.0}, []any{"hub", 4.0, 1.0})

	spec := BuildChart("store results", d)
	if spec == nil || spec.ChartType != MultiBar {
		t.Fatalf("BuildChart() = %#v, want multiBar chart", spec)
	}
	if spec.Config.XAxisKey != "store_name" {
		t.Fatalf("XAxisKey = %q, want store_name", spec.Config.XAxisKey)
	}
	if spec.Config.Title != "Comparison by Store Name" {
		t.Fatalf("Title = %q", spec.Config.Title)
	}
	if len(spec.ChartConfig) != 2 {
		t.Fatalf("ChartConfig has %d series, want 2", len(spec.ChartConfig))
	}
	if spec.ChartConfig["revenue"].Color != "#4a90d9" || spec.ChartConfig["cost"].Color != "#e74c3c" {
		t.Fatalf("series colors = %#v", spec.ChartConfig)
	}
	want := map[string]any{"store_name": "north", "revenue": 10.0, "cost": 4.0}
	if !reflect.DeepEqual(spec.Data[0], want) {
		t.Fatalf("Data[0] = %#v, want %#v", spec.Data[0], want)
	}
}

func TestBuildChartPie(t *testing.T) {
	d := dataset([]string{"region", "total_quantity"},
		[]any{"emea", 10.0}, []any{"apac", 5.0}, []any{"amer", 7.0})

	spec := BuildChart("sales share by region", d)
	if spec == nil || spec.ChartType != Pie {
		t.Fatalf("BuildChart() = %#v, want pie chart", spec)
	}
	if spec.Config.XAxisKey != "segment" {
		t.Fatalf("XAxisKey = %q, want segment", spec.Config.XAxisKey)
	}
	if spec.Config.LegendPosition != "bottom" {
		t.Fatalf("LegendPosition = %q, want bottom", spec.Config.LegendPosition)
	}
	for i, item := range spec.Data {
		if len(item) != 2 {
			t.Fatalf("Data[%d] has %d keys, want segment and value only: %#v", i, len(item), item)
		}
		if _, ok := item["segment"]; !ok {
			t.Fatalf("Data[%d] missing segment: %#v", i, item)
		}
		if _, ok := item["value"]; !ok {
			t.Fatalf("Data[%d] missing value: %#v", i, item)
		}
	}
	if len(spec.ChartConfig) != 3 {
		t.Fatalf("ChartConfig has %d entries, want one per segment", len(spec.ChartConfig))
	}
	emea := spec.ChartConfig["emea"]
	if emea.DataKey != "value" || emea.Name != "emea" || emea.Color != "#4a90d9" {
		t.Fatalf("segment series = %#v", emea)
	}
}

func TestBuildChartEmpty(t *testing.T) {
	if spec := BuildChart("anything", Dataset{}); spec != nil {
		t.Fatalf("BuildChart(empty) = %#v, want nil", spec)
	}
	if spec := BuildChart("anything", dataset([]string{"a"})); spec != nil {
		t.Fatalf("BuildChart(no rows) = %#v, want nil", spec)
	}
}

func TestPickValueColumn(t *testing.T) {
	tests := []struct {
		name  string
		query string
		data  Dataset
		want  string
	}{
		{
			name:  "column named in the question",
			query: "show total_cost versus units",
			data:  dataset([]string{"label", "units", "total_cost"}, []any{"a", 2.0, 9.0}),
			want:  "units",
		},
		{
			name:  "spoken form of the column name",
			query: "unit price by product",
			data:  dataset([]string{"product_name", "unit_price"}, []any{"chair", 4.5}),
			want:  "unit_price",
		},
		{
			name:  "total prefix wins over position",
			query: "overview",
			data:  dataset([]string{"label", "metric_one", "total_misc"}, []any{"a", 2.0, 9.0}),
			want:  "total_misc",
		},
		{
			name:  "sum prefix next",
			query: "overview",
			data:  dataset([]string{"label", "metric_one", "sum_units"}, []any{"a", 2.0, 9.0}),
			want:  "sum_units",
		},
		{
			name:  "quantity next",
			query: "overview",
			data:  dataset([]string{"label", "alpha_metric", "quantity"}, []any{"a", 2.0, 9.0}),
			want:  "quantity",
		},
		{
			name:  "leading numeric fallback",
			query: "overview",
			data:  dataset([]string{"label", "beta", "alpha"}, []any{"a", 2.0, 9.0}),
			want:  "beta",
		},
		{
			name:  "no numeric candidates",
			query: "overview",
			data:  dataset([]string{"label"}, []any{"a"}),
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := pickValueColumn(tc.query, tc.data, "label"); got != tc.want {
				t.Fatalf("pickValueColumn(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestBuildChartWithHint(t *testing.T) {
	data := dataset([]string{"region", "total_cost"},
		[]any{"emea", 100.0}, []any{"apac", 60.0}, []any{"na", 40.0})

	pie := BuildChartWithHint("sales by region", data, Pie)
	if pie == nil || pie.ChartType != Pie {
		t.Fatalf("BuildChartWithHint(pie) = %+v", pie)
	}
	if pie.Config.XAxisKey != "segment" {
		t.Fatalf("pie XAxisKey = %q", pie.Config.XAxisKey)
	}

	line := BuildChartWithHint("sales by region", data, Line)
	if line == nil || line.ChartType != Line {
		t.Fatalf("BuildChartWithHint(line) = %+v", line)
	}

	stacked := BuildChartWithHint("sales by region", data, StackedArea)
	if stacked == nil || stacked.ChartType != StackedArea {
		t.Fatalf("BuildChartWithHint(stackedArea) = %+v", stacked)
	}

	// A pie hint with no numeric column cannot be honored; the default
	// selection path takes over and returns nil for an unchartable set.
	textOnly := dataset([]string{"region"}, []any{"emea"}, []any{"apac"})
	if got := BuildChartWithHint("regions", textOnly, Pie); got != nil {
		t.Fatalf("BuildChartWithHint(unchartable) = %+v, want nil", got)
	}
}

func TestSanitizeNumber(t *testing.T) {
	if got := sanitizeNumber(math.NaN()); got != nil {
		t.Fatalf("sanitizeNumber(NaN) = %v, want nil", got)
	}
	if got := sanitizeNumber(math.Inf(1)); got != nil {
		t.Fatalf("sanitizeNumber(+Inf) = %v, want nil", got)
	}
	if got := sanitizeNumber(5.0); got != 5.0 {
		t.Fatalf("sanitizeNumber(5) = %v, want 5", got)
	}
	if got := sanitizeNumber("chair"); got != "chair" {
		t.Fatalf("sanitizeNumber(string) = %v, want passthrough", got)
	}
}
