package viz

import "strings"

type ChartType string

const (
	Bar         ChartType = "bar"
	MultiBar    ChartType = "multiBar"
	Line        ChartType = "line"
	Pie         ChartType = "pie"
	Area        ChartType = "area"
	StackedArea ChartType = "stackedArea"
)

// NormalizeChartType maps free-form type strings onto the closed set,
// defaulting to bar.
func NormalizeChartType(raw string) ChartType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "multibar", "multi_bar", "multi-bar", "grouped_bar", "groupedbar":
		return MultiBar
	case "line":
		return Line
	case "pie", "donut", "doughnut":
		return Pie
	case "area":
		return Area
	case "stackedarea", "stacked_area", "stacked-area":
		return StackedArea
	default:
		return Bar
	}
}

// Formatter names a statically implemented display format. Formatter values
// travel to the renderer as tags; free text from a model is mapped onto this
// set and never executed.
type Formatter string

const (
	FormatterNone       Formatter = ""
	FormatterCurrency   Formatter = "currency"
	FormatterPercentage Formatter = "percentage"
	FormatterDate       Formatter = "date"
	FormatterInteger    Formatter = "integer"
)

func MapFormatter(raw string) Formatter {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return FormatterNone
	case strings.Contains(s, "currenc") || strings.Contains(s, "dollar") || strings.Contains(s, "$") || strings.Contains(s, "money"):
		return FormatterCurrency
	case strings.Contains(s, "percent") || strings.Contains(s, "%"):
		return FormatterPercentage
	case strings.Contains(s, "date") || strings.Contains(s, "time"):
		return FormatterDate
	case strings.Contains(s, "int") || strings.Contains(s, "count") || strings.Contains(s, "number"):
		return FormatterInteger
	default:
		return FormatterNone
	}
}

type Margin struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
}

func defaultMargin() *Margin {
	return &Margin{Top: 20, Right: 30, Left: 20, Bottom: 5}
}

type Config struct {
	XAxisKey         string    `json:"xAxisKey"`
	Title            string    `json:"title"`
	Subtitle         string    `json:"subtitle,omitempty"`
	LegendPosition   string    `json:"legendPosition,omitempty"`
	Trend            any       `json:"trend,omitempty"`
	Footer           string    `json:"footer,omitempty"`
	Margin           *Margin   `json:"margin,omitempty"`
	YAxisFormatter   Formatter `json:"yAxisFormatter,omitempty"`
	TooltipFormatter Formatter `json:"tooltipFormatter,omitempty"`
	Stacked          bool      `json:"stacked,omitempty"`
}

type SeriesConfig struct {
	DataKey     string  `json:"dataKey"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	StrokeWidth int     `json:"strokeWidth,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
}

// ChartSpec is the renderer contract: config.xAxisKey and every
// chartConfig dataKey must name a property present on each data element.
type ChartSpec struct {
	ChartType   ChartType               `json:"chartType"`
	Data        []map[string]any        `json:"data"`
	Config      Config                  `json:"config"`
	ChartConfig map[string]SeriesConfig `json:"chartConfig"`
}

var palette = []string{
	"#4a90d9", "#e74c3c", "#2ecc71", "#f39c12",
	"#9b59b6", "#1abc9c", "#34495e", "#e91e63",
}

func paletteColor(i int) string {
	if i < 0 {
		i = 0
	}
	return palette[i%len(palette)]
}
