package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/salescope/salescope/internal/llm"
	"github.com/salescope/salescope/internal/store"
	"github.com/salescope/salescope/internal/viz"
)

const redesignMaxTokens = 1024

// decideChart applies the one-chart policy. Rows from a query drive the
// selection and a model chart call alongside contributes only its type; a
// chart call without a query passes through, optionally restyled. The
// normalization pass runs on whatever survives.
func (s *Service) decideChart(ctx context.Context, question string, queryResult *store.Result, chartCall map[string]any) *viz.ChartSpec {
	var chart *viz.ChartSpec
	switch {
	case queryResult != nil:
		if len(queryResult.Rows) == 0 {
			return nil
		}
		ds := viz.Dataset{Columns: queryResult.Columns, Rows: queryResult.Rows}
		if !viz.ShouldVisualize(question, ds, chartCall != nil) {
			return nil
		}
		if chartCall != nil {
			hint := viz.NormalizeChartType(asString(chartCall["chartType"]))
			chart = viz.BuildChartWithHint(question, ds, hint)
		} else {
			chart = viz.BuildChart(question, ds)
		}
	case chartCall != nil:
		chart = parseChartCall(chartCall)
		if chart != nil && s.cfg.RedesignCharts {
			s.redesignChart(ctx, question, chart)
		}
	}
	if chart == nil {
		return nil
	}
	return viz.Normalize(chart)
}

// parseChartCall decodes a chart tool input. Free-form type and formatter
// strings are mapped onto the closed sets; anything unparsable means no
// chart rather than an error.
func parseChartCall(input map[string]any) *viz.ChartSpec {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil
	}
	var spec viz.ChartSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil
	}
	if len(spec.Data) == 0 {
		return nil
	}
	spec.ChartType = viz.NormalizeChartType(string(spec.ChartType))
	spec.Config.YAxisFormatter = viz.MapFormatter(string(spec.Config.YAxisFormatter))
	spec.Config.TooltipFormatter = viz.MapFormatter(string(spec.Config.TooltipFormatter))
	return &spec
}

func chartAsMap(chart *viz.ChartSpec) map[string]any {
	raw, err := json.Marshal(chart)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

type redesignOutput struct {
	ChartType   string                      `json:"chartType"`
	Config      viz.Config                  `json:"config"`
	ChartConfig map[string]viz.SeriesConfig `json:"chartConfig"`
}

// redesignChart asks the model for better styling from a statistical
// summary of the data. The data array is never sent and never replaced;
// only config and chartConfig may change. Any failure leaves the chart as
// proposed, with normalization as the safety net.
func (s *Service) redesignChart(ctx context.Context, question string, chart *viz.ChartSpec) {
	reply, err := s.completer.Complete(ctx, llm.CompleteRequest{
		Model:     s.cfg.GroundingModel,
		Prompt:    redesignPrompt(question, chart),
		MaxTokens: redesignMaxTokens,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "chart redesign failed", "error", err)
		return
	}
	var out redesignOutput
	if err := json.Unmarshal([]byte(extractJSON(reply)), &out); err != nil {
		s.logger.WarnContext(ctx, "chart redesign unparsable", "error", err)
		return
	}
	applyRedesign(chart, out)
}

func applyRedesign(chart *viz.ChartSpec, out redesignOutput) {
	if out.ChartType != "" {
		chart.ChartType = viz.NormalizeChartType(out.ChartType)
	}
	if out.Config.XAxisKey != "" || out.Config.Title != "" {
		out.Config.YAxisFormatter = viz.MapFormatter(string(out.Config.YAxisFormatter))
		out.Config.TooltipFormatter = viz.MapFormatter(string(out.Config.TooltipFormatter))
		chart.Config = out.Config
	}
	if len(out.ChartConfig) > 0 {
		chart.ChartConfig = out.ChartConfig
	}
}

func redesignPrompt(question string, chart *viz.ChartSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Improve the presentation of a chart answering: %q\n\n", question)
	fmt.Fprintf(&b, "Proposed type: %s. Data summary over %d rows:\n", chart.ChartType, len(chart.Data))
	for _, line := range summarizeData(chart.Data) {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\nReply with one JSON object with keys chartType, config, chartConfig.\n")
	b.WriteString("config keys: xAxisKey, title, subtitle, legendPosition, yAxisFormatter (one of currency, percentage, date, integer).\n")
	b.WriteString("chartConfig maps each series key to {dataKey, name, color} with a hex color.\n")
	b.WriteString("Do not include the data array.")
	return b.String()
}

// summarizeData renders one line per column: numeric ranges or a sample
// text value. Keys are sorted so the prompt is stable.
func summarizeData(data []map[string]any) []string {
	seen := map[string]bool{}
	var names []string
	for _, row := range data {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		var min, max, sum float64
		count := 0
		sample := ""
		for _, row := range data {
			if f, ok := toFloat(row[name]); ok {
				if count == 0 || f < min {
					min = f
				}
				if count == 0 || f > max {
					max = f
				}
				sum += f
				count++
				continue
			}
			if s, ok := row[name].(string); ok && sample == "" {
				sample = s
			}
		}
		switch {
		case count > 0:
			lines = append(lines, fmt.Sprintf("%s: numeric, min %.4g, max %.4g, avg %.4g", name, min, max, sum/float64(count)))
		case sample != "":
			lines = append(lines, fmt.Sprintf("%s: text, e.g. %q", name, sample))
		default:
			lines = append(lines, name+": empty")
		}
	}
	return lines
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// extractJSON pulls the first JSON object out of a reply that may wrap it
// in markdown fences or prose.
func extractJSON(reply string) string {
	reply = strings.TrimSpace(reply)
	if start := strings.Index(reply, "```"); start != -1 {
		rest := strings.TrimPrefix(reply[start+3:], "json")
		if end := strings.Index(rest, "```"); end != -1 {
			reply = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(reply, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return reply[start : i+1]
			}
		}
	}
	return ""
}
