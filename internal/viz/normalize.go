package viz

import (
	"fmt"
	"sort"
	"strings"
)

// Normalize is the last pass before a chart reaches the renderer: it fills
// every missing field with a derivable default and rejects charts that
// cannot be made valid. It is idempotent and never clears a field that is
// already valid.
func Normalize(spec *ChartSpec) *ChartSpec {
	if spec == nil || len(spec.Data) == 0 {
		return nil
	}
	spec.ChartType = NormalizeChartType(string(spec.ChartType))

	if spec.ChartType == Pie {
		if !normalizePie(spec) {
			return nil
		}
	} else {
		if spec.Config.XAxisKey == "" || !keyPresent(spec.Data, spec.Config.XAxisKey) {
			key, ok := synthesizeXAxis(spec.Data)
			if !ok {
				return nil
			}
			spec.Config.XAxisKey = key
		}
		if len(spec.ChartConfig) == 0 {
			spec.ChartConfig = synthesizeSeries(spec.Data, spec.Config.XAxisKey)
		}
		if len(spec.ChartConfig) == 0 {
			return nil
		}
	}

	assignColors(spec.ChartConfig)
	if spec.Config.Margin == nil {
		spec.Config.Margin = defaultMargin()
	}
	spec.Config.YAxisFormatter = MapFormatter(string(spec.Config.YAxisFormatter))
	spec.Config.TooltipFormatter = MapFormatter(string(spec.Config.TooltipFormatter))
	if spec.ChartType == StackedArea {
		spec.Config.Stacked = true
	}
	return spec
}

func keyPresent(data []map[string]any, key string) bool {
	for _, row := range data {
		if _, ok := row[key]; !ok {
			return false
		}
	}
	return true
}

func pieShaped(data []map[string]any) bool {
	for _, row := range data {
		if _, ok := row["segment"]; !ok {
			return false
		}
		if _, ok := row["value"]; !ok {
			return false
		}
	}
	return true
}

func normalizePie(spec *ChartSpec) bool {
	if !pieShaped(spec.Data) {
		segment, value, ok := pieKeys(spec.Data, spec.Config.XAxisKey)
		if !ok {
			return false
		}
		reshaped := make([]map[string]any, 0, len(spec.Data))
		for _, row := range spec.Data {
			reshaped = append(reshaped, map[string]any{
				"segment": row[segment],
				"value":   row[value],
			})
		}
		spec.Data = reshaped
	}
	spec.Config.XAxisKey = "segment"
	if len(spec.ChartConfig) == 0 {
		series := make(map[string]SeriesConfig)
		for _, row := range spec.Data {
			key := fmt.Sprint(row["segment"])
			if _, seen := series[key]; !seen {
				series[key] = SeriesConfig{DataKey: "value", Name: key, Color: paletteColor(len(series))}
			}
		}
		spec.ChartConfig = series
	}
	return true
}

// pieKeys picks the segment and value keys for an unshaped pie: the
// configured axis key when usable, else the first textual key, and the
// first numeric key that is not the segment.
func pieKeys(data []map[string]any, xAxisKey string) (string, string, bool) {
	keys := sortedKeys(data[0])
	if len(keys) == 0 {
		return "", "", false
	}

	segment := ""
	if xAxisKey != "" && keyPresent(data, xAxisKey) {
		segment = xAxisKey
	}
	if segment == "" {
		for _, key := range keys {
			if isTextValue(firstMapValue(data, key)) {
				segment = key
				break
			}
		}
	}
	if segment == "" {
		segment = keys[0]
	}

	for _, key := range keys {
		if key == segment {
			continue
		}
		if isNumericValue(firstMapValue(data, key)) {
			return segment, key, true
		}
	}
	return "", "", false
}

func firstMapValue(data []map[string]any, key string) any {
	for _, row := range data {
		if v, ok := row[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func synthesizeXAxis(data []map[string]any) (string, bool) {
	keys := sortedKeys(data[0])
	if len(keys) == 0 {
		return "", false
	}
	for _, key := range keys {
		if isTimeName(key) {
			return key, true
		}
	}
	for _, key := range keys {
		if isTextValue(firstMapValue(data, key)) {
			return key, true
		}
	}
	return keys[0], true
}

func synthesizeSeries(data []map[string]any, xAxisKey string) map[string]SeriesConfig {
	series := make(map[string]SeriesConfig)
	for _, key := range sortedKeys(data[0]) {
		if key == xAxisKey || strings.Contains(strings.ToLower(key), "id") {
			continue
		}
		if !isNumericValue(firstMapValue(data, key)) {
			continue
		}
		series[key] = SeriesConfig{DataKey: key, Name: Labelize(key)}
	}
	return series
}

func assignColors(series map[string]SeriesConfig) {
	keys := make([]string, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for i, key := range keys {
		if sc := series[key]; sc.Color == "" {
			sc.Color = paletteColor(i)
			series[key] = sc
		}
	}
}
