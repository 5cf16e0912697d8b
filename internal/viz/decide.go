package viz

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	chartWords        = []string{"compare", "trend", "distribution", "chart", "graph"}
	metricTerms       = []string{"sales", "revenue", "profit", "products", "performance", "data", "count", "total", "amount"}
	rankWords         = []string{"top", "bottom", "highest", "lowest", "most", "least", "compare", "comparison", "versus", "vs"}
	categoricalVocab  = []string{"type", "category", "region", "country", "city", "product", "name"}
	distributionWords = []string{"distribution", "breakdown", "proportion", "percentage", "share", "pie"}
	trendWords        = []string{"trend", "over time", "timeseries", "time series"}
)

var (
	byCategoryRe = regexp.MustCompile(`by\s+(?:region|country|city|product|category|month|year|quarter|date|day|type)`)
	rankCountRe  = regexp.MustCompile(`(?:top|bottom|highest|lowest|most|least)\s+(\d+)`)
)

type vizRule struct {
	name string
	eval func(q string, d Dataset, chartCall bool) (verdict, matched bool)
}

// Ordered; the first rule that reports matched decides. Rule order encodes
// the priority between text cues, row count floors, and schema shape.
var vizRules = []vizRule{
	{"explicit chart call", func(q string, d Dataset, chartCall bool) (bool, bool) {
		return true, chartCall
	}},
	{"show or display", func(q string, d Dataset, _ bool) (bool, bool) {
		matched := strings.HasPrefix(q, "show") || strings.HasPrefix(q, "display") ||
			strings.Contains(q, "show me") || strings.Contains(q, "visual")
		return true, matched
	}},
	{"chart vocabulary", func(q string, d Dataset, _ bool) (bool, bool) {
		return true, containsAny(q, chartWords)
	}},
	{"metric by category", func(q string, d Dataset, _ bool) (bool, bool) {
		matched := strings.Contains(q, " by ") &&
			containsAny(q, metricTerms) &&
			byCategoryRe.MatchString(q) &&
			len(d.Rows) > 1
		return true, matched
	}},
	{"ranking terms", func(q string, d Dataset, _ bool) (bool, bool) {
		if !containsAny(q, rankWords) {
			return false, false
		}
		if m := rankCountRe.FindStringSubmatch(q); m != nil {
			n, err := strconv.Atoi(m[1])
			return err == nil && n > 3, true
		}
		return len(d.Rows) > 3, true
	}},
	{"row floor", func(q string, d Dataset, _ bool) (bool, bool) {
		return false, len(d.Rows) <= 3
	}},
	{"time column", func(q string, d Dataset, _ bool) (bool, bool) {
		return true, len(d.TimeColumns()) > 0 && len(d.Rows) > 3
	}},
	{"categorical column", func(q string, d Dataset, _ bool) (bool, bool) {
		if len(d.Rows) <= 3 {
			return false, false
		}
		for _, name := range d.Columns {
			if containsAny(strings.ToLower(name), categoricalVocab) {
				return true, true
			}
		}
		return false, false
	}},
	{"multiple numeric columns", func(q string, d Dataset, _ bool) (bool, bool) {
		return true, len(d.NumericColumns()) > 1 && len(d.Rows) > 3
	}},
}

// ShouldVisualize decides whether the rows deserve a chart at all. The
// default when nothing matches is no chart.
func ShouldVisualize(query string, d Dataset, chartCall bool) bool {
	q := strings.ToLower(query)
	for _, rule := range vizRules {
		if verdict, matched := rule.eval(q, d, chartCall); matched {
			return verdict
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
