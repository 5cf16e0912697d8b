package assistant

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/salescope/salescope/internal/llm"
	"github.com/salescope/salescope/internal/store"
)

const groundingSampleRows = 5

// groundedIn reports whether the answer cites at least one numeric value
// from the result, matched on the value's decimal string form across every
// row and column.
func groundedIn(content string, res store.Result) bool {
	if content == "" {
		return false
	}
	for _, row := range res.Rows {
		for _, cell := range row {
			if s, ok := decimalString(cell); ok && strings.Contains(content, s) {
				return true
			}
		}
	}
	return false
}

func decimalString(v any) (string, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 32), true
	case int:
		return strconv.Itoa(n), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

// groundingFollowup issues the one extra, cheaper call that restates the
// answer from a short data sample. An empty return means the followup
// failed and the original text stands alone.
func (s *Service) groundingFollowup(ctx context.Context, question string, res store.Result) string {
	reply, err := s.completer.Complete(ctx, llm.CompleteRequest{
		Model:     s.cfg.GroundingModel,
		Prompt:    groundingPrompt(question, res),
		MaxTokens: s.cfg.GroundingMaxTokens,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "grounding followup failed", "error", err)
		return ""
	}
	return strings.TrimSpace(reply)
}

func groundingPrompt(question string, res store.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n\n", question)
	fmt.Fprintf(&b, "A SQL query returned %d rows. First rows:\n", len(res.Rows))
	b.WriteString(strings.Join(res.Columns, " | "))
	b.WriteByte('\n')
	rows := res.Rows
	if len(rows) > groundingSampleRows {
		rows = rows[:groundingSampleRows]
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	b.WriteString("\nAnswer the question in one to three sentences, citing only values shown above.")
	return b.String()
}
