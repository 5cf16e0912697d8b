package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salescope/salescope/internal/llm"
	"github.com/salescope/salescope/internal/schema"
	"github.com/salescope/salescope/internal/store"
	"github.com/salescope/salescope/internal/viz"
)

const (
	defaultMaxToolRounds    = 4
	defaultToolResultRowCap = 50
	defaultGroundingTokens  = 256
)

type Config struct {
	Model              string
	GroundingModel     string
	MaxTokens          int64
	GroundingMaxTokens int64
	MaxToolRounds      int
	ToolResultRowCap   int
	Dialect            string
	RedesignCharts     bool
}

// Service runs the chat turn: one tool-calling conversation, at most one
// database execution per tool call, chart selection from real rows, and a
// grounding follow-up when the answer cites none of the returned values.
type Service struct {
	cfg       Config
	completer llm.Completer
	store     store.Store
	system    string
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, completer llm.Completer, st store.Store, catalog *schema.Catalog, logger *slog.Logger) *Service {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.ToolResultRowCap <= 0 {
		cfg.ToolResultRowCap = defaultToolResultRowCap
	}
	if cfg.GroundingMaxTokens <= 0 {
		cfg.GroundingMaxTokens = defaultGroundingTokens
	}
	if cfg.GroundingModel == "" {
		cfg.GroundingModel = cfg.Model
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		completer: completer,
		store:     st,
		system:    buildSystemPrompt(catalog, cfg.Dialect),
		logger:    logger,
		now:       time.Now,
	}
}

type Request struct {
	Messages []llm.Message
	File     *llm.FileData
	Model    string
}

// Result is the chat response envelope. ReplaceChart tells the renderer a
// chart in this response supersedes any chart from an earlier turn; at most
// one chart is ever returned.
type Result struct {
	Content      string         `json:"content"`
	HasToolUse   bool           `json:"hasToolUse"`
	ToolUse      map[string]any `json:"toolUse"`
	ChartData    *viz.ChartSpec `json:"chartData"`
	ReplaceChart bool           `json:"replaceChart"`

	Stats Stats `json:"-"`
}

// Stats feeds exchange recording and request logs.
type Stats struct {
	Question  string
	Model     string
	SQL       string
	RowCount  int
	ChartType string
	LLMCalls  int
	Grounded  bool
	Duration  time.Duration
}

func (s *Service) Respond(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}
	question := lastUserMessage(req.Messages)

	conv := s.completer.Converse(llm.ConversationConfig{
		Model:     model,
		System:    s.system,
		MaxTokens: s.cfg.MaxTokens,
		Tools:     toolDefinitions(),
		Messages:  req.Messages,
		File:      req.File,
	})

	var (
		text        strings.Builder
		sawToolUse  bool
		lastCall    *llm.ToolUse
		queryResult *store.Result
		lastSQL     string
		chartCall   map[string]any
		llmCalls    int
	)

	for round := 0; round < s.cfg.MaxToolRounds; round++ {
		reply, err := conv.Step(ctx)
		llmCalls++
		if err != nil {
			return nil, fmt.Errorf("chat turn: %w", err)
		}
		if trimmed := strings.TrimSpace(reply.Text); trimmed != "" {
			if text.Len() > 0 {
				text.WriteString("\n\n")
			}
			text.WriteString(trimmed)
		}
		if len(reply.ToolUses) == 0 {
			break
		}
		sawToolUse = true
		results := make([]llm.ToolResult, 0, len(reply.ToolUses))
		for i := range reply.ToolUses {
			call := &reply.ToolUses[i]
			lastCall = call
			switch call.Name {
			case toolQueryDatabase:
				content, res := s.runQuery(ctx, call.Input)
				if res != nil {
					queryResult = res
					lastSQL = asString(call.Input["sql"])
				}
				results = append(results, llm.ToolResult{ID: call.ID, Content: content})
			case toolGenerateChart:
				chartCall = call.Input
				results = append(results, llm.ToolResult{ID: call.ID, Content: `{"success":true,"message":"chart request received"}`})
			default:
				results = append(results, llm.ToolResult{
					ID:      call.ID,
					Content: fmt.Sprintf("Error: unknown tool %q", call.Name),
					IsError: true,
				})
			}
		}
		conv.AddToolResults(results)
	}

	chart := s.decideChart(ctx, question, queryResult, chartCall)

	content := text.String()
	grounded := true
	if queryResult != nil && len(queryResult.Rows) > 0 {
		grounded = groundedIn(content, *queryResult)
		if !grounded {
			if followup := s.groundingFollowup(ctx, question, *queryResult); followup != "" {
				if content != "" {
					content += "\n\n"
				}
				content += followup
			}
			llmCalls++
		}
	}

	res := &Result{
		Content:      content,
		HasToolUse:   sawToolUse,
		ToolUse:      toolUsePayload(lastCall, chart),
		ChartData:    chart,
		ReplaceChart: true,
	}
	res.Stats = Stats{
		Question: question,
		Model:    model,
		SQL:      lastSQL,
		LLMCalls: llmCalls,
		Grounded: grounded,
		Duration: s.now().Sub(start),
	}
	if queryResult != nil {
		res.Stats.RowCount = len(queryResult.Rows)
	}
	if chart != nil {
		res.Stats.ChartType = string(chart.ChartType)
	}
	return res, nil
}

// runQuery executes the query tool. Database trouble is reported to the
// model as a structured failure so the turn can degrade to text; it never
// fails the request.
func (s *Service) runQuery(ctx context.Context, input map[string]any) (string, *store.Result) {
	sqlText := strings.TrimSpace(asString(input["sql"]))
	if sqlText == "" {
		return toolFailure("missing sql"), nil
	}
	if !store.ReadOnlyStatement(sqlText) {
		return toolFailure("only SELECT statements are allowed"), nil
	}
	if health := s.store.HealthCheck(ctx); !health.Connected {
		s.logger.WarnContext(ctx, "warehouse unavailable", "error", health.Error)
		return toolFailure("database unavailable: " + health.Error), nil
	}
	res, err := s.store.Execute(ctx, sqlText, asParams(input["params"]))
	if err != nil {
		s.logger.WarnContext(ctx, "query tool failed", "error", err)
		return toolFailure(err.Error()), nil
	}
	return toolSuccess(res, s.cfg.ToolResultRowCap), &res
}

type queryToolPayload struct {
	Success    bool     `json:"success"`
	Columns    []string `json:"columns,omitempty"`
	Rows       [][]any  `json:"rows,omitempty"`
	RowCount   int      `json:"rowCount,omitempty"`
	Truncated  bool     `json:"truncated,omitempty"`
	DurationMS int64    `json:"durationMs,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func toolFailure(message string) string {
	out, err := json.Marshal(queryToolPayload{Success: false, Error: message})
	if err != nil {
		return `{"success":false,"error":"query failed"}`
	}
	return string(out)
}

func toolSuccess(res store.Result, rowCap int) string {
	payload := queryToolPayload{
		Success:    true,
		Columns:    res.Columns,
		Rows:       res.Rows,
		RowCount:   len(res.Rows),
		DurationMS: res.Duration.Milliseconds(),
	}
	if len(payload.Rows) > rowCap {
		payload.Rows = payload.Rows[:rowCap]
		payload.Truncated = true
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return toolFailure("result not serializable: " + err.Error())
	}
	return string(out)
}

// toolUsePayload mirrors the last tool call back to the client. A chart
// call's input is replaced with the server-built chart, never echoed.
func toolUsePayload(call *llm.ToolUse, chart *viz.ChartSpec) map[string]any {
	if call == nil {
		return nil
	}
	input := any(call.Input)
	if call.Name == toolGenerateChart && chart != nil {
		input = chartAsMap(chart)
	}
	return map[string]any{"id": call.ID, "name": call.Name, "input": input}
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			return messages[i].Content
		}
	}
	return ""
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asParams(v any) []any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	return items
}
