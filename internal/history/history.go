package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("history: exchange not found")

// Exchange is one recorded chat turn: the question, the answer, and what it
// took to produce it.
type Exchange struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Model      string    `json:"model"`
	SQLText    string    `json:"sql,omitempty"`
	RowCount   int       `json:"rowCount"`
	ChartType  string    `json:"chartType,omitempty"`
	LLMCalls   int       `json:"llmCalls"`
	Grounded   bool      `json:"grounded"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RecordInput struct {
	Question   string
	Answer     string
	Model      string
	SQLText    string
	RowCount   int
	ChartType  string
	LLMCalls   int
	Grounded   bool
	DurationMS int64
}

// Recorder persists chat exchanges. Recording is best effort: callers log a
// failure and serve the response anyway.
type Recorder interface {
	Record(ctx context.Context, in RecordInput) (Exchange, error)
	List(ctx context.Context, limit int) ([]Exchange, error)
	Get(ctx context.Context, id int64) (Exchange, error)
}
