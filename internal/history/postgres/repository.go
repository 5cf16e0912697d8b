package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/salescope/salescope/internal/history"
)

const defaultListLimit = 50

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Record(ctx context.Context, in history.RecordInput) (history.Exchange, error) {
	query := `
INSERT INTO chat_exchange (question, answer, model, sql_text, row_count, chart_type, llm_calls, grounded, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at`

	exchange := history.Exchange{
		Question:   in.Question,
		Answer:     in.Answer,
		Model:      in.Model,
		SQLText:    in.SQLText,
		RowCount:   in.RowCount,
		ChartType:  in.ChartType,
		LLMCalls:   in.LLMCalls,
		Grounded:   in.Grounded,
		DurationMS: in.DurationMS,
	}
	if err := r.db.QueryRowContext(ctx, query,
		in.Question,
		in.Answer,
		in.Model,
		in.SQLText,
		in.RowCount,
		in.ChartType,
		in.LLMCalls,
		in.Grounded,
		in.DurationMS,
	).Scan(&exchange.ID, &exchange.CreatedAt); err != nil {
		return history.Exchange{}, fmt.Errorf("record exchange: %w", err)
	}
	return exchange, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]history.Exchange, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, answer, model, sql_text, row_count, chart_type, llm_calls, grounded, duration_ms, created_at
FROM chat_exchange
ORDER BY id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	exchanges := make([]history.Exchange, 0)
	for rows.Next() {
		exchange, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, exchange)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rows: %w", err)
	}
	return exchanges, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (history.Exchange, error) {
	query := `
SELECT id, question, answer, model, sql_text, row_count, chart_type, llm_calls, grounded, duration_ms, created_at
FROM chat_exchange
WHERE id = $1`

	var exchange history.Exchange
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&exchange.ID,
		&exchange.Question,
		&exchange.Answer,
		&exchange.Model,
		&exchange.SQLText,
		&exchange.RowCount,
		&exchange.ChartType,
		&exchange.LLMCalls,
		&exchange.Grounded,
		&exchange.DurationMS,
		&exchange.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Exchange{}, history.ErrNotFound
		}
		return history.Exchange{}, fmt.Errorf("get exchange: %w", err)
	}
	return exchange, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExchange(row rowScanner) (history.Exchange, error) {
	var exchange history.Exchange
	if err := row.Scan(
		&exchange.ID,
		&exchange.Question,
		&exchange.Answer,
		&exchange.Model,
		&exchange.SQLText,
		&exchange.RowCount,
		&exchange.ChartType,
		&exchange.LLMCalls,
		&exchange.Grounded,
		&exchange.DurationMS,
		&exchange.CreatedAt,
	); err != nil {
		return history.Exchange{}, fmt.Errorf("scan exchange row: %w", err)
	}
	return exchange, nil
}
