package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/salescope/salescope/internal/store"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MaxRows         int
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse db: %w", err)
	}

	pool := NewStore(db)
	pool.maxRows = cfg.MaxRows
	return pool, nil
}

type Store struct {
	db      *sql.DB
	maxRows int
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Execute(ctx context.Context, sqlText string, params []any) (store.Result, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return store.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, rebind(sqlText), params...)
	if err != nil {
		return store.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return store.Result{}, fmt.Errorf("query columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return store.Result{}, fmt.Errorf("query column types: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		if s.maxRows > 0 && len(resultRows) >= s.maxRows {
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return store.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeRow(values, types))
	}
	if err := rows.Err(); err != nil {
		return store.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return store.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func (s *Store) HealthCheck(ctx context.Context) store.Health {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Health{Connected: false, Timestamp: time.Now().UTC(), Error: err.Error()}
	}
	return store.Health{Connected: true, Timestamp: time.Now().UTC()}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites `?` placeholders into the positional $N form pgx expects.
// Question marks inside single-quoted literals are left alone; doubled
// quotes toggle the state twice and therefore stay inside the literal.
func rebind(sqlText string) string {
	var b strings.Builder
	b.Grow(len(sqlText) + 8)
	arg := 0
	quoted := false
	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			b.WriteByte(ch)
		case ch == '?' && !quoted:
			arg++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func normalizeRow(values []any, types []*sql.ColumnType) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		dbType := ""
		if i < len(types) && types[i] != nil {
			dbType = types[i].DatabaseTypeName()
		}
		normalized[i] = normalizeValue(value, dbType)
	}
	return normalized
}

// normalizeValue maps driver values onto JSON-friendly ones: numerics come
// back from pgx as text (as string or []byte depending on the column), dates
// as midnight timestamps.
func normalizeValue(value any, dbType string) any {
	switch typed := value.(type) {
	case []byte:
		text := string(typed)
		if isNumericType(dbType) {
			if f, err := strconv.ParseFloat(text, 64); err == nil {
				return f
			}
		}
		return text
	case string:
		if isNumericType(dbType) {
			if f, err := strconv.ParseFloat(typed, 64); err == nil {
				return f
			}
		}
		return typed
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format("2006-01-02")
		}
		return typed.Format(time.RFC3339)
	}
	return value
}

func isNumericType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL", "MONEY":
		return true
	}
	return false
}
