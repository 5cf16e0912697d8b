package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Result is a columnar query result. Columns keep the statement's
// projection order and every row has one value per column.
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

type Health struct {
	Connected bool
	Timestamp time.Time
	Error     string
}

// Store executes one parameterized SELECT against the sales warehouse.
// Placeholders in sqlText are `?` regardless of the backing engine.
type Store interface {
	Execute(ctx context.Context, sqlText string, params []any) (Result, error)
	HealthCheck(ctx context.Context) Health
}

// Closer is implemented by stores holding connections.
type Closer interface {
	Close() error
}

// ReadOnlyStatement reports whether sqlText is a single plain read: a
// SELECT or a WITH query, possibly parenthesized. It is a prefix guard,
// not a parser, so anything carrying a second statement is rejected even
// when the semicolon sits inside a literal.
func ReadOnlyStatement(sqlText string) bool {
	s := strings.TrimSpace(sqlText)
	for strings.HasPrefix(s, "(") {
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimRight(s, "; \t\r\n")
	if strings.Contains(s, ";") {
		return false
	}
	upper := strings.ToUpper(s)
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}

// Lazy defers opening the underlying store until the first call and hands
// the same instance to every caller afterwards. Failed opens are not
// cached, so a warehouse that comes up late only degrades health checks
// until it is reachable.
type Lazy struct {
	Open func(ctx context.Context) (Store, error)

	mu     sync.Mutex
	opened Store
}

func NewLazy(open func(ctx context.Context) (Store, error)) *Lazy {
	return &Lazy{Open: open}
}

func (l *Lazy) acquire(ctx context.Context) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opened != nil {
		return l.opened, nil
	}
	opened, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	l.opened = opened
	return opened, nil
}

func (l *Lazy) Execute(ctx context.Context, sqlText string, params []any) (Result, error) {
	opened, err := l.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	return opened.Execute(ctx, sqlText, params)
}

func (l *Lazy) HealthCheck(ctx context.Context) Health {
	opened, err := l.acquire(ctx)
	if err != nil {
		return Health{Connected: false, Timestamp: time.Now().UTC(), Error: err.Error()}
	}
	return opened.HealthCheck(ctx)
}

// Invalidate drops the cached store so the next call reopens. The previous
// store is closed if it can be.
func (l *Lazy) Invalidate() {
	l.mu.Lock()
	opened := l.opened
	l.opened = nil
	l.mu.Unlock()
	if closer, ok := opened.(Closer); ok {
		_ = closer.Close()
	}
}

func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opened == nil {
		return nil
	}
	opened := l.opened
	l.opened = nil
	if closer, ok := opened.(Closer); ok {
		return closer.Close()
	}
	return nil
}
