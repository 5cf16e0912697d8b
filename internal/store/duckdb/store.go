package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/salescope/salescope/internal/storage"
	"github.com/salescope/salescope/internal/store"
)

type Config struct {
	Path    string
	Store   storage.ObjectStore
	Tables  []string
	MaxRows int
}

// Store is the embedded warehouse profile: parquet dataset parts are pulled
// from the object store once at open and exposed as duckdb views, one per
// table. The duckdb driver accepts `?` placeholders natively, so no rebind
// happens here.
type Store struct {
	db      *sql.DB
	workDir string
	maxRows int
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("at least one table is required")
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	workDir, err := os.MkdirTemp("", "salescope-warehouse-")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create warehouse temp dir: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.RemoveAll(workDir)
	}

	for _, table := range cfg.Tables {
		prefix, err := storage.DatasetTablePrefix(table)
		if err != nil {
			cleanup()
			return nil, err
		}
		objects, err := cfg.Store.List(ctx, prefix)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("list dataset parts for table %q: %w", table, err)
		}
		if len(objects) == 0 {
			cleanup()
			return nil, fmt.Errorf("no dataset parts for table %q", table)
		}

		localPaths := make([]string, 0, len(objects))
		for index, object := range objects {
			reader, err := cfg.Store.Get(ctx, object.Key)
			if err != nil {
				cleanup()
				return nil, fmt.Errorf("get dataset part %q: %w", object.Key, err)
			}
			localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", table, index))
			if err := writeFile(localPath, reader); err != nil {
				_ = reader.Close()
				cleanup()
				return nil, fmt.Errorf("write local parquet file %q: %w", localPath, err)
			}
			if err := reader.Close(); err != nil {
				cleanup()
				return nil, fmt.Errorf("close dataset part %q: %w", object.Key, err)
			}
			localPaths = append(localPaths, localPath)
		}

		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table), quoteStringArray(localPaths))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			cleanup()
			return nil, fmt.Errorf("create view for table %q: %w", table, err)
		}
	}

	return &Store{db: db, workDir: workDir, maxRows: cfg.MaxRows}, nil
}

func (s *Store) Execute(ctx context.Context, sqlText string, params []any) (store.Result, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return store.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return store.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return store.Result{}, fmt.Errorf("query columns: %w", err)
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
		resultRows = append(resultRows, normalizeValues(values))
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
	err := s.db.Close()
	if s.workDir != "" {
		_ = os.RemoveAll(s.workDir)
	}
	return err
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case time.Time:
			if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
				normalized[i] = typed.Format("2006-01-02")
			} else {
				normalized[i] = typed.Format(time.RFC3339)
			}
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return nil
}
