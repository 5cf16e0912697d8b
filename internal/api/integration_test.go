//go:build integration

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/salescope/salescope/internal/config"
	"github.com/salescope/salescope/internal/history"
	historypostgres "github.com/salescope/salescope/internal/history/postgres"
	"github.com/salescope/salescope/internal/migrations"
	"github.com/salescope/salescope/internal/nlquery"
	"github.com/salescope/salescope/internal/schema"
	storepostgres "github.com/salescope/salescope/internal/store/postgres"
)

func TestNLQueryEndToEndAgainstPostgres(t *testing.T) {
	adminDSN := strings.TrimSpace(os.Getenv("SALESCOPE_TEST_DB_DSN"))
	if adminDSN == "" {
		t.Skip("SALESCOPE_TEST_DB_DSN is not set")
	}

	testDSN, cleanup := createTemporaryDatabase(t, adminDSN)
	defer cleanup()

	db, err := sql.Open("pgx", testDSN)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if _, err := migrations.NewRunner().Up(ctx, db, 0); err != nil {
		t.Fatalf("runner.Up() error = %v", err)
	}
	seedSalesRows(t, db)

	cfg, err := config.Load("salescope-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	catalog := schema.NewCatalog()
	h := NewHandler(cfg, Dependencies{
		Store:    storepostgres.NewStore(db),
		Catalog:  catalog,
		Analyzer: nlquery.New(catalog, nlquery.PostgresDialect{}),
	})

	body, err := json.Marshal(map[string]string{"question": "total sales by product"})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/nlquery", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("nlquery status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp nlQueryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode nlquery response error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false, error = %q", resp.Error)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("rows = %#v, want one per product", resp.Rows)
	}
	if resp.ChartData == nil {
		t.Fatal("expected chart for a metric-by-category question")
	}

	rawReq := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(
		`{"sql": "SELECT COUNT(*) AS c FROM sales_data"}`,
	))
	rawRR := httptest.NewRecorder()
	h.ServeHTTP(rawRR, rawReq)
	if rawRR.Code != http.StatusOK {
		t.Fatalf("query status = %d, body = %s", rawRR.Code, rawRR.Body.String())
	}
	var rawResp map[string]any
	if err := json.Unmarshal(rawRR.Body.Bytes(), &rawResp); err != nil {
		t.Fatalf("decode query response error = %v", err)
	}
	rows, ok := rawResp["rows"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("rows = %#v", rawResp["rows"])
	}
}

func TestHistoryEndToEndAgainstPostgres(t *testing.T) {
	adminDSN := strings.TrimSpace(os.Getenv("SALESCOPE_TEST_DB_DSN"))
	if adminDSN == "" {
		t.Skip("SALESCOPE_TEST_DB_DSN is not set")
	}

	testDSN, cleanup := createTemporaryDatabase(t, adminDSN)
	defer cleanup()

	db, err := sql.Open("pgx", testDSN)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if _, err := migrations.NewRunner().Up(ctx, db, 0); err != nil {
		t.Fatalf("runner.Up() error = %v", err)
	}

	recorder := historypostgres.NewRepository(db)
	recorded, err := recorder.Record(ctx, history.RecordInput{
		Question: "total sales by product",
		Answer:   "Aurora Desk sold the most.",
		Model:    "claude-sonnet-4-5",
		SQLText:  "SELECT SUM(s.quantity) AS total_quantity, s.product_name FROM sales_data AS s GROUP BY s.product_name",
		RowCount: 2,
		LLMCalls: 2,
		Grounded: true,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	cfg, err := config.Load("salescope-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	h := NewHandler(cfg, Dependencies{History: recorder})

	listReq := httptest.NewRequest(http.MethodGet, "/v1/history?limit=10", nil)
	listRR := httptest.NewRecorder()
	h.ServeHTTP(listRR, listReq)
	if listRR.Code != http.StatusOK {
		t.Fatalf("history list status = %d, body = %s", listRR.Code, listRR.Body.String())
	}
	var listBody struct {
		Exchanges []history.Exchange `json:"exchanges"`
	}
	if err := json.Unmarshal(listRR.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("decode history list error = %v", err)
	}
	if len(listBody.Exchanges) != 1 || listBody.Exchanges[0].Question != "total sales by product" {
		t.Fatalf("exchanges = %+v", listBody.Exchanges)
	}

	getReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/history/%d", recorded.ID), nil)
	getRR := httptest.NewRecorder()
	h.ServeHTTP(getRR, getReq)
	if getRR.Code != http.StatusOK {
		t.Fatalf("history get status = %d, body = %s", getRR.Code, getRR.Body.String())
	}
	var got history.Exchange
	if err := json.Unmarshal(getRR.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode history get error = %v", err)
	}
	if got.ID != recorded.ID || !got.Grounded {
		t.Fatalf("exchange = %+v", got)
	}
}

func seedSalesRows(t *testing.T, db *sql.DB) {
	t.Helper()
	const insert = `
INSERT INTO sales_data (id, sales_date, product_name, quantity, unit_price, total_cost, sales_type, country, region, city, store_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	rows := [][]any{
		{int64(1), "2026-03-02", "Aurora Desk", int64(12), 249.90, 2998.80, "instore", "Germany", "Bavaria", "Munich", "Munich Central"},
		{int64(2), "2026-03-03", "Aurora Desk", int64(5), 249.90, 1249.50, "delivery", "Germany", "Bavaria", "Munich", "Munich Central"},
		{int64(3), "2026-03-03", "Borealis Chair", int64(9), 119.00, 1071.00, "instore", "Germany", "Berlin", "Berlin", "Berlin Mitte"},
	}
	for _, row := range rows {
		if _, err := db.Exec(insert, row...); err != nil {
			t.Fatalf("seed sales row error = %v", err)
		}
	}
}

func createTemporaryDatabase(t *testing.T, adminDSN string) (string, func()) {
	t.Helper()

	parsed, err := url.Parse(adminDSN)
	if err != nil {
		t.Fatalf("url.Parse(adminDSN) error = %v", err)
	}
	adminDBName := strings.TrimPrefix(parsed.Path, "/")
	if adminDBName == "" {
		t.Fatal("admin DSN must include a database name")
	}

	adminDB, err := sql.Open("pgx", adminDSN)
	if err != nil {
		t.Fatalf("sql.Open(adminDSN) error = %v", err)
	}

	name := fmt.Sprintf("salescope_it_api_%d", time.Now().UnixNano())
	if _, err := adminDB.Exec(`CREATE DATABASE ` + name); err != nil {
		t.Fatalf("CREATE DATABASE failed: %v", err)
	}

	testURL := *parsed
	testURL.Path = "/" + name
	testDSN := testURL.String()

	cleanup := func() {
		defer func() { _ = adminDB.Close() }()
		if _, err := adminDB.Exec(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, name); err != nil {
			t.Fatalf("terminate test db sessions: %v", err)
		}
		if _, err := adminDB.Exec(`DROP DATABASE ` + name); err != nil {
			t.Fatalf("DROP DATABASE failed: %v", err)
		}
	}
	return testDSN, cleanup
}
