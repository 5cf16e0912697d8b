package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/salescope/salescope/internal/schema"
	"github.com/salescope/salescope/internal/store"
)

func TestSchemaListsCatalogTables(t *testing.T) {
	warehouse := &fakeWarehouse{
		result: store.Result{
			Columns: []string{"product_name", "quantity"},
			Rows:    [][]any{{"Aurora Desk", 12}},
		},
	}
	h := newTestHandler(t, Dependencies{Catalog: schema.NewCatalog(), Store: warehouse, SchemaSampleRows: 3})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Tables []struct {
			Name        string           `json:"name"`
			Description string           `json:"description"`
			Columns     []map[string]any `json:"columns"`
			SampleRows  [][]any          `json:"sampleRows"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(body.Tables) != 3 {
		t.Fatalf("tables = %d", len(body.Tables))
	}
	names := map[string]bool{}
	for _, table := range body.Tables {
		names[table.Name] = true
		if table.Description == "" {
			t.Fatalf("table %q has no description", table.Name)
		}
		if len(table.Columns) == 0 {
			t.Fatalf("table %q has no columns", table.Name)
		}
		for _, col := range table.Columns {
			if col["name"] == "created_at" || col["name"] == "updated_at" {
				t.Fatalf("table %q leaks bookkeeping column %v", table.Name, col["name"])
			}
		}
		if len(table.SampleRows) != 1 {
			t.Fatalf("table %q sampleRows = %v", table.Name, table.SampleRows)
		}
	}
	for _, want := range []string{schema.TableSales, schema.TableProducts, schema.TableVehicles} {
		if !names[want] {
			t.Fatalf("missing table %q, got %v", want, names)
		}
	}
	for _, sql := range warehouse.queries {
		if !strings.Contains(sql, "LIMIT 3") {
			t.Fatalf("sample query %q ignores the configured row cap", sql)
		}
	}
}

func TestSchemaWithoutStoreOmitsSamples(t *testing.T) {
	h := newTestHandler(t, Dependencies{Catalog: schema.NewCatalog()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sampleRows") {
		t.Fatal("expected no samples without a warehouse store")
	}
}

func TestSchemaSampleFailureDegradesToMetadataOnly(t *testing.T) {
	warehouse := &fakeWarehouse{execErr: errors.New("relation does not exist")}
	h := newTestHandler(t, Dependencies{Catalog: schema.NewCatalog(), Store: warehouse})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sampleRows") {
		t.Fatal("expected samples to be dropped on fetch failure")
	}
}
