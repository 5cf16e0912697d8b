package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("salescope-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Database.Engine != EngineDuckDB {
		t.Fatalf("Database.Engine = %q", cfg.Database.Engine)
	}
	if cfg.Database.MaxResultRows != 10000 {
		t.Fatalf("Database.MaxResultRows = %d", cfg.Database.MaxResultRows)
	}
	if cfg.ObjectStore.Endpoint != "localhost:9000" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.History.Enabled {
		t.Fatal("History.Enabled should default to false in dev")
	}
	if cfg.AI.Model != "claude-sonnet-4-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.GroundingModel != "claude-haiku-4-5" {
		t.Fatalf("AI.GroundingModel = %q", cfg.AI.GroundingModel)
	}
	if cfg.AI.MaxToolRounds != 4 {
		t.Fatalf("AI.MaxToolRounds = %d", cfg.AI.MaxToolRounds)
	}
	if !cfg.AI.RedesignCharts {
		t.Fatal("AI.RedesignCharts should default to true in dev")
	}
	if cfg.Retention.MaxUploadAge != 30*24*time.Hour {
		t.Fatalf("Retention.MaxUploadAge = %s", cfg.Retention.MaxUploadAge)
	}
	if cfg.UI.SchemaSampleRows != 5 {
		t.Fatalf("UI.SchemaSampleRows = %d", cfg.UI.SchemaSampleRows)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"SALESCOPE_PROFILE": "prod"})
	cfg, err := Load("salescope-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Engine != EnginePostgres {
		t.Fatalf("Database.Engine = %q", cfg.Database.Engine)
	}
	if !cfg.History.Enabled {
		t.Fatal("History.Enabled should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadTestProfileDisablesRedesign(t *testing.T) {
	lookup := mapLookup(map[string]string{"SALESCOPE_PROFILE": "test"})
	cfg, err := Load("salescope-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.RedesignCharts {
		t.Fatal("AI.RedesignCharts should default to false in test")
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"SALESCOPE_PROFILE":                          "test",
		"SALESCOPE_SERVICE_NAME":                     "salescope-custom",
		"SALESCOPE_HTTP_ADDR":                        ":9999",
		"SALESCOPE_HTTP_READ_TIMEOUT":                "2s",
		"SALESCOPE_HTTP_WRITE_TIMEOUT":               "3s",
		"SALESCOPE_DB_ENGINE":                        "postgres",
		"SALESCOPE_DB_DSN":                           "postgres://example",
		"SALESCOPE_DB_MAX_OPEN_CONNS":                "42",
		"SALESCOPE_DB_MAX_IDLE_CONNS":                "17",
		"SALESCOPE_DB_MAX_RESULT_ROWS":               "500",
		"SALESCOPE_DB_DUCKDB_PATH":                   "/tmp/warehouse.duckdb",
		"SALESCOPE_OBJECTSTORE_ENDPOINT":             "s3.example.com",
		"SALESCOPE_OBJECTSTORE_BUCKET":               "salescope-prod",
		"SALESCOPE_OBJECTSTORE_REGION":               "us-west-2",
		"SALESCOPE_OBJECTSTORE_ACCESS_KEY":           "abc",
		"SALESCOPE_OBJECTSTORE_SECRET_KEY":           "def",
		"SALESCOPE_OBJECTSTORE_USE_SSL":              "true",
		"SALESCOPE_OBJECTSTORE_PREFIX":               "analytics",
		"SALESCOPE_OBJECTSTORE_AUTO_CREATE_BUCKET":   "false",
		"SALESCOPE_HISTORY_ENABLED":                  "true",
		"SALESCOPE_HISTORY_DSN":                      "postgres://history",
		"SALESCOPE_AI_API_KEY":                       "secret-key",
		"SALESCOPE_AI_MODEL":                         "claude-opus-4-5",
		"SALESCOPE_AI_GROUNDING_MODEL":               "claude-haiku-4-5",
		"SALESCOPE_AI_MAX_TOKENS":                    "2048",
		"SALESCOPE_AI_GROUNDING_MAX_TOKENS":          "128",
		"SALESCOPE_AI_MAX_TOOL_ROUNDS":               "6",
		"SALESCOPE_AI_TOOL_RESULT_ROW_CAP":           "25",
		"SALESCOPE_AI_REDESIGN_CHARTS":               "true",
		"SALESCOPE_AI_TIMEOUT":                       "21s",
		"SALESCOPE_RETENTION_INTERVAL":               "30m",
		"SALESCOPE_RETENTION_MAX_UPLOAD_AGE":         "168h",
		"SALESCOPE_RETENTION_DATASET_CHECK_INTERVAL": "12h",
		"SALESCOPE_UI_SCHEMA_SAMPLE_ROWS":            "11",
		"SALESCOPE_LOG_LEVEL":                        "error",
		"SALESCOPE_AUTH_REQUIRED":                    "true",
		"SALESCOPE_AUTH_STATIC_KEYS":                 "k1:analyst:reader",
	})
	cfg, err := Load("salescope-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "salescope-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Database.Engine != EnginePostgres {
		t.Fatalf("Database.Engine = %q", cfg.Database.Engine)
	}
	if cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 17 {
		t.Fatalf("Database.MaxIdleConns = %d", cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxResultRows != 500 {
		t.Fatalf("Database.MaxResultRows = %d", cfg.Database.MaxResultRows)
	}
	if cfg.Database.DuckDBPath != "/tmp/warehouse.duckdb" {
		t.Fatalf("Database.DuckDBPath = %q", cfg.Database.DuckDBPath)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "salescope-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL = false, want true")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket = true, want false")
	}
	if !cfg.History.Enabled {
		t.Fatal("History.Enabled = false, want true")
	}
	if cfg.History.DSN != "postgres://history" {
		t.Fatalf("History.DSN = %q", cfg.History.DSN)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "claude-opus-4-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.MaxTokens != 2048 {
		t.Fatalf("AI.MaxTokens = %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.GroundingMaxTokens != 128 {
		t.Fatalf("AI.GroundingMaxTokens = %d", cfg.AI.GroundingMaxTokens)
	}
	if cfg.AI.MaxToolRounds != 6 {
		t.Fatalf("AI.MaxToolRounds = %d", cfg.AI.MaxToolRounds)
	}
	if cfg.AI.ToolResultRowCap != 25 {
		t.Fatalf("AI.ToolResultRowCap = %d", cfg.AI.ToolResultRowCap)
	}
	if !cfg.AI.RedesignCharts {
		t.Fatal("AI.RedesignCharts = false, want true")
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.Retention.Interval != 30*time.Minute {
		t.Fatalf("Retention.Interval = %s", cfg.Retention.Interval)
	}
	if cfg.Retention.MaxUploadAge != 168*time.Hour {
		t.Fatalf("Retention.MaxUploadAge = %s", cfg.Retention.MaxUploadAge)
	}
	if cfg.Retention.DatasetCheckInterval != 12*time.Hour {
		t.Fatalf("Retention.DatasetCheckInterval = %s", cfg.Retention.DatasetCheckInterval)
	}
	if cfg.UI.SchemaSampleRows != 11 {
		t.Fatalf("UI.SchemaSampleRows = %d", cfg.UI.SchemaSampleRows)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:analyst:reader" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"SALESCOPE_PROFILE": "oops"},
		{"SALESCOPE_HTTP_READ_TIMEOUT": "NaN"},
		{"SALESCOPE_DB_ENGINE": "sqlite"},
		{"SALESCOPE_DB_MAX_OPEN_CONNS": "oops"},
		{"SALESCOPE_AI_MAX_TOKENS": "oops"},
		{"SALESCOPE_AI_MAX_TOOL_ROUNDS": "oops"},
		{"SALESCOPE_RETENTION_INTERVAL": "oops"},
		{"SALESCOPE_AUTH_REQUIRED": "not-bool"},
		{"SALESCOPE_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("salescope-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func TestLoadRequiresHistoryDSNForDuckDBProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"SALESCOPE_HISTORY_ENABLED": "true",
	})
	if _, err := Load("salescope-api", lookup); err == nil {
		t.Fatal("Load() expected error: history enabled with duckdb engine and no history DSN")
	}
}

func TestHistoryDSNFallsBackToWarehouse(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Engine: EnginePostgres, DSN: "postgres://warehouse"},
	}
	if got := cfg.HistoryDSN(); got != "postgres://warehouse" {
		t.Fatalf("HistoryDSN() = %q", got)
	}

	cfg.History.DSN = "postgres://history"
	if got := cfg.HistoryDSN(); got != "postgres://history" {
		t.Fatalf("HistoryDSN() = %q", got)
	}

	cfg = Config{Database: DatabaseConfig{Engine: EngineDuckDB}}
	if got := cfg.HistoryDSN(); got != "" {
		t.Fatalf("HistoryDSN() = %q, want empty", got)
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
