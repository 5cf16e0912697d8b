package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salescope/salescope/internal/assistant"
	"github.com/salescope/salescope/internal/auth"
	"github.com/salescope/salescope/internal/config"
	"github.com/salescope/salescope/internal/history"
	"github.com/salescope/salescope/internal/maintenance"
	"github.com/salescope/salescope/internal/nlquery"
	"github.com/salescope/salescope/internal/observability"
	"github.com/salescope/salescope/internal/schema"
	"github.com/salescope/salescope/internal/storage"
	"github.com/salescope/salescope/internal/store"
)

type ReadinessCheck func(ctx context.Context) error

// ChatService is the orchestrator seam the chat endpoint talks to.
type ChatService interface {
	Respond(ctx context.Context, req assistant.Request) (*assistant.Result, error)
}

type MaintenanceRunner interface {
	RunRetentionOnce(ctx context.Context) (maintenance.RetentionSummary, error)
	RunDatasetCheckOnce(ctx context.Context) (maintenance.DatasetSummary, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Assistant         ChatService
	Store             store.Store
	Catalog           *schema.Catalog
	Analyzer          *nlquery.Analyzer
	ObjectStore       storage.ObjectStore
	History           history.Recorder
	Maintenance       MaintenanceRunner
	DefaultModel      string
	SchemaSampleRows  int
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{"status": "ok", "service": cfg.Service.Name}
		if deps.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), dependencyTimeout(deps))
			defer cancel()
			payload["database"] = databaseHealth(deps.Store.HealthCheck(ctx))
		}
		writeJSON(w, http.StatusOK, payload)
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), dependencyTimeout(deps))
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	protected.HandleFunc("POST /v1/nlquery", func(w http.ResponseWriter, r *http.Request) {
		handleNLQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistoryList(deps, w, r)
	})
	protected.HandleFunc("GET /v1/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleHistoryGet(deps, w, r)
	})
	protected.HandleFunc("POST /v1/uploads/retention/run", func(w http.ResponseWriter, r *http.Request) {
		handleRetentionRun(deps, w, r)
	})
	protected.HandleFunc("POST /v1/datasets/check/run", func(w http.ResponseWriter, r *http.Request) {
		handleDatasetCheckRun(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/chat", protectedHandler)
	mux.Handle("POST /v1/nlquery", protectedHandler)
	mux.Handle("POST /v1/query", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("GET /v1/history", protectedHandler)
	mux.Handle("GET /v1/history/{id}", protectedHandler)
	mux.Handle("POST /v1/uploads/retention/run", protectedHandler)
	mux.Handle("POST /v1/datasets/check/run", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func dependencyTimeout(deps Dependencies) time.Duration {
	if deps.DependencyTimeout > 0 {
		return deps.DependencyTimeout
	}
	return 2 * time.Second
}

// databaseHealth keeps the health wire shape minimal: a reachable warehouse
// reports when it was checked, an unreachable one reports why.
func databaseHealth(h store.Health) map[string]any {
	if !h.Connected {
		out := map[string]any{"connected": false}
		if h.Error != "" {
			out["error"] = h.Error
		}
		return out
	}
	return map[string]any{"connected": true, "timestamp": h.Timestamp}
}

func CheckStoreHealth(st store.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if st == nil {
			return errors.New("warehouse store is not configured")
		}
		health := st.HealthCheck(ctx)
		if !health.Connected {
			if health.Error != "" {
				return fmt.Errorf("warehouse unreachable: %s", health.Error)
			}
			return errors.New("warehouse unreachable")
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
