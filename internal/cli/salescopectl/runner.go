package salescopectl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("salescopectl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "Salescope API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")
	limit := fs.Int("limit", 0, "page size for the history command")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))

	method := ""
	path := ""
	var body []byte
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "history":
		method, path = http.MethodGet, "/v1/history"
		if *limit > 0 {
			path = fmt.Sprintf("%s?limit=%d", path, *limit)
		}
	case "ask":
		if text == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question, e.g. salescopectl ask total sales by product")
			return 2
		}
		method, path = http.MethodPost, "/v1/nlquery"
		body = mustJSON(map[string]string{"question": text})
	case "query":
		if text == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/query"
		body = mustJSON(map[string]string{"sql": text})
	case "chat":
		if text == "" {
			_, _ = fmt.Fprintln(stderr, "chat requires a message")
			return 2
		}
		method, path = http.MethodPost, "/v1/chat"
		body = mustJSON(map[string]any{
			"messages": []map[string]string{{"role": "user", "content": text}},
		})
	case "retention-run":
		method, path = http.MethodPost, "/v1/uploads/retention/run"
	case "dataset-check-run":
		method, path = http.MethodPost, "/v1/datasets/check/run"
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: salescopectl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema                 GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  history                GET /v1/history (honors -limit)")
	_, _ = fmt.Fprintln(w, "  ask <question>         POST /v1/nlquery")
	_, _ = fmt.Fprintln(w, "  query <sql>            POST /v1/query")
	_, _ = fmt.Fprintln(w, "  chat <message>         POST /v1/chat")
	_, _ = fmt.Fprintln(w, "  retention-run          POST /v1/uploads/retention/run")
	_, _ = fmt.Fprintln(w, "  dataset-check-run      POST /v1/datasets/check/run")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
