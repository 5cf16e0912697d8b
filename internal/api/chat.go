package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/salescope/salescope/internal/assistant"
	"github.com/salescope/salescope/internal/auth"
	"github.com/salescope/salescope/internal/history"
	"github.com/salescope/salescope/internal/llm"
	"github.com/salescope/salescope/internal/observability"
	"github.com/salescope/salescope/internal/storage"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFile struct {
	Base64    string `json:"base64"`
	MediaType string `json:"mediaType"`
	IsText    bool   `json:"isText"`
	FileName  string `json:"fileName"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	FileData *chatFile     `json:"fileData"`
	Model    string        `json:"model"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeChatError(w, http.StatusInternalServerError, "chat service is not configured")
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeChatError(w, http.StatusForbidden, err.Error())
		return
	}

	var req chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeChatError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeChatError(w, http.StatusBadRequest, "messages are required")
		return
	}
	messages := make([]llm.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			writeChatError(w, http.StatusBadRequest, fmt.Sprintf("message %d: role must be user or assistant", i))
			return
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = deps.DefaultModel
	}
	if model == "" {
		writeChatError(w, http.StatusBadRequest, "model is required")
		return
	}

	file, err := fileFromRequest(req.FileData)
	if err != nil {
		writeChatError(w, http.StatusBadRequest, err.Error())
		return
	}
	if file != nil && deps.ObjectStore != nil {
		archiveUpload(r.Context(), deps, req.FileData)
	}

	result, err := deps.Assistant.Respond(r.Context(), assistant.Request{
		Messages: messages,
		File:     file,
		Model:    model,
	})
	if err != nil {
		if llm.IsAuthError(err) {
			writeChatError(w, http.StatusUnauthorized, "language model rejected the configured credentials")
			return
		}
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "chat turn failed",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.String("error", err.Error()),
			)
		}
		writeChatError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recordExchange(r.Context(), deps, result.Stats, result.Content)
	observability.ObserveChatExchange(result.Stats.LLMCalls, result.Stats.RowCount, result.Stats.ChartType, result.Stats.Grounded, result.Stats.Duration)
	writeJSON(w, http.StatusOK, result)
}

// fileFromRequest maps the wire attachment onto the model attachment. Text
// flagged payloads pass through as-is; everything else must be an image.
func fileFromRequest(fd *chatFile) (*llm.FileData, error) {
	if fd == nil {
		return nil, nil
	}
	if strings.TrimSpace(fd.Base64) == "" {
		return nil, errors.New("fileData.base64 is required")
	}
	kind := "image"
	if fd.IsText {
		kind = "text"
	} else if !strings.HasPrefix(fd.MediaType, "image/") {
		return nil, fmt.Errorf("unsupported file type %q", fd.MediaType)
	}
	return &llm.FileData{
		Type:      kind,
		MediaType: fd.MediaType,
		Data:      fd.Base64,
		FileName:  fd.FileName,
	}, nil
}

// archiveUpload keeps a copy of the attachment before the model sees it.
// Failures only log: the chat turn never depends on the archive.
func archiveUpload(ctx context.Context, deps Dependencies, fd *chatFile) {
	raw, err := base64.StdEncoding.DecodeString(fd.Base64)
	if err != nil {
		if !fd.IsText {
			warn(deps.Logger, ctx, "upload archive skipped: image payload is not base64", fd.FileName)
			return
		}
		// Text attachments may arrive as plain text rather than base64.
		raw = []byte(fd.Base64)
	}

	key, err := storage.BuildUploadPath(time.Now().UTC(), newUploadID(), fd.FileName)
	if err != nil {
		warn(deps.Logger, ctx, "upload archive skipped: "+err.Error(), fd.FileName)
		return
	}
	contentType := fd.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := deps.ObjectStore.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), storage.PutOptions{ContentType: contentType}); err != nil {
		warn(deps.Logger, ctx, "upload archive failed: "+err.Error(), fd.FileName)
	}
}

// recordExchange persists the turn when a recorder is wired. Best effort:
// the response is already decided, so a failed write only logs.
func recordExchange(ctx context.Context, deps Dependencies, stats assistant.Stats, answer string) {
	if deps.History == nil {
		return
	}
	_, err := deps.History.Record(ctx, history.RecordInput{
		Question:   stats.Question,
		Answer:     answer,
		Model:      stats.Model,
		SQLText:    stats.SQL,
		RowCount:   stats.RowCount,
		ChartType:  stats.ChartType,
		LLMCalls:   stats.LLMCalls,
		Grounded:   stats.Grounded,
		DurationMS: stats.Duration.Milliseconds(),
	})
	if err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(ctx, "exchange recording failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
	}
}

func warn(logger *slog.Logger, ctx context.Context, message, fileName string) {
	if logger == nil {
		return
	}
	logger.WarnContext(ctx, message,
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("file_name", fileName),
	)
}

// writeChatError answers with the chat envelope {"error": message}; the
// operator endpoints use the richer envelope from writeError.
func writeChatError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func newUploadID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
