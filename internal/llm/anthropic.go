package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 4096

// Client talks to the Anthropic Messages API. It implements Completer.
type Client struct {
	client anthropic.Client
}

// New builds a client. An empty key falls through to the SDK's environment
// lookup so local runs keep working without config plumbing.
func New(apiKey string) *Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Client{client: anthropic.NewClient(opts...)}
}

// IsAuthError reports whether err is an API rejection of the configured key.
func IsAuthError(err error) bool {
	var apiErr *anthropic.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func (c *Client) Converse(cfg ConversationConfig) Conversation {
	return &conversation{
		client:    c.client,
		model:     anthropic.Model(cfg.Model),
		system:    cfg.System,
		maxTokens: orDefault(cfg.MaxTokens),
		tools:     buildTools(cfg.Tools),
		messages:  buildMessages(cfg.Messages, cfg.File),
	}
}

func (c *Client) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: orDefault(req.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return replyFromMessage(resp).Text, nil
}

type conversation struct {
	client    anthropic.Client
	model     anthropic.Model
	system    string
	maxTokens int64
	tools     []anthropic.ToolUnionParam
	messages  []anthropic.MessageParam
}

func (cv *conversation) Step(ctx context.Context) (Reply, error) {
	params := anthropic.MessageNewParams{
		Model:     cv.model,
		MaxTokens: cv.maxTokens,
		Messages:  cv.messages,
		Tools:     cv.tools,
	}
	if cv.system != "" {
		// The system prompt embeds the schema catalog and is identical
		// across turns, so let the API cache it.
		params.System = []anthropic.TextBlockParam{{
			Type:         "text",
			Text:         cv.system,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}}
	}
	resp, err := cv.client.Messages.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("message step: %w", err)
	}
	cv.messages = append(cv.messages, resp.ToParam())
	return replyFromMessage(resp), nil
}

func (cv *conversation) AddToolResults(results []ToolResult) {
	if len(results) == 0 {
		return
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, anthropic.NewToolResultBlock(r.ID, r.Content, r.IsError))
	}
	cv.messages = append(cv.messages, anthropic.NewUserMessage(blocks...))
}

func replyFromMessage(msg *anthropic.Message) Reply {
	var reply Reply
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			if tu.ID == "" || tu.Name == "" {
				continue
			}
			input := map[string]any{}
			if len(tu.Input) > 0 {
				if err := json.Unmarshal(tu.Input, &input); err != nil {
					input = map[string]any{}
				}
			}
			reply.ToolUses = append(reply.ToolUses, ToolUse{ID: tu.ID, Name: tu.Name, Input: input})
		}
	}
	reply.Text = text.String()
	return reply
}

func buildTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		tool := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.Opt(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: t.Properties,
				Required:   t.Required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return out
}

// buildMessages converts the client history to API form. A file attachment
// is folded into the last user message so the model sees it next to the
// question it belongs to.
func buildMessages(messages []Message, file *FileData) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages)+1)
	lastUser := -1
	for i, m := range messages {
		if strings.EqualFold(m.Role, "user") {
			lastUser = i
		}
	}
	for i, m := range messages {
		blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)}
		if i == lastUser && file != nil {
			blocks = append(blocks, fileBlock(file))
		}
		if strings.EqualFold(m.Role, "assistant") {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
			continue
		}
		out = append(out, anthropic.NewUserMessage(blocks...))
	}
	if lastUser == -1 && file != nil {
		out = append(out, anthropic.NewUserMessage(fileBlock(file)))
	}
	return out
}

func fileBlock(file *FileData) anthropic.ContentBlockParamUnion {
	if file.Type == "image" {
		return anthropic.NewImageBlockBase64(file.MediaType, file.Data)
	}
	content := file.Data
	if decoded, err := base64.StdEncoding.DecodeString(file.Data); err == nil {
		content = string(decoded)
	}
	name := file.FileName
	if name == "" {
		name = "attachment"
	}
	return anthropic.NewTextBlock(fmt.Sprintf("Contents of %s:\n\n%s", name, content))
}

func orDefault(maxTokens int64) int64 {
	if maxTokens <= 0 {
		return defaultMaxTokens
	}
	return maxTokens
}
