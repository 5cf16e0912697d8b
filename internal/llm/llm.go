package llm

import "context"

// Message is one turn of the client-visible conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FileData is an inline attachment riding along with the question. Data is
// base64 for images and either base64 or plain text for text files.
type FileData struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	Data      string `json:"data"`
	FileName  string `json:"fileName,omitempty"`
}

// Tool describes a callable tool as a JSON schema fragment.
type Tool struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ToolUse is a tool invocation the model asked for.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult pairs a tool invocation with its outcome. IsError reports
// failure explicitly; error text alone never marks a result failed.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// Reply is one model turn: concatenated text blocks plus tool calls in
// block order.
type Reply struct {
	Text     string
	ToolUses []ToolUse
}

// ConversationConfig seeds a tool-calling conversation.
type ConversationConfig struct {
	Model     string
	System    string
	MaxTokens int64
	Tools     []Tool
	Messages  []Message
	File      *FileData
}

// CompleteRequest is a one-shot prompt with no tools.
type CompleteRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int64
}

// Conversation carries the model-side message history across tool rounds.
type Conversation interface {
	Step(ctx context.Context) (Reply, error)
	AddToolResults(results []ToolResult)
}

// Completer is the model seam: a conversation factory plus a one-shot
// completion used for verification passes.
type Completer interface {
	Converse(cfg ConversationConfig) Conversation
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}
