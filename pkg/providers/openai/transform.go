package openai

import "mercator-hq/sketch/pkg/providers"

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// ChatMessage represents a message in chat format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a chat completion response.
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChatChoice represents a completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage represents token usage.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// transformCall builds the chat request for call. An empty system prompt
// is omitted.
func transformCall(call providers.Call) *ChatRequest {
	req := &ChatRequest{
		Model:     call.Model,
		MaxTokens: call.MaxTokens,
	}

	if call.SystemPrompt != "" {
		req.Messages = append(req.Messages, ChatMessage{Role: RoleSystem, Content: call.SystemPrompt})
	}
	req.Messages = append(req.Messages, ChatMessage{Role: RoleUser, Content: call.UserPrompt})

	return req
}
