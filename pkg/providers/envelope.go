package providers

import (
	"encoding/json"
	"strings"
)

// envelope is the union of the response shapes we understand:
//
//	{"choices": [{"message": {"content": "..."}}]}          chat completions
//	{"content": [{"type": "text", "text": "..."}]}           messages API
//	{"candidates": [{"content": {"parts": [{"text": "..."}]}}]} generateContent
type envelope struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`

	Content json.RawMessage `json:"content"`

	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`

	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		InputTokens      int `json:"input_tokens"`
		OutputTokens     int `json:"output_tokens"`
	} `json:"usage"`

	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type contentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

// ParseEnvelope returns the generated text in body. Shapes are tried in
// order: choices, content blocks, candidates. A body matching none of them,
// or not JSON at all, yields "".
func ParseEnvelope(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}

	if len(env.Choices) > 0 && env.Choices[0].Message.Content != nil {
		return *env.Choices[0].Message.Content
	}

	if len(env.Content) > 0 {
		var blocks []contentBlock
		if err := json.Unmarshal(env.Content, &blocks); err == nil &&
			len(blocks) > 0 && blocks[0].Text != nil {
			return *blocks[0].Text
		}
	}

	if len(env.Candidates) > 0 {
		parts := env.Candidates[0].Content.Parts
		if len(parts) > 0 {
			var sb strings.Builder
			for _, p := range parts {
				sb.WriteString(p.Text)
			}
			return sb.String()
		}
	}

	return ""
}

// ParseUsage returns the token counts in body, reading OpenAI-style
// (prompt/completion), Anthropic-style (input/output) and Gemini-style
// (usageMetadata) fields. Absent counts are zero.
func ParseUsage(body []byte) TokenUsage {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return TokenUsage{}
	}

	var u TokenUsage
	if env.Usage != nil {
		u.InputTokens = env.Usage.PromptTokens
		u.OutputTokens = env.Usage.CompletionTokens
		if u.InputTokens == 0 {
			u.InputTokens = env.Usage.InputTokens
		}
		if u.OutputTokens == 0 {
			u.OutputTokens = env.Usage.OutputTokens
		}
	}
	if env.UsageMetadata != nil && u.Total() == 0 {
		u.InputTokens = env.UsageMetadata.PromptTokenCount
		u.OutputTokens = env.UsageMetadata.CandidatesTokenCount
	}

	if u.InputTokens < 0 {
		u.InputTokens = 0
	}
	if u.OutputTokens < 0 {
		u.OutputTokens = 0
	}
	return u
}
