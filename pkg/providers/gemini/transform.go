package gemini

import "mercator-hq/sketch/pkg/providers"

// GenerateRequest represents a generateContent request.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a turn made of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text part.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig holds sampling options.
type GenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

// GenerateResponse represents a generateContent response.
type GenerateResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
}

// Candidate is one generated candidate.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata represents token usage.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func transformCall(call providers.Call) *GenerateRequest {
	req := &GenerateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: call.UserPrompt}}},
		},
	}

	if call.SystemPrompt != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: call.SystemPrompt}}}
	}
	if call.MaxTokens > 0 {
		req.GenerationConfig = &GenerationConfig{MaxOutputTokens: call.MaxTokens}
	}

	return req
}
