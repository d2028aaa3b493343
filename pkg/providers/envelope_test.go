package providers

import "testing"

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "choices",
			body: `{"choices":[{"message":{"role":"assistant","content":"graph TD;A-->B"}}]}`,
			want: "graph TD;A-->B",
		},
		{
			name: "content blocks",
			body: `{"content":[{"type":"text","text":"sequenceDiagram"}],"usage":{"input_tokens":3}}`,
			want: "sequenceDiagram",
		},
		{
			name: "candidates joins parts",
			body: `{"candidates":[{"content":{"parts":[{"text":"graph "},{"text":"LR"}]}}]}`,
			want: "graph LR",
		},
		{
			name: "choices preferred over content",
			body: `{"choices":[{"message":{"content":"first"}}],"content":[{"text":"second"}]}`,
			want: "first",
		},
		{
			name: "unknown shape",
			body: `{"result":{"text":"nope"}}`,
			want: "",
		},
		{
			name: "empty choices",
			body: `{"choices":[]}`,
			want: "",
		},
		{
			name: "content is a string",
			body: `{"content":"plain"}`,
			want: "",
		},
		{
			name: "not json",
			body: `<html>bad gateway</html>`,
			want: "",
		},
		{
			name: "top-level array",
			body: `[1,2,3]`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseEnvelope([]byte(tt.body)); got != tt.want {
				t.Errorf("ParseEnvelope() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseUsage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want TokenUsage
	}{
		{
			name: "prompt and completion",
			body: `{"usage":{"prompt_tokens":12,"completion_tokens":34,"total_tokens":46}}`,
			want: TokenUsage{InputTokens: 12, OutputTokens: 34},
		},
		{
			name: "input and output",
			body: `{"usage":{"input_tokens":5,"output_tokens":7}}`,
			want: TokenUsage{InputTokens: 5, OutputTokens: 7},
		},
		{
			name: "usage metadata",
			body: `{"usageMetadata":{"promptTokenCount":8,"candidatesTokenCount":9}}`,
			want: TokenUsage{InputTokens: 8, OutputTokens: 9},
		},
		{
			name: "missing",
			body: `{"choices":[]}`,
			want: TokenUsage{},
		},
		{
			name: "garbage",
			body: `nope`,
			want: TokenUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseUsage([]byte(tt.body)); got != tt.want {
				t.Errorf("ParseUsage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
