package orchestrator

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mermaid tag", "```mermaid\ngraph TD;A-->B\n```", "graph TD;A-->B"},
		{"no tag", "```\nsequenceDiagram\nA->>B: hi\n```", "sequenceDiagram\nA->>B: hi"},
		{"surrounding whitespace", "\n\n  ```mermaid\ngraph LR\n```  \n", "graph LR"},
		{"unclosed fence", "```mermaid\ngraph TD;A-->B", "graph TD;A-->B"},
		{"single line", "```graph TD;A-->B```", "graph TD;A-->B"},
		{"single line with tag", "```mermaid graph TD;A-->B```", "graph TD;A-->B"},
		{"tag on opening line", "```mermaid graph TD\nA-->B\n```", "graph TD\nA-->B"},
		{"diagram keyword kept", "```flowchart LR\nA-->B\n```", "flowchart LR\nA-->B"},
		{"first line is diagram", "```graph TD\nA-->B\n```", "graph TD\nA-->B"},
		{"no fence", "  graph TD;A-->B  ", "graph TD;A-->B"},
		{"empty", "", ""},
		{"inner fence kept", "graph TD\nA[```]-->B", "graph TD\nA[```]-->B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.input); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
