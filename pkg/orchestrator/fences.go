package orchestrator

import "strings"

const fence = "```"

// fenceLanguages are info strings recognized in front of diagram text on the
// opening line itself ("```mermaid graph TD"). Diagram keywords such as
// "graph" must never be listed here.
var fenceLanguages = map[string]bool{
	"mermaid":  true,
	"mmd":      true,
	"plantuml": true,
	"puml":     true,
	"dot":      true,
	"graphviz": true,
	"text":     true,
	"txt":      true,
}

// StripFences removes a fenced block wrapping the whole of text, including
// an optional language tag on the opening line, and trims whitespace.
// Text that does not start with a fence is only trimmed.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, fence) {
		return text
	}

	body := strings.TrimPrefix(text, fence)
	body = strings.TrimSuffix(body, fence)

	if i := strings.IndexByte(body, '\n'); i >= 0 {
		// The opening line holds the language tag, if any.
		if tag := strings.TrimSpace(body[:i]); isLanguageTag(tag) {
			return strings.TrimSpace(body[i+1:])
		}
	}

	return strings.TrimSpace(stripInlineTag(body))
}

// stripInlineTag drops a known language tag followed by whitespace at the
// start of body.
func stripInlineTag(body string) string {
	i := strings.IndexAny(body, " \t\n")
	if i <= 0 || !fenceLanguages[strings.ToLower(body[:i])] {
		return body
	}
	return body[i:]
}

// isLanguageTag reports whether s looks like an info string ("mermaid",
// "plantuml", "dot") rather than the first line of the diagram.
func isLanguageTag(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '+' || r == '.':
		default:
			return false
		}
	}
	return true
}
