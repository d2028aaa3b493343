package registry

import "sort"

// Builtin returns the built-in provider catalog.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			ID:          "openai",
			DisplayName: "OpenAI",
			Type:        TypeOpenAI,
			Models:      []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-4.1"},
			KeyPrefix:   "sk-",
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Quota:       Quota{MaxRequests: 20, WindowMinutes: 1},
		},
		{
			ID:          "anthropic",
			DisplayName: "Anthropic",
			Type:        TypeAnthropic,
			Models:      []string{"claude-3-5-haiku-latest", "claude-sonnet-4-20250514", "claude-3-5-sonnet-latest"},
			KeyPrefix:   "sk-ant-",
			Endpoint:    "https://api.anthropic.com/v1/messages",
			Quota:       Quota{MaxRequests: 15, WindowMinutes: 1},
		},
		{
			ID:          "gemini",
			DisplayName: "Google Gemini",
			Type:        TypeGemini,
			Models:      []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"},
			KeyPrefix:   "AIza",
			Endpoint:    "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent",
			Quota:       Quota{MaxRequests: 15, WindowMinutes: 1},
		},
		{
			ID:          "openrouter",
			DisplayName: "OpenRouter",
			Type:        TypeGeneric,
			Models:      []string{"openai/gpt-4o-mini", "anthropic/claude-3.5-sonnet", "meta-llama/llama-3.1-70b-instruct"},
			KeyPrefix:   "sk-or-",
			Endpoint:    "https://openrouter.ai/api/v1/chat/completions",
			Quota:       Quota{MaxRequests: 20, WindowMinutes: 1},
		},
		{
			ID:          "mistral",
			DisplayName: "Mistral",
			Type:        TypeGeneric,
			Models:      []string{"mistral-small-latest", "mistral-large-latest", "codestral-latest"},
			Endpoint:    "https://api.mistral.ai/v1/chat/completions",
			Quota:       Quota{MaxRequests: 10, WindowMinutes: 1},
		},
		{
			ID:          "groq",
			DisplayName: "Groq",
			Type:        TypeGeneric,
			Models:      []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
			KeyPrefix:   "gsk_",
			Endpoint:    "https://api.groq.com/openai/v1/chat/completions",
			Quota:       Quota{MaxRequests: 30, WindowMinutes: 1},
		},
	}
}

// Override replaces selected fields of a descriptor. Zero fields keep the
// base value. An override for an unknown id registers a new provider, which
// then needs Type, Endpoint, Models and Quota.
type Override struct {
	DisplayName string
	Type        string
	Models      []string
	KeyPrefix   *string
	Endpoint    string
	Quota       Quota
}

// Apply merges overrides onto base and returns the resulting descriptors.
// New providers are appended in id order. base is not modified.
func Apply(base []Descriptor, overrides map[string]Override) []Descriptor {
	out := make([]Descriptor, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(base))

	for _, d := range base {
		seen[d.ID] = true
		if o, ok := overrides[d.ID]; ok {
			d = o.merge(d)
		}
		out = append(out, d)
	}

	var extra []string
	for id := range overrides {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)

	for _, id := range extra {
		d := overrides[id].merge(Descriptor{ID: id, Type: TypeGeneric})
		if d.DisplayName == "" {
			d.DisplayName = id
		}
		out = append(out, d)
	}

	return out
}

func (o Override) merge(d Descriptor) Descriptor {
	if o.DisplayName != "" {
		d.DisplayName = o.DisplayName
	}
	if o.Type != "" {
		d.Type = o.Type
	}
	if len(o.Models) > 0 {
		d.Models = append([]string(nil), o.Models...)
	}
	if o.KeyPrefix != nil {
		d.KeyPrefix = *o.KeyPrefix
	}
	if o.Endpoint != "" {
		d.Endpoint = o.Endpoint
	}
	if o.Quota.MaxRequests > 0 {
		d.Quota.MaxRequests = o.Quota.MaxRequests
	}
	if o.Quota.WindowMinutes > 0 {
		d.Quota.WindowMinutes = o.Quota.WindowMinutes
	}
	return d
}
