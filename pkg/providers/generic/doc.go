// Package generic implements the adapter for OpenAI-compatible providers.
//
// OpenRouter, Mistral, Groq and self-hosted servers (Ollama, vLLM, LM Studio)
// accept the chat completions wire format, so this adapter reuses the openai
// adapter and only changes the reported type, the extra headers and the
// error hints.
//
//	a, err := generic.NewAdapter(generic.Config{
//	    Name:       "openrouter",
//	    Calculator: calc,
//	    Headers:    map[string]string{"X-Title": "sketch"},
//	})
package generic
