// Package anthropic implements the Anthropic Messages API adapter.
//
// Requests authenticate with the x-api-key header and pin the API version
// with anthropic-version. The system instructions and the user prompt are
// sent together as a single text block in one user message, and max_tokens
// is always set because the Messages API requires it.
//
//	a, err := anthropic.NewAdapter(anthropic.Config{
//	    Name:       "anthropic",
//	    Calculator: calc,
//	})
//	req, err := a.BuildRequest(ctx, providers.Call{
//	    SystemPrompt: systemPrompt,
//	    UserPrompt:   "a login flow",
//	    Model:        "claude-3-5-haiku-latest",
//	    Secret:       key,
//	    Endpoint:     "https://api.anthropic.com/v1/messages",
//	})
//
// Responses carry the text in content[0].text and token counts in
// usage.input_tokens / usage.output_tokens; both are read by the shared
// envelope parser in package providers.
package anthropic
