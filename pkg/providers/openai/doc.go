// Package openai implements the adapter for OpenAI's chat completions API.
//
// The request carries the key as a bearer token and sends the system prompt
// as its own message ahead of the user prompt:
//
//	POST /v1/chat/completions
//	Authorization: Bearer sk-...
//
//	{"model": "gpt-4o-mini", "messages": [
//	    {"role": "system", "content": "..."},
//	    {"role": "user", "content": "..."}
//	]}
//
// The generic package reuses this adapter for OpenAI-compatible providers.
package openai
