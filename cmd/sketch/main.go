// Sketch turns natural-language prompts into Mermaid diagrams through any of
// several LLM providers, enforcing a local request quota per provider and
// keeping a persistent usage ledger.
//
// Usage:
//
//	# Generate a diagram with OpenAI's default model
//	sketch generate --provider openai "user login flow with 2FA"
//
//	# Show the provider catalog and remaining quota
//	sketch providers
//	sketch quota openai
//
//	# Show or reset the usage ledger
//	sketch usage
//	sketch usage --reset
//
//	# Check which provider keys are configured and well-formed
//	sketch keys check
//
//	# Serve the HTTP API
//	sketch serve --config sketch.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
