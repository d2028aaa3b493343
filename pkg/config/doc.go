// Package config loads the service configuration.
//
// Configuration comes from an optional YAML file plus SKETCH_* environment
// overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("sketch.yaml")
//
// Values are applied in this order, later winning:
//
//  1. Defaults (defaults.go)
//  2. The YAML file
//  3. Environment variables
//
// The result is validated and every problem is reported at once as a
// ValidationError.
//
// # Environment Variables
//
// Fixed settings use SKETCH_<SECTION>_<FIELD>, for example
// SKETCH_GENERATION_TIMEOUT=30s or SKETCH_LOG_LEVEL=debug. Provider
// settings use SKETCH_PROVIDERS_<ID>_<FIELD>, where FIELD is one of
// ENDPOINT, TYPE, MODELS (comma separated), KEY_PREFIX, MAX_REQUESTS or
// WINDOW_MINUTES. Underscores in ID become dashes.
//
// API keys are not part of the configuration; see package secrets.
//
// # Example
//
//	generation:
//	  timeout: 45s
//	storage:
//	  backend: sqlite
//	  sqlite:
//	    path: /var/lib/sketch/state.db
//	providers:
//	  openrouter:
//	    headers:
//	      X-Title: sketch
//	  local:
//	    type: openai
//	    endpoint: http://localhost:11434/v1/chat/completions
//	    models: [llama3.1]
//	    key_prefix: ""
//	    quota: {max_requests: 100, window_minutes: 1}
//	pricing:
//	  local:
//	    default: llama3.1
//	    models:
//	      llama3.1: {input_per_1k: 0, output_per_1k: 0}
package config
