package secrets

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// EnvProvider reads secrets from environment variables.
//
// A name is upper-cased, dashes and dots become underscores and Prefix is
// prepended: "openai-api-key" with prefix "SKETCH_" is SKETCH_OPENAI_API_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{
		Prefix: prefix,
	}
}

// GetSecret returns the value of the variable mapped from name. Unset and
// blank variables are both treated as missing.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)

	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNotFound, envVar)
	}
	return value, nil
}

// ListSecrets returns the key names visible in the environment. Only
// variables ending in _API_KEY are reported so unrelated variables never
// show up in listings.
func (p *EnvProvider) ListSecrets(ctx context.Context) ([]string, error) {
	suffix := strings.ToUpper(strings.ReplaceAll(KeySuffix, "-", "_"))

	var names []string
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if !strings.HasPrefix(key, p.Prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		names = append(names, p.secretName(key))
	}

	sort.Strings(names)
	return names, nil
}

// Provider returns "env".
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports accepts any non-empty name.
func (p *EnvProvider) Supports(name string) bool {
	return name != ""
}

// EnvVar returns the variable name consulted for name.
func (p *EnvProvider) EnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return p.Prefix + strings.ToUpper(r.Replace(name))
}

func (p *EnvProvider) secretName(envVar string) string {
	name := strings.TrimPrefix(envVar, p.Prefix)
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}
