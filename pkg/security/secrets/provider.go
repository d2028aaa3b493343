package secrets

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when no provider holds the requested secret.
var ErrNotFound = errors.New("secret not found")

// KeySuffix is appended to a provider id to form its key name.
const KeySuffix = "-api-key"

// KeyName returns the secret name holding the API key of providerID.
func KeyName(providerID string) string {
	return strings.ToLower(providerID) + KeySuffix
}

// SecretProvider is one source of secrets.
type SecretProvider interface {
	// GetSecret returns the value of name. A missing secret yields an error
	// wrapping ErrNotFound.
	GetSecret(ctx context.Context, name string) (string, error)

	// ListSecrets returns the names this provider can currently serve.
	ListSecrets(ctx context.Context) ([]string, error)

	// Provider returns the source name ("env", "file").
	Provider() string

	// Supports reports whether name may be served by this provider.
	Supports(name string) bool
}

// RefreshableProvider is a provider with its own cache that can be dropped.
type RefreshableProvider interface {
	SecretProvider

	Refresh(ctx context.Context) error
}
