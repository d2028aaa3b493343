package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Manager resolves secrets through an ordered provider chain.
type Manager struct {
	providers []SecretProvider
	cache     *Cache
	group     singleflight.Group
	logger    *slog.Logger
}

// NewManager creates a manager. Providers are consulted in order.
func NewManager(providers []SecretProvider, cacheConfig CacheConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
		logger:    logger.With("component", "secrets"),
	}
}

// GetSecret returns the first value any provider has for name. Concurrent
// lookups of the same name share one pass over the chain.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	ch := m.group.DoChan(name, func() (interface{}, error) {
		return m.lookup(context.WithoutCancel(ctx), name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ProviderKey returns the API key configured for providerID.
func (m *Manager) ProviderKey(ctx context.Context, providerID string) (string, error) {
	return m.GetSecret(ctx, KeyName(providerID))
}

// Source reports which provider currently serves name, or "" if none does.
func (m *Manager) Source(ctx context.Context, name string) string {
	for _, p := range m.providers {
		if !p.Supports(name) {
			continue
		}
		if _, err := p.GetSecret(ctx, name); err == nil {
			return p.Provider()
		}
	}
	return ""
}

func (m *Manager) lookup(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, p := range m.providers {
		if !p.Supports(name) {
			continue
		}

		value, err := p.GetSecret(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.logger.Warn("secret provider failed",
					"source", p.Provider(),
					"name", redactName(name),
					"error", err,
				)
			}
			errs = append(errs, err)
			continue
		}

		m.cache.Set(name, value)
		m.logger.Debug("secret resolved", "source", p.Provider(), "name", redactName(name))
		return value, nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s (no source configured)", ErrNotFound, name)
	}
	return "", fmt.Errorf("secret %s: %w", name, errors.Join(errs...))
}

// Refresh drops the manager cache and refreshes every provider that keeps
// its own.
func (m *Manager) Refresh(ctx context.Context) error {
	var failed []string
	for _, p := range m.providers {
		r, ok := p.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := r.Refresh(ctx); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", p.Provider(), err))
		}
	}

	m.cache.Clear()

	if len(failed) > 0 {
		return fmt.Errorf("failed to refresh secret sources: %s", strings.Join(failed, "; "))
	}
	return nil
}

// ListSecrets returns the sorted union of every provider's names.
func (m *Manager) ListSecrets(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, p := range m.providers {
		names, err := p.ListSecrets(ctx)
		if err != nil {
			m.logger.Warn("failed to list secrets", "source", p.Provider(), "error", err)
			continue
		}
		for _, n := range names {
			seen[n] = true
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Close closes every provider that holds resources.
func (m *Manager) Close() error {
	var errs []error
	for _, p := range m.providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
