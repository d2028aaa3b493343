package providerfactory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
)

// Manager holds one adapter per provider id.
//
// Manager is thread-safe and can be used concurrently.
type Manager struct {
	adapters map[string]providers.Adapter
	mu       sync.RWMutex
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		adapters: make(map[string]providers.Adapter),
	}
}

// NewManagerFromRegistry creates a manager with an adapter for every
// provider in reg.
func NewManagerFromRegistry(reg *registry.Registry, opts Options) (*Manager, error) {
	m := NewManager()
	if err := m.LoadFromRegistry(reg, opts); err != nil {
		return nil, err
	}
	return m, nil
}

// AddAdapter creates and registers the adapter for desc. An existing
// adapter for the same id is replaced.
func (m *Manager) AddAdapter(desc registry.Descriptor, opts Options) error {
	adapter, err := NewAdapter(desc, opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.adapters[desc.ID]; ok {
		slog.Warn("replacing existing adapter", "provider", desc.ID)
	}
	m.adapters[desc.ID] = adapter

	return nil
}

// Adapter returns the adapter for id.
func (m *Manager) Adapter(id string) (providers.Adapter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adapter, ok := m.adapters[id]
	return adapter, ok
}

// Names returns the registered provider ids in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of registered adapters.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.adapters)
}

// LoadFromRegistry adds an adapter for every provider in reg.
// Any errors are collected and returned as a single error.
func (m *Manager) LoadFromRegistry(reg *registry.Registry, opts Options) error {
	var failed int

	for _, desc := range reg.List() {
		if err := m.AddAdapter(desc, opts); err != nil {
			failed++
			slog.Error("failed to load adapter",
				"provider", desc.ID,
				"error", err,
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to load %d adapter(s)", failed)
	}

	slog.Debug("adapters loaded", "count", m.Count())
	return nil
}
