// Package registry holds the static catalog of generation providers.
//
// A Registry is built once at startup from the built-in catalog, optionally
// overlaid with configuration, and is read-only afterwards. Lookups never
// perform I/O and are safe for concurrent use without locking.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrProviderNotFound is returned when a provider id is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrDuplicateProvider is returned when two descriptors share an id.
	ErrDuplicateProvider = errors.New("provider already registered")
)

// Adapter types understood by the provider factory.
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeGemini    = "gemini"
	TypeGeneric   = "generic"
)

// Quota is the request allowance of a provider within one window.
type Quota struct {
	MaxRequests   int `json:"max_requests" yaml:"max_requests"`
	WindowMinutes int `json:"window_minutes" yaml:"window_minutes"`
}

// Descriptor describes one provider.
type Descriptor struct {
	// ID is the unique provider identifier (e.g. "openai").
	ID string `json:"id"`

	// DisplayName is the human-readable provider name.
	DisplayName string `json:"display_name"`

	// Type selects the adapter that speaks this provider's wire format.
	Type string `json:"type"`

	// Models is the ordered model list; the first entry is the default.
	Models []string `json:"models"`

	// KeyPrefix is the prefix every valid key starts with. Empty accepts any
	// non-empty key.
	KeyPrefix string `json:"key_prefix,omitempty"`

	// Endpoint is the completion URL. Gemini endpoints may contain a
	// "{model}" placeholder.
	Endpoint string `json:"endpoint"`

	// Quota is the local request quota for this provider.
	Quota Quota `json:"quota"`
}

// DefaultModel returns the first model of the descriptor, or "" when the
// descriptor lists none.
func (d Descriptor) DefaultModel() string {
	if len(d.Models) == 0 {
		return ""
	}
	return d.Models[0]
}

// HasModel reports whether model is in the descriptor's model list.
func (d Descriptor) HasModel(model string) bool {
	for _, m := range d.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Validate checks that the descriptor is usable.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("provider id is required")
	}
	switch d.Type {
	case TypeOpenAI, TypeAnthropic, TypeGemini, TypeGeneric:
	default:
		return fmt.Errorf("provider %q: unsupported type %q", d.ID, d.Type)
	}
	if d.Endpoint == "" {
		return fmt.Errorf("provider %q: endpoint is required", d.ID)
	}
	if len(d.Models) == 0 {
		return fmt.Errorf("provider %q: at least one model is required", d.ID)
	}
	if d.Quota.MaxRequests <= 0 {
		return fmt.Errorf("provider %q: quota max_requests must be positive", d.ID)
	}
	if d.Quota.WindowMinutes <= 0 {
		return fmt.Errorf("provider %q: quota window_minutes must be positive", d.ID)
	}
	return nil
}

// Registry is an immutable set of provider descriptors.
type Registry struct {
	descriptors map[string]Descriptor
	order       []string
}

// New builds a registry from the given descriptors. Each descriptor is
// validated and copied so later changes to the inputs have no effect.
func New(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.descriptors[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, d.ID)
		}
		d.Models = append([]string(nil), d.Models...)
		r.descriptors[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	sort.Strings(r.order)
	return r, nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, error) {
	d, ok := r.descriptors[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	d.Models = append([]string(nil), d.Models...)
	return d, nil
}

// ListModels returns the ordered model list for id. The first element is the
// default selection.
func (r *Registry) ListModels(id string) ([]string, error) {
	d, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return d.Models, nil
}

// DefaultModel returns the default model for id.
func (r *Registry) DefaultModel(id string) (string, error) {
	d, err := r.Get(id)
	if err != nil {
		return "", err
	}
	return d.DefaultModel(), nil
}

// List returns all descriptors sorted by id.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		d := r.descriptors[id]
		d.Models = append([]string(nil), d.Models...)
		out = append(out, d)
	}
	return out
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// ValidateKey checks key against the provider's key-format rule.
func (r *Registry) ValidateKey(id, key string) error {
	d, err := r.Get(id)
	if err != nil {
		return err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("provider %q: key is empty", id)
	}
	if d.KeyPrefix != "" && !strings.HasPrefix(key, d.KeyPrefix) {
		return fmt.Errorf("provider %q: key must start with %q", id, d.KeyPrefix)
	}
	return nil
}
