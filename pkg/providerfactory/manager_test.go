package providerfactory

import (
	"reflect"
	"sync"
	"testing"

	"mercator-hq/sketch/pkg/registry"
)

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager.Count() != 0 {
		t.Errorf("expected 0 adapters, got %d", manager.Count())
	}
	if _, ok := manager.Adapter("openai"); ok {
		t.Error("expected no adapter in empty manager")
	}
}

func TestNewManagerFromRegistry(t *testing.T) {
	reg, err := registry.New(registry.Builtin()...)
	if err != nil {
		t.Fatalf("registry.New() failed: %v", err)
	}

	manager, err := NewManagerFromRegistry(reg, Options{})
	if err != nil {
		t.Fatalf("NewManagerFromRegistry() failed: %v", err)
	}

	if !reflect.DeepEqual(manager.Names(), reg.IDs()) {
		t.Errorf("expected names %v, got %v", reg.IDs(), manager.Names())
	}

	adapter, ok := manager.Adapter("gemini")
	if !ok {
		t.Fatal("expected gemini adapter")
	}
	if adapter.Type() != registry.TypeGemini {
		t.Errorf("expected gemini type, got %s", adapter.Type())
	}
}

func TestManager_AddAdapterReplaces(t *testing.T) {
	manager := NewManager()

	desc := registry.Descriptor{ID: "local", Type: registry.TypeOpenAI}
	if err := manager.AddAdapter(desc, Options{}); err != nil {
		t.Fatalf("AddAdapter() failed: %v", err)
	}

	desc.Type = registry.TypeGeneric
	if err := manager.AddAdapter(desc, Options{}); err != nil {
		t.Fatalf("AddAdapter() failed: %v", err)
	}

	if manager.Count() != 1 {
		t.Errorf("expected 1 adapter, got %d", manager.Count())
	}
	adapter, _ := manager.Adapter("local")
	if adapter.Type() != registry.TypeGeneric {
		t.Errorf("expected replacement adapter, got type %s", adapter.Type())
	}
}

func TestManager_AddAdapterError(t *testing.T) {
	manager := NewManager()
	if err := manager.AddAdapter(registry.Descriptor{ID: "x", Type: "smtp"}, Options{}); err == nil {
		t.Fatal("expected error")
	}
	if manager.Count() != 0 {
		t.Errorf("failed adapter should not be registered")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = manager.AddAdapter(registry.Descriptor{ID: "openai", Type: registry.TypeOpenAI}, Options{})
		}()
		go func() {
			defer wg.Done()
			manager.Adapter("openai")
			manager.Names()
		}()
	}
	wg.Wait()

	if manager.Count() != 1 {
		t.Errorf("expected 1 adapter, got %d", manager.Count())
	}
}
