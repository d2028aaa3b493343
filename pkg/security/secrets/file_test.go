package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeKey(t *testing.T, dir, name, value string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), mode); err != nil {
		t.Fatal(err)
	}
	// WriteFile honours umask; force the mode under test.
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

func newFileProvider(t *testing.T, dir string, watch bool) *FileProvider {
	t.Helper()
	p, err := NewFileProvider(FileConfig{Dir: dir, Watch: watch})
	if err != nil {
		t.Fatalf("NewFileProvider failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestFileProvider_GetSecret(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "anthropic-api-key", "sk-ant-abc123\n", 0o600)

	p := newFileProvider(t, dir, false)

	value, err := p.GetSecret(context.Background(), "anthropic-api-key")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if value != "sk-ant-abc123" {
		t.Errorf("expected trimmed value, got %q", value)
	}
}

func TestFileProvider_Missing(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "blank-api-key", "  \n", 0o600)

	p := newFileProvider(t, dir, false)

	for _, name := range []string{"openai-api-key", "blank-api-key"} {
		_, err := p.GetSecret(context.Background(), name)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestFileProvider_Permissions(t *testing.T) {
	tests := []struct {
		mode os.FileMode
		ok   bool
	}{
		{0o600, true},
		{0o400, true},
		{0o644, false},
		{0o640, false},
		{0o666, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			dir := t.TempDir()
			writeKey(t, dir, "groq-api-key", "gsk_value", tt.mode)

			_, err := newFileProvider(t, dir, false).GetSecret(context.Background(), "groq-api-key")
			if tt.ok && err != nil {
				t.Errorf("expected success, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected permission error")
			}
		})
	}
}

func TestFileProvider_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	p := newFileProvider(t, dir, false)

	for _, name := range []string{"../etc/passwd", "a/b", "..", ".", ""} {
		if _, err := p.GetSecret(context.Background(), name); err == nil {
			t.Errorf("%q: expected error", name)
		}
		if p.Supports(name) {
			t.Errorf("%q: expected Supports to be false", name)
		}
	}
}

func TestFileProvider_ListAndSupports(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "openai-api-key", "sk-1", 0o600)
	writeKey(t, dir, "gemini-api-key", "AIza-1", 0o600)
	writeKey(t, dir, ".hidden", "x", 0o600)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}

	p := newFileProvider(t, dir, false)

	names, err := p.ListSecrets(context.Background())
	if err != nil {
		t.Fatalf("ListSecrets failed: %v", err)
	}
	if want := []string{"gemini-api-key", "openai-api-key"}; !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}

	if !p.Supports("openai-api-key") {
		t.Error("expected openai-api-key to be supported")
	}
	if p.Supports("nested") || p.Supports("anthropic-api-key") {
		t.Error("directories and missing files must not be supported")
	}
	if p.Provider() != "file" {
		t.Errorf("unexpected provider name %q", p.Provider())
	}
}

func TestFileProvider_CacheAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "openai-api-key", "sk-old", 0o600)

	p := newFileProvider(t, dir, false)
	ctx := context.Background()

	if v, _ := p.GetSecret(ctx, "openai-api-key"); v != "sk-old" {
		t.Fatalf("unexpected initial value %q", v)
	}

	writeKey(t, dir, "openai-api-key", "sk-new", 0o600)
	if v, _ := p.GetSecret(ctx, "openai-api-key"); v != "sk-old" {
		t.Errorf("expected cached value before refresh, got %q", v)
	}

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if v, _ := p.GetSecret(ctx, "openai-api-key"); v != "sk-new" {
		t.Errorf("expected new value after refresh, got %q", v)
	}
}

func TestFileProvider_Watch(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "openai-api-key", "sk-first", 0o600)

	p := newFileProvider(t, dir, true)
	ctx := context.Background()

	if v, _ := p.GetSecret(ctx, "openai-api-key"); v != "sk-first" {
		t.Fatalf("unexpected initial value %q", v)
	}

	writeKey(t, dir, "openai-api-key", "sk-second", 0o600)

	deadline := time.Now().Add(3 * time.Second)
	for {
		if v, err := p.GetSecret(ctx, "openai-api-key"); err == nil && v == "sk-second" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher did not pick up the changed key")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFileProvider_InvalidDir(t *testing.T) {
	if _, err := NewFileProvider(FileConfig{Dir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("expected error for missing directory")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileProvider(FileConfig{Dir: file}); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestFileProvider_CloseTwice(t *testing.T) {
	p := newFileProvider(t, t.TempDir(), true)
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
