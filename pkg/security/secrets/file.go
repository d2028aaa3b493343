package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileProvider reads one secret per file from a directory.
//
// Secret "openai-api-key" lives in <Dir>/openai-api-key. Files must be
// regular files with mode 0600 or 0400. Values are trimmed and cached until
// the directory changes (when watching) or Refresh is called.
type FileProvider struct {
	Dir string

	logger  *slog.Logger
	mu      sync.RWMutex
	values  map[string]string
	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  sync.Once
}

// FileConfig configures a FileProvider.
type FileConfig struct {
	// Dir is the directory holding key files.
	Dir string

	// Watch enables fsnotify-driven reloads.
	Watch bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewFileProvider creates a file provider for cfg.Dir, which must exist.
func NewFileProvider(cfg FileConfig) (*FileProvider, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve secrets directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", dir)
	}

	p := &FileProvider{
		Dir:    dir,
		logger: cfg.Logger.With("component", "secrets", "source", "file"),
		values: make(map[string]string),
		done:   make(chan struct{}),
	}

	if cfg.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch secrets directory: %w", err)
		}
		p.watcher = watcher
		go p.watchLoop()
	}

	p.logger.Debug("file secret provider ready", "dir", dir, "watch", cfg.Watch)
	return p, nil
}

// GetSecret reads the file named name.
func (p *FileProvider) GetSecret(ctx context.Context, name string) (string, error) {
	p.mu.RLock()
	value, ok := p.values[name]
	p.mu.RUnlock()
	if ok {
		return value, nil
	}

	path, err := p.path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no file for %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret %s is not a regular file", name)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on secret %s: %o (want 0600 or 0400)", name, mode)
	}

	// #nosec G304 - path is confined to Dir by p.path
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	value = strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: file for %s is empty", ErrNotFound, name)
	}

	p.mu.Lock()
	p.values[name] = value
	p.mu.Unlock()

	return value, nil
}

// ListSecrets returns the names of regular, non-hidden files in Dir.
func (p *FileProvider) ListSecrets(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Provider returns "file".
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports reports whether a regular file exists for name.
func (p *FileProvider) Supports(name string) bool {
	path, err := p.path(name)
	if err != nil {
		return false
	}
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

// Refresh drops cached values so the next read goes to disk.
func (p *FileProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.values = make(map[string]string)
	p.mu.Unlock()
	return nil
}

// Close stops watching. It is safe to call more than once.
func (p *FileProvider) Close() error {
	var err error
	p.closed.Do(func() {
		close(p.done)
		if p.watcher != nil {
			err = p.watcher.Close()
		}
	})
	return err
}

// path maps name into Dir, rejecting anything that would escape it.
func (p *FileProvider) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	return filepath.Join(p.Dir, name), nil
}

func (p *FileProvider) watchLoop() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			name := filepath.Base(event.Name)
			p.mu.Lock()
			delete(p.values, name)
			p.mu.Unlock()

			p.logger.Debug("secret file changed", "name", redactName(name), "op", event.Op.String())

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("secret file watcher error", "error", err)

		case <-p.done:
			return
		}
	}
}
