/*
Package secrets resolves provider API keys.

Keys are looked up by name through an ordered chain of providers. The first
provider that has the key wins. A provider key for provider id "openai" is
named "openai-api-key" (see KeyName).

# Providers

  - EnvProvider reads environment variables. "openai-api-key" maps to
    OPENAI_API_KEY, or to SKETCH_OPENAI_API_KEY with prefix "SKETCH_".
  - FileProvider reads one file per key from a directory. Files must be
    mode 0600 or 0400. With watching enabled the directory is monitored
    through fsnotify and edits take effect without a restart.

# Manager

The Manager walks the chain, caches hits with a TTL and collapses
concurrent lookups of the same key into one provider call:

	mgr := secrets.NewManager([]secrets.SecretProvider{
		secrets.NewEnvProvider(""),
		fileProvider,
	}, secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute, MaxSize: 64}, logger)

	key, err := mgr.ProviderKey(ctx, "anthropic")
	if errors.Is(err, secrets.ErrNotFound) {
		// no key configured
	}

Key values are never logged. Names are shortened in debug output.
*/
package secrets
