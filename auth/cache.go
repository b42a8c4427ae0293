package auth

// Keyring persistence for the identity library's token cache.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/zalando/go-keyring"

	"github.com/FBakkensen/docchat-tui/logging"
)

// ErrNoStoredCache indicates no persisted token cache was found
var ErrNoStoredCache = errors.New("no stored token cache found")

const (
	// cacheKey is not a credential but a key name for the persisted token cache
	cacheKey = "msal-cache" // #nosec G101
	// backupCacheKey stores a duplicate copy for resilience against sporadic key loss
	backupCacheKey = "msal-cache-backup" // #nosec G101
)

// baseServiceName is the base service name for keyring storage (may be namespaced via env for tests/dev).
const baseServiceName = "docchat-tui"

// keyringServiceName resolves the effective keyring service name, allowing isolation in tests/dev.
// Precedence:
// 1) DOCCHAT_KEYRING_SERVICE (full override)
// 2) DOCCHAT_KEYRING_NAMESPACE (suffix appended to base)
// 3) baseServiceName
func keyringServiceName() string {
	if v := strings.TrimSpace(os.Getenv("DOCCHAT_KEYRING_SERVICE")); v != "" {
		return v
	}
	if ns := strings.TrimSpace(os.Getenv("DOCCHAT_KEYRING_NAMESPACE")); ns != "" {
		return baseServiceName + "-" + ns
	}
	return baseServiceName
}

// KeyringEntryInfo returns the effective keyring service and key used to store
// the token cache. This is exported for diagnostics only.
func KeyringEntryInfo() (service, key string) {
	return keyringServiceName(), cacheKey
}

// keyringCache adapts the OS credential manager to the identity library's
// cache accessor contract. Replace loads the persisted cache before a token
// operation; Export writes it back afterwards. This is what survives process
// restarts, so a sign-in in one run is resumed silently in the next.
type keyringCache struct{}

// Replace implements cache.ExportReplace. A missing entry is not an error;
// the library simply starts with an empty cache.
func (keyringCache) Replace(_ context.Context, contract cache.Unmarshaler, _ cache.ReplaceHints) error {
	data, err := readStoredCache()
	if err != nil {
		if errors.Is(err, ErrNoStoredCache) {
			return nil
		}
		return err
	}
	return contract.Unmarshal(data)
}

// Export implements cache.ExportReplace.
func (keyringCache) Export(_ context.Context, contract cache.Marshaler, _ cache.ExportHints) error {
	data, err := contract.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}

	if err := keyring.Set(keyringServiceName(), cacheKey, string(data)); err != nil {
		logging.Error("Failed to store token cache in keyring", "error", err.Error())
		return fmt.Errorf("failed to store token cache in keyring: %w", err)
	}

	// Best-effort backup copy to mitigate intermittent credential loss on some systems
	if err := keyring.Set(keyringServiceName(), backupCacheKey, string(data)); err != nil {
		logging.Warn("Failed to store backup token cache in keyring", "error", err.Error())
	}

	return nil
}

// readStoredCache retrieves the persisted cache, self-healing the primary
// entry from the backup when needed.
func readStoredCache() ([]byte, error) {
	data, err := keyring.Get(keyringServiceName(), cacheKey)
	if err == nil {
		if strings.TrimSpace(data) == "" {
			return nil, ErrNoStoredCache
		}
		return []byte(data), nil
	}
	if err != keyring.ErrNotFound {
		logging.Error("Failed to retrieve token cache from keyring", "error", err.Error())
		return nil, fmt.Errorf("failed to get token cache from keyring: %w", err)
	}

	logging.Info("No token cache in primary keyring entry; attempting backup")
	backup, bErr := keyring.Get(keyringServiceName(), backupCacheKey)
	if bErr != nil {
		if bErr == keyring.ErrNotFound {
			return nil, ErrNoStoredCache
		}
		logging.Error("Failed to retrieve token cache from backup keyring", "error", bErr.Error())
		return nil, fmt.Errorf("failed to get token cache from backup keyring: %w", bErr)
	}

	// Self-heal: restore primary from backup (best-effort)
	if setErr := keyring.Set(keyringServiceName(), cacheKey, backup); setErr != nil {
		logging.Warn("Failed to restore primary keyring entry from backup", "error", setErr.Error())
	} else {
		logging.Info("Restored primary keyring entry from backup")
	}

	if strings.TrimSpace(backup) == "" {
		return nil, ErrNoStoredCache
	}
	return []byte(backup), nil
}

// clearStoredCache removes the persisted cache entries. Used on sign-out.
func clearStoredCache() error {
	var firstErr error
	for _, key := range []string{cacheKey, backupCacheKey} {
		if err := keyring.Delete(keyringServiceName(), key); err != nil {
			if err == keyring.ErrNotFound {
				continue
			}
			logging.Warn("Failed to delete token cache from keyring", "key", key, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("failed to clear one or more keyring entries: %w", firstErr)
	}
	return nil
}
