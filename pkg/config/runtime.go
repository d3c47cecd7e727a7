package config

import (
	"sync"
	"time"
)

// RuntimeConfig holds resolved secrets and derived settings shared across
// packages after startup validation.
type RuntimeConfig struct {
	// TokenSecrets are the accepted signing secrets. The first entry signs
	// new tokens; all entries are tried during verification.
	TokenSecrets []string
	TokenTTL     time.Duration
}

var (
	runtimeMu sync.RWMutex
	runtime   *RuntimeConfig
)

// SetRuntime installs the process runtime configuration.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtime = rc
}

// GetTokenSecrets returns a copy of the configured signing secrets.
func GetTokenSecrets() []string {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtime == nil {
		return nil
	}
	out := make([]string, len(runtime.TokenSecrets))
	copy(out, runtime.TokenSecrets)
	return out
}

// GetTokenTTL returns the configured token lifetime, or 24h when unset.
func GetTokenTTL() time.Duration {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtime == nil || runtime.TokenTTL == 0 {
		return 24 * time.Hour
	}
	return runtime.TokenTTL
}
