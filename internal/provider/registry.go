package provider

import (
	"sort"
	"sync"

	"github.com/tallyhq/tally/internal/domain"

	"go.uber.org/zap"
)

// Factory builds a provider instance for one relationship of a run.
type Factory func(execCtx domain.ExecutionContext, logger *zap.Logger) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a provider available under the identifier used in the
// relationships config. Implementations call this from init(), the same way
// database/sql drivers register themselves; main blank-imports the provider
// packages it ships with. Registering the same name twice panics: that is a
// programming error, not a runtime condition.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic("provider: Register called twice for " + name)
	}
	registry[name] = factory
}

// New instantiates the provider registered under name. The registry is a
// closed map: a config referencing an unregistered provider gets a typed
// error rather than a reflective lookup failure.
func New(name string, execCtx domain.ExecutionContext, logger *zap.Logger) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, &domain.ErrUnknownProvider{Provider: name}
	}
	return factory(execCtx, logger), nil
}

// IsRegistered reports whether a provider exists under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, ok := registry[name]
	return ok
}

// Registered returns the sorted names of all registered providers, for
// config validation output.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
