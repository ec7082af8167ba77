// Package providers implements the embedding and completion service
// clients consumed by the pipeline. Providers register themselves by name
// so new backends can be added without touching the callers.
package providers

import (
	"context"
	"fmt"
	"sync"
)

// Embedder converts an ordered batch of texts into vectors, one per input,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Completer generates a single synchronous chat completion for a prompt
// sent as the sole user message. Temperature is passed through to the
// provider unvalidated.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// Provider is a full embedding/completion backend. ListModels is used as a
// lightweight health probe.
type Provider interface {
	Embedder
	Completer
	ListModels(ctx context.Context) ([]string, error)
	Close() error
}

// Factory creates a configured Provider instance.
type Factory func(config map[string]interface{}) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a provider factory under the given name. Registering the
// same name twice overwrites the previous factory.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Get creates a provider by name using the supplied configuration.
func Get(name string, config map[string]interface{}) (Provider, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return factory(config)
}

// List returns the names of all registered providers.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
