package llm

import (
	"fmt"
	"sort"

	"Signalist/internal/ports"
)

// Provider names accepted by ai.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Registry keeps a mapping from provider names to completers.
type Registry struct {
	completers map[string]ports.Completer
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{completers: map[string]ports.Completer{}}
}

// Register adds or replaces a completer.
func (r *Registry) Register(c ports.Completer) {
	if r.completers == nil {
		r.completers = map[string]ports.Completer{}
	}
	r.completers[c.Name()] = c
}

// Resolve returns the completer registered under name.
func (r *Registry) Resolve(name string) (ports.Completer, error) {
	if c, ok := r.completers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("completer %s is not registered", name)
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.completers))
	for name := range r.completers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
