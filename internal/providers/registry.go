package providers

import (
	"fmt"
	"os"
)

// ProviderSpec describes one configurable provider slot (spec.md §3
// GLOSSARY: Provider). A provider's client is constructed iff EnvKey is
// present in the environment.
type ProviderSpec struct {
	Name            string
	EnvKey          string
	BaseURL         string
	Shape           Shape
	DefaultModel    string
	Required        bool
	DefaultProfiles map[string]string // role -> model, used by ProfileManager first-run selection
}

// DefaultProviderSpecs is the built-in provider catalogue, grounded on
// the teacher's cmd/gateway_providers.go registration list and narrowed
// to the two wire shapes spec.md §6 defines.
func DefaultProviderSpecs() []ProviderSpec {
	return []ProviderSpec{
		{
			Name: "anthropic", EnvKey: "ANTHROPIC_API_KEY", Shape: ShapeAnthropic,
			DefaultModel: "claude-sonnet-4-5-20250929",
			DefaultProfiles: map[string]string{
				"chat_model": "claude-sonnet-4-5-20250929",
				"advanced":   "claude-opus-4-1-20250805",
				"intermediate": "claude-sonnet-4-5-20250929",
				"quick":      "claude-3-5-haiku-20241022",
			},
		},
		{
			Name: "openai", EnvKey: "OPENAI_API_KEY", BaseURL: "https://api.openai.com/v1", Shape: ShapeOpenAI,
			DefaultModel: "gpt-4o",
			DefaultProfiles: map[string]string{
				"chat_model": "gpt-4o", "advanced": "gpt-4o", "intermediate": "gpt-4o-mini", "quick": "gpt-4o-mini",
			},
		},
		{
			Name: "openrouter", EnvKey: "OPEN_ROUTER_KEY", BaseURL: "https://openrouter.ai/api/v1", Shape: ShapeOpenAI,
			DefaultModel: "anthropic/claude-sonnet-4-5-20250929",
			DefaultProfiles: map[string]string{
				"chat_model": "anthropic/claude-sonnet-4-5-20250929", "advanced": "anthropic/claude-opus-4-1-20250805",
				"intermediate": "anthropic/claude-sonnet-4-5-20250929", "quick": "anthropic/claude-3-5-haiku-20241022",
			},
		},
		{
			Name: "deepseek", EnvKey: "DEEPSEEK_API_KEY", BaseURL: "https://api.deepseek.com/v1", Shape: ShapeOpenAI,
			DefaultModel: "deepseek-chat",
			DefaultProfiles: map[string]string{"chat_model": "deepseek-chat", "advanced": "deepseek-reasoner", "intermediate": "deepseek-chat", "quick": "deepseek-chat"},
		},
		{
			Name: "venice", EnvKey: "VENICE_API_KEY", BaseURL: "https://api.venice.ai/api/v1", Shape: ShapeOpenAI,
			DefaultModel: "venice-uncensored",
			DefaultProfiles: map[string]string{"chat_model": "venice-uncensored", "advanced": "venice-uncensored", "intermediate": "venice-uncensored", "quick": "venice-uncensored"},
		},
	}
}

// Registry is C5: enumerates active providers, holds their constructed
// transport clients, and resolves a model name to the provider that
// serves it.
type Registry struct {
	providers map[string]Streamer
	specs     map[string]ProviderSpec
	order     []string
}

// NewRegistry constructs clients for every spec whose env key is
// present. A Required provider with no key is a fatal startup error
// (ProviderConfigMissing, §7); an optional one is simply excluded.
func NewRegistry(specs []ProviderSpec) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Streamer),
		specs:     make(map[string]ProviderSpec),
	}

	for _, spec := range specs {
		key := os.Getenv(spec.EnvKey)
		if key == "" {
			if spec.Required {
				return nil, fmt.Errorf("provider config missing: required env key %q for provider %q not set", spec.EnvKey, spec.Name)
			}
			continue
		}

		var client Streamer
		switch spec.Shape {
		case ShapeAnthropic:
			client = NewAnthropicProvider(key, spec.BaseURL, spec.DefaultModel)
		case ShapeOpenAI:
			client = NewOpenAIProvider(spec.Name, key, spec.BaseURL, spec.DefaultModel)
		default:
			return nil, fmt.Errorf("provider %q: unknown shape %q", spec.Name, spec.Shape)
		}

		r.providers[spec.Name] = client
		r.specs[spec.Name] = spec
		r.order = append(r.order, spec.Name)
	}

	return r, nil
}

// Active reports whether a provider has a constructed client.
func (r *Registry) Active(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Get returns the streamer for a provider name.
func (r *Registry) Get(name string) (Streamer, bool) {
	s, ok := r.providers[name]
	return s, ok
}

// Spec returns the catalogue entry for a provider name.
func (r *Registry) Spec(name string) (ProviderSpec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// ActiveNames returns active provider names in registration order —
// the order ProfileManager walks its preference list against (§3).
func (r *Registry) ActiveNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ResolveModel finds the active provider serving a given model name.
// JrDev models are namespaced "provider:model" (e.g.
// "anthropic:claude-sonnet-4-5-20250929"); a bare model name is looked
// up against each active provider's default model.
func (r *Registry) ResolveModel(model string) (Streamer, string, bool) {
	for i := 0; i < len(model); i++ {
		if model[i] == ':' {
			providerName, modelName := model[:i], model[i+1:]
			s, ok := r.providers[providerName]
			return s, modelName, ok
		}
	}
	for _, name := range r.order {
		if r.specs[name].DefaultModel == model {
			return r.providers[name], model, true
		}
	}
	return nil, "", false
}
