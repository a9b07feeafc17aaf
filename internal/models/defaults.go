package models

// DefaultModels is the hardcoded catalogue startup reconciliation adds
// from, grounded on the provider default-model choices in
// internal/providers.DefaultProviderSpecs. Cost figures are illustrative
// per-10M-token units (§3 invariant), not live vendor pricing.
func DefaultModels() []ModelEntry {
	return []ModelEntry{
		{Name: "claude-opus-4-1-20250805", Provider: "anthropic", IsThink: true, InputCost: 150, OutputCost: 750, ContextTokens: 200_000},
		{Name: "claude-sonnet-4-5-20250929", Provider: "anthropic", IsThink: false, InputCost: 30, OutputCost: 150, ContextTokens: 200_000},
		{Name: "claude-3-5-haiku-20241022", Provider: "anthropic", IsThink: false, InputCost: 8, OutputCost: 40, ContextTokens: 200_000},
		{Name: "gpt-4o", Provider: "openai", IsThink: false, InputCost: 25, OutputCost: 100, ContextTokens: 128_000},
		{Name: "gpt-4o-mini", Provider: "openai", IsThink: false, InputCost: 2, OutputCost: 6, ContextTokens: 128_000},
		{Name: "deepseek-chat", Provider: "deepseek", IsThink: false, InputCost: 3, OutputCost: 11, ContextTokens: 64_000},
		{Name: "deepseek-reasoner", Provider: "deepseek", IsThink: true, InputCost: 6, OutputCost: 22, ContextTokens: 64_000},
		{Name: "venice-uncensored", Provider: "venice", IsThink: false, InputCost: 2, OutputCost: 8, ContextTokens: 32_000},
	}
}
