package dispatch

import "github.com/vnmchuo/ai-core/internal/provider"

// Resolver picks the adapter that serves a model.
type Resolver interface {
	Resolve(model string) provider.Provider
}

// PrefixResolver tests adapters in registration order and falls back to the
// first one when nothing matches.
type PrefixResolver struct {
	providers []provider.Provider
}

func NewPrefixResolver(providers ...provider.Provider) *PrefixResolver {
	if len(providers) == 0 {
		panic("dispatch: PrefixResolver needs at least one provider")
	}
	return &PrefixResolver{providers: providers}
}

func (r *PrefixResolver) Resolve(model string) provider.Provider {
	for _, p := range r.providers {
		if p.Detect(model) {
			return p
		}
	}
	return r.providers[0]
}

// FixedResolver serves every model from one backend.
type FixedResolver struct {
	provider provider.Provider
}

func NewFixedResolver(p provider.Provider) *FixedResolver {
	return &FixedResolver{provider: p}
}

func (r *FixedResolver) Resolve(string) provider.Provider {
	return r.provider
}
