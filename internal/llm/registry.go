package llm

import (
	"fmt"
	"sync"

	"github.com/soochol/skillsmith/internal/config"
	"github.com/soochol/skillsmith/internal/crypto"
)

// Factory builds a Client for a given provider name and its configuration.
// Providers register a Factory from init(), the same capability-registration
// pattern the teacher uses for its model.RegisterProvider.
type Factory func(name string, cfg config.ProviderConfig) Client

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterProvider registers factory under typeName (e.g. "openai", "gemini",
// "anthropic"). Called from each provider file's init().
func RegisterProvider(typeName string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[typeName] = factory
}

// Build looks up the registered factory for cfg.Type and constructs a
// Client. Any provider with a URL but an unrecognized Type falls back to
// the OpenAI-compatible adapter, matching the teacher's BuildLLM fallback.
func Build(name string, cfg config.ProviderConfig) (Client, error) {
	mu.RLock()
	factory, ok := factories[cfg.Type]
	mu.RUnlock()
	if ok {
		return factory(name, cfg), nil
	}
	if cfg.URL != "" {
		return NewOpenAIClient(name, cfg.URL, cfg.APIKey), nil
	}
	return nil, fmt.Errorf("llm: unknown provider type %q for %q (no URL fallback available)", cfg.Type, name)
}

// Registry holds constructed Clients keyed by provider name; Get looks a
// client up by that name.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	enc     *crypto.Encryptor
}

// NewRegistry returns an empty Registry. enc decrypts each
// config.ProviderConfig.APIKey before the client is built — config.Load
// may carry API keys encrypted at rest (config.ProviderConfig's doc
// comment), the same "credentials encrypted at rest, decrypted on use"
// split the teacher applies to stored connection credentials
// (services.NewConnectionService's encryptor argument). Pass an encryptor
// constructed with a nil key (crypto.NewEncryptor(nil)) to treat every
// APIKey as already plaintext.
func NewRegistry(enc *crypto.Encryptor) *Registry {
	return &Registry{clients: make(map[string]Client), enc: enc}
}

// Register adds a constructed Client under its own Name().
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Name()] = c
}

// Get resolves a client by provider name.
func (r *Registry) Get(name string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// LoadAll builds and registers a Client for every entry in providers,
// decrypting each APIKey through the Registry's encryptor first.
func (r *Registry) LoadAll(providers map[string]config.ProviderConfig) error {
	for name, cfg := range providers {
		if r.enc != nil && cfg.APIKey != "" {
			key, err := r.enc.Decrypt(cfg.APIKey)
			if err != nil {
				return fmt.Errorf("llm: decrypt api key for provider %q: %w", name, err)
			}
			cfg.APIKey = key
		}
		c, err := Build(name, cfg)
		if err != nil {
			return err
		}
		r.Register(c)
	}
	return nil
}
