package adapters

import (
	"strings"

	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/payment/domain"
)

type Registry struct {
	factories map[string]domain.AdapterFactory
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	registry := &Registry{factories: map[string]domain.AdapterFactory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(factory.Provider()))
		if provider == "" {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	_, ok := r.factories[provider]
	return ok
}

func (r *Registry) NewAdapter(provider string, cfg domain.AdapterConfig) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	factory, ok := r.factories[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return factory.NewAdapter(cfg)
}

// NewGateway builds the configured provider's adapter.
func NewGateway(registry *Registry, cfg config.Config) (domain.Gateway, error) {
	return registry.NewAdapter(cfg.Gateway.Provider, domain.AdapterConfig{
		BaseURL:    cfg.Gateway.BaseURL,
		SecretKey:  cfg.Gateway.SecretKey,
		Timeout:    cfg.Gateway.Timeout,
		MaxRetries: cfg.Gateway.MaxRetries,
		MaxElapsed: cfg.Gateway.MaxElapsed,
	})
}
