package gateway

import (
	"context"
	"fmt"

	"concert-ticketing/internal/services/gateway/mockpay"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct{}

func NewFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateGateway creates a gateway instance based on provider type and configuration
func (f *DefaultFactory) CreateGateway(ctx context.Context, provider Provider, config interface{}) (Interface, error) {
	switch provider {
	case ProviderMockPay:
		mpConfig, ok := config.(*mockpay.Config)
		if !ok {
			return nil, fmt.Errorf("invalid mockpay config type, expected *mockpay.Config")
		}
		return NewMockPayAdapter(ctx, mpConfig)

	case ProviderBankQR:
		return nil, fmt.Errorf("bankqr gateway provider not implemented yet")

	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", provider)
	}
}

// GetSupportedProviders returns list of supported gateway providers
func (f *DefaultFactory) GetSupportedProviders() []Provider {
	return []Provider{
		ProviderMockPay,
	}
}

// Registry manages multiple gateway instances
type Registry struct {
	gateways map[Provider]Interface
	factory  Factory
	primary  Provider
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		gateways: make(map[Provider]Interface),
		factory:  factory,
	}
}

// RegisterGateway creates and registers a gateway instance
func (r *Registry) RegisterGateway(ctx context.Context, provider Provider, config interface{}) error {
	gw, err := r.factory.CreateGateway(ctx, provider, config)
	if err != nil {
		return fmt.Errorf("failed to create %s gateway: %w", provider, err)
	}

	r.gateways[provider] = gw

	// First registered gateway becomes primary
	if r.primary == "" {
		r.primary = provider
	}

	return nil
}

// GetGateway returns a gateway instance by provider
func (r *Registry) GetGateway(provider Provider) (Interface, error) {
	gw, exists := r.gateways[provider]
	if !exists {
		return nil, fmt.Errorf("gateway provider %s not registered", provider)
	}
	return gw, nil
}

// GetPrimaryGateway returns the primary gateway instance
func (r *Registry) GetPrimaryGateway() (Interface, error) {
	if r.primary == "" {
		return nil, fmt.Errorf("no primary gateway configured")
	}
	return r.GetGateway(r.primary)
}

// SetPrimaryGateway sets the primary gateway provider
func (r *Registry) SetPrimaryGateway(provider Provider) error {
	if _, exists := r.gateways[provider]; !exists {
		return fmt.Errorf("gateway provider %s not registered", provider)
	}
	r.primary = provider
	return nil
}

// GetAvailableGateways returns list of registered gateway providers
func (r *Registry) GetAvailableGateways() []Provider {
	providers := make([]Provider, 0, len(r.gateways))
	for provider := range r.gateways {
		providers = append(providers, provider)
	}
	return providers
}

// Close closes every registered gateway
func (r *Registry) Close(ctx context.Context) error {
	for provider, gw := range r.gateways {
		if err := gw.Close(ctx); err != nil {
			return fmt.Errorf("failed to close %s gateway: %w", provider, err)
		}
	}
	return nil
}
