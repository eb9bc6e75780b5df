package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider identifies a payment gateway implementation
type Provider string

const (
	ProviderMockPay Provider = "mockpay"
	ProviderBankQR  Provider = "bankqr"
)

// Status is the terminal outcome of a gateway call. The gateway contract
// is synchronous: a call either succeeds or fails, there is no pending
// settlement state on this side.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Request carries one charge or refund instruction
type Request struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	OrderID         string          `json:"order_id"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description,omitempty"`
}

// Result is the gateway's answer to a Request
type Result struct {
	GatewayRef string `json:"gateway_ref"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
}

// Interface defines the common surface for all payment gateway providers
type Interface interface {
	// GetProvider returns the gateway provider type
	GetProvider() Provider

	// Charge attempts to collect the requested amount
	Charge(ctx context.Context, req *Request) (*Result, error)

	// Refund returns a previously charged amount
	Refund(ctx context.Context, req *Request) (*Result, error)

	// Close gracefully closes any connections
	Close(ctx context.Context) error
}

// Factory creates gateway instances based on provider type
type Factory interface {
	CreateGateway(ctx context.Context, provider Provider, config interface{}) (Interface, error)
	GetSupportedProviders() []Provider
}
