package gateway

import (
	"context"
	"fmt"

	"concert-ticketing/internal/services/gateway/mockpay"
)

// MockPayAdapter wraps the mockpay client to conform to Interface
type MockPayAdapter struct {
	client *mockpay.Client
}

func NewMockPayAdapter(ctx context.Context, config *mockpay.Config) (*MockPayAdapter, error) {
	client, err := mockpay.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create mockpay client: %w", err)
	}

	return &MockPayAdapter{client: client}, nil
}

func (m *MockPayAdapter) GetProvider() Provider {
	return ProviderMockPay
}

func (m *MockPayAdapter) Charge(ctx context.Context, req *Request) (*Result, error) {
	txn, err := m.client.Authorize(ctx, req.OrderID, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	return resultFrom(txn), nil
}

func (m *MockPayAdapter) Refund(ctx context.Context, req *Request) (*Result, error) {
	txn, err := m.client.Return(ctx, req.OrderID, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	return resultFrom(txn), nil
}

func (m *MockPayAdapter) Close(ctx context.Context) error {
	// mockpay holds no connections
	return nil
}

// Client exposes the underlying simulator for the development
// simulate-payment endpoint.
func (m *MockPayAdapter) Client() *mockpay.Client {
	return m.client
}

func resultFrom(txn *mockpay.Transaction) *Result {
	res := &Result{GatewayRef: txn.Ref, Status: StatusSuccess}
	if !txn.Accepted {
		res.Status = StatusFailed
		res.Message = "declined"
	}
	return res
}
