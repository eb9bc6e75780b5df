package mockpay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Config controls the simulated gateway behavior.
type Config struct {
	MerchantID string
	// DeclineAbove declines any charge strictly greater than the limit.
	// Zero means no limit.
	DeclineAbove decimal.Decimal
	// Latency is an artificial per-call delay, used in load testing.
	Latency time.Duration
	// FailNext makes the next N calls fail regardless of amount.
	FailNext int
}

// Client simulates a synchronous acquiring bank. Every call returns a
// terminal accepted/declined answer; there are no callbacks.
type Client struct {
	mu     sync.Mutex
	config *Config
	seq    int64
}

type Transaction struct {
	Ref       string
	OrderID   string
	Kind      string // "charge" or "refund"
	Amount    decimal.Decimal
	Currency  string
	Accepted  bool
	CreatedAt time.Time
}

func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("mockpay config is required")
	}
	return &Client{config: config}, nil
}

// Authorize processes a charge request and returns the transaction record.
func (c *Client) Authorize(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*Transaction, error) {
	return c.process(ctx, "charge", orderID, amount, currency)
}

// Return processes a refund request.
func (c *Client) Return(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*Transaction, error) {
	return c.process(ctx, "refund", orderID, amount, currency)
}

func (c *Client) process(ctx context.Context, kind, orderID string, amount decimal.Decimal, currency string) (*Transaction, error) {
	if c.config.Latency > 0 {
		select {
		case <-time.After(c.config.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	forcedFail := false
	if c.config.FailNext > 0 {
		c.config.FailNext--
		forcedFail = true
	}
	c.mu.Unlock()

	accepted := !forcedFail
	if accepted && !c.config.DeclineAbove.IsZero() && amount.GreaterThan(c.config.DeclineAbove) {
		accepted = false
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		accepted = false
	}

	txn := &Transaction{
		Ref:       fmt.Sprintf("MP-%s-%d-%d", c.config.MerchantID, time.Now().Unix(), seq),
		OrderID:   orderID,
		Kind:      kind,
		Amount:    amount,
		Currency:  currency,
		Accepted:  accepted,
		CreatedAt: time.Now(),
	}

	if !accepted {
		log.Printf("mockpay: declined %s of %s %s for order %s", kind, amount, currency, orderID)
	}

	return txn, nil
}

// SetFailNext forces the next n calls to be declined. Used by the
// development simulate-payment endpoint.
func (c *Client) SetFailNext(n int) {
	c.mu.Lock()
	c.config.FailNext = n
	c.mu.Unlock()
}
