package models

import (
	"time"
)

type PaymentType string

const (
	PaymentCharge PaymentType = "charge"
	PaymentRefund PaymentType = "refund"
)

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentTransaction is one ledger entry: a charge or refund attempt
// against an order. Entries are immutable after construction and carry
// a terminal status; the gateway is synchronous, so no pending state
// exists. OrderID is a lookup-only back-reference resolved through the
// coordinator's registry.
type PaymentTransaction struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"order_id"`
	GatewayRef string        `json:"gateway_ref"`
	Type       PaymentType   `json:"type"`
	Amount     Money         `json:"amount"`
	Timestamp  time.Time     `json:"timestamp"`
	Status     PaymentStatus `json:"status"`
}

func NewPaymentTransaction(id, orderID, gatewayRef string, typ PaymentType, amount Money, st PaymentStatus) *PaymentTransaction {
	return &PaymentTransaction{
		ID:         id,
		OrderID:    orderID,
		GatewayRef: gatewayRef,
		Type:       typ,
		Amount:     amount,
		Timestamp:  time.Now(),
		Status:     st,
	}
}
