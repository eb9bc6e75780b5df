package models

import (
	"time"

	"concert-ticketing/internal/status"
)

type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
	RefundDenied   RefundStatus = "denied"
)

// RefundRequest links an order to an admin decision. It is created by a
// buyer and resolved exactly once; approved and denied are both
// terminal. OrderID and RefundTxnID are lookup-only references.
type RefundRequest struct {
	ID          string       `json:"id"`
	OrderID     string       `json:"order_id"`
	Reason      string       `json:"reason"`
	CreatedAt   time.Time    `json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
	Status      RefundStatus `json:"status"`
	ProcessedBy string       `json:"processed_by,omitempty"`
	RefundTxnID string       `json:"refund_txn_id,omitempty"`
}

func NewRefundRequest(id, orderID, reason string) *RefundRequest {
	return &RefundRequest{
		ID:        id,
		OrderID:   orderID,
		Reason:    reason,
		CreatedAt: time.Now(),
		Status:    RefundPending,
	}
}

func (r *RefundRequest) Approve(adminID string) error {
	if r.Status != RefundPending {
		return status.ErrInvalidTransition
	}
	now := time.Now()
	r.Status = RefundApproved
	r.ProcessedAt = &now
	r.ProcessedBy = adminID
	return nil
}

// Deny records the admin's explanation in Reason, replacing the buyer's
// original text. That mirrors the long-standing field reuse in the
// stored format; callers wanting the original reason must read it
// before denying.
func (r *RefundRequest) Deny(adminID, reason string) error {
	if r.Status != RefundPending {
		return status.ErrInvalidTransition
	}
	now := time.Now()
	r.Status = RefundDenied
	r.ProcessedAt = &now
	r.ProcessedBy = adminID
	r.Reason = reason
	return nil
}
