package models

import (
	"log"
	"time"

	"concert-ticketing/internal/status"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCanceled  OrderStatus = "canceled"
	OrderRefunded  OrderStatus = "refunded"
)

// Order groups the tickets of one purchase and tracks settlement status.
// Allowed transitions: pending -> confirmed, pending -> canceled,
// confirmed -> refunded. Everything else is rejected, not silently
// accepted. The coordinator serializes access; Order itself is not
// safe for concurrent use.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	EventID     string      `json:"event_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Status      OrderStatus `json:"status"`
	Tickets     []Ticket    `json:"tickets"`
	TotalAmount Money       `json:"total_amount"`
	PaymentID   string      `json:"payment_id,omitempty"`
}

func NewOrder(id, userID, eventID, currency string) *Order {
	return &Order{
		ID:          id,
		UserID:      userID,
		EventID:     eventID,
		CreatedAt:   time.Now(),
		Status:      OrderPending,
		TotalAmount: ZeroMoney(currency),
	}
}

// AddTicket appends a ticket and recomputes the total. Only pending
// orders accept tickets.
func (o *Order) AddTicket(t Ticket) error {
	if o.Status != OrderPending {
		return status.ErrInvalidTransition
	}
	if t.Price.Currency != o.TotalAmount.Currency {
		return status.ErrCurrencyMismatch
	}
	o.Tickets = append(o.Tickets, t)
	o.recalcTotal()
	return nil
}

// recalcTotal derives TotalAmount from the ticket prices. The stored
// total is never authoritative on its own.
func (o *Order) recalcTotal() {
	sum := ZeroMoney(o.TotalAmount.Currency)
	for _, t := range o.Tickets {
		sum = sum.Add(t.Price)
	}
	o.TotalAmount = sum
}

// AttachPayment moves a pending order to confirmed when handed a
// successful charge. A second charge against an already confirmed order
// is ignored and logged so a retried gateway callback cannot double
// count.
func (o *Order) AttachPayment(txn *PaymentTransaction) error {
	if txn == nil || txn.Type != PaymentCharge || txn.Status != PaymentSuccess {
		return status.ErrInvalidTransition
	}
	if o.Status == OrderConfirmed {
		log.Printf("order %s: ignoring duplicate charge attachment %s", o.ID, txn.ID)
		return nil
	}
	if o.Status != OrderPending {
		return status.ErrInvalidTransition
	}
	o.Status = OrderConfirmed
	o.PaymentID = txn.ID
	return nil
}

// MarkRefunded is legal only from confirmed.
func (o *Order) MarkRefunded() error {
	if o.Status != OrderConfirmed {
		return status.ErrInvalidTransition
	}
	o.Status = OrderRefunded
	return nil
}

// Cancel voids a pending order. Confirmed and refunded orders are part
// of the audit trail and cannot be canceled.
func (o *Order) Cancel() error {
	if o.Status != OrderPending {
		return status.ErrInvalidTransition
	}
	o.Status = OrderCanceled
	return nil
}
