package status

import "errors"

var (
	ErrSoldOut            = errors.New("inventory: sold out")
	ErrSeatUnavailable    = errors.New("inventory: seat unavailable")
	ErrHoldNotFound       = errors.New("inventory: hold not found")
	ErrInvalidTransition  = errors.New("order: invalid transition")
	ErrCurrencyMismatch   = errors.New("order: currency mismatch")
	ErrAlreadyPending     = errors.New("refund: request already pending")
	ErrOrderNotRefundable = errors.New("refund: order not refundable")
	ErrPaymentFailed      = errors.New("payment: payment failed")
	ErrOrderNotFound      = errors.New("order: order not found")
	ErrEventNotFound      = errors.New("event: event not found")
	ErrEventNotOnSale     = errors.New("event: event not on sale")
	ErrRefundNotFound     = errors.New("refund: request not found")
)
