package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concert-ticketing/internal/status"
)

func confirmedOrder(t *testing.T) *Order {
	t.Helper()

	order := NewOrder("order-1", "user-1", "event-1", "USD")
	require.NoError(t, order.AddTicket(NewTicket("ticket-1", "order-1", "event-1", NewMoney(25, "USD"), "A1")))
	require.NoError(t, order.AddTicket(NewTicket("ticket-2", "order-1", "event-1", NewMoney(25, "USD"), "A2")))

	charge := NewPaymentTransaction("pay-1", "order-1", "ref-1", PaymentCharge, order.TotalAmount, PaymentSuccess)
	require.NoError(t, order.AttachPayment(charge))
	return order
}

func TestOrder_AddTicketRecomputesTotal(t *testing.T) {
	order := NewOrder("order-1", "user-1", "event-1", "USD")

	require.NoError(t, order.AddTicket(NewTicket("ticket-1", "order-1", "event-1", NewMoney(19.50, "USD"), "A1")))
	require.NoError(t, order.AddTicket(NewTicket("ticket-2", "order-1", "event-1", NewMoney(19.50, "USD"), "A2")))

	assert.Len(t, order.Tickets, 2)
	assert.True(t, order.TotalAmount.Equal(NewMoney(39, "USD")), "total should be the sum of ticket prices, got %s", order.TotalAmount)
}

func TestOrder_AddTicketRejectsCurrencyMismatch(t *testing.T) {
	order := NewOrder("order-1", "user-1", "event-1", "USD")

	err := order.AddTicket(NewTicket("ticket-1", "order-1", "event-1", NewMoney(10, "EUR"), "A1"))
	assert.ErrorIs(t, err, status.ErrCurrencyMismatch)
	assert.Empty(t, order.Tickets)
}

func TestOrder_AddTicketOnlyWhilePending(t *testing.T) {
	order := confirmedOrder(t)

	err := order.AddTicket(NewTicket("ticket-3", "order-1", "event-1", NewMoney(25, "USD"), "A3"))
	assert.ErrorIs(t, err, status.ErrInvalidTransition)
	assert.Len(t, order.Tickets, 2)
}

func TestOrder_AttachPaymentConfirms(t *testing.T) {
	order := confirmedOrder(t)

	assert.Equal(t, OrderConfirmed, order.Status)
	assert.Equal(t, "pay-1", order.PaymentID)
}

func TestOrder_AttachPaymentRejectsFailedCharge(t *testing.T) {
	order := NewOrder("order-1", "user-1", "event-1", "USD")

	failed := NewPaymentTransaction("pay-1", "order-1", "ref-1", PaymentCharge, NewMoney(50, "USD"), PaymentFailed)
	err := order.AttachPayment(failed)

	assert.ErrorIs(t, err, status.ErrInvalidTransition)
	assert.Equal(t, OrderPending, order.Status)
}

func TestOrder_AttachPaymentRejectsRefundType(t *testing.T) {
	order := NewOrder("order-1", "user-1", "event-1", "USD")

	refund := NewPaymentTransaction("pay-1", "order-1", "ref-1", PaymentRefund, NewMoney(50, "USD"), PaymentSuccess)
	err := order.AttachPayment(refund)

	assert.ErrorIs(t, err, status.ErrInvalidTransition)
	assert.Equal(t, OrderPending, order.Status)
}

func TestOrder_DuplicateChargeAttachmentIgnored(t *testing.T) {
	order := confirmedOrder(t)

	second := NewPaymentTransaction("pay-2", "order-1", "ref-2", PaymentCharge, order.TotalAmount, PaymentSuccess)
	err := order.AttachPayment(second)

	assert.NoError(t, err)
	assert.Equal(t, OrderConfirmed, order.Status)
	assert.Equal(t, "pay-1", order.PaymentID, "first charge stays attached")
}

func TestOrder_TransitionClosure(t *testing.T) {
	t.Run("cancel only from pending", func(t *testing.T) {
		order := NewOrder("order-1", "user-1", "event-1", "USD")
		require.NoError(t, order.Cancel())
		assert.Equal(t, OrderCanceled, order.Status)

		confirmed := confirmedOrder(t)
		assert.ErrorIs(t, confirmed.Cancel(), status.ErrInvalidTransition)
	})

	t.Run("refund only from confirmed", func(t *testing.T) {
		pending := NewOrder("order-1", "user-1", "event-1", "USD")
		assert.ErrorIs(t, pending.MarkRefunded(), status.ErrInvalidTransition)

		confirmed := confirmedOrder(t)
		require.NoError(t, confirmed.MarkRefunded())
		assert.Equal(t, OrderRefunded, confirmed.Status)
	})

	t.Run("canceled and refunded are terminal", func(t *testing.T) {
		canceled := NewOrder("order-1", "user-1", "event-1", "USD")
		require.NoError(t, canceled.Cancel())
		assert.ErrorIs(t, canceled.Cancel(), status.ErrInvalidTransition)
		assert.ErrorIs(t, canceled.MarkRefunded(), status.ErrInvalidTransition)

		refunded := confirmedOrder(t)
		require.NoError(t, refunded.MarkRefunded())
		assert.ErrorIs(t, refunded.MarkRefunded(), status.ErrInvalidTransition)
		assert.ErrorIs(t, refunded.Cancel(), status.ErrInvalidTransition)

		charge := NewPaymentTransaction("pay-9", "order-1", "ref-9", PaymentCharge, refunded.TotalAmount, PaymentSuccess)
		assert.ErrorIs(t, refunded.AttachPayment(charge), status.ErrInvalidTransition)
	})
}

func TestSeat_StateMachine(t *testing.T) {
	seat := Seat{ID: "seat-1", EventID: "event-1", Row: "A", Number: 1, Status: SeatAvailable}

	assert.True(t, seat.MarkHeld())
	assert.Equal(t, SeatHeld, seat.Status)

	// held seats cannot be held again or admin-held
	assert.False(t, seat.MarkHeld())
	assert.False(t, seat.MarkAdminHeld())

	assert.True(t, seat.MarkSold())
	assert.Equal(t, SeatSold, seat.Status)

	// sold is terminal for the booking path
	assert.False(t, seat.MarkHeld())
	assert.False(t, seat.MarkReleased())
	assert.False(t, seat.MarkAdminHeld())
}

func TestSeat_ReleaseReturnsHeldToAvailable(t *testing.T) {
	seat := Seat{ID: "seat-1", Status: SeatAvailable}

	assert.True(t, seat.MarkHeld())
	assert.True(t, seat.MarkReleased())
	assert.Equal(t, SeatAvailable, seat.Status)
}

func TestSeat_AdminHeldExcludedFromBooking(t *testing.T) {
	seat := Seat{ID: "seat-1", Status: SeatAvailable}

	assert.True(t, seat.MarkAdminHeld())
	assert.False(t, seat.MarkHeld())
	assert.False(t, seat.MarkSold())
	assert.False(t, seat.MarkReleased())
	assert.Equal(t, SeatAdminHeld, seat.Status)
}

func TestRefundRequest_ApproveIsTerminal(t *testing.T) {
	req := NewRefundRequest("refund-1", "order-1", "changed my mind")

	require.NoError(t, req.Approve("admin-1"))
	assert.Equal(t, RefundApproved, req.Status)
	assert.Equal(t, "admin-1", req.ProcessedBy)
	require.NotNil(t, req.ProcessedAt)

	assert.ErrorIs(t, req.Approve("admin-2"), status.ErrInvalidTransition)
	assert.ErrorIs(t, req.Deny("admin-2", "too late"), status.ErrInvalidTransition)
}

func TestRefundRequest_DenyOverwritesReason(t *testing.T) {
	req := NewRefundRequest("refund-1", "order-1", "changed my mind")

	require.NoError(t, req.Deny("admin-1", "outside refund window"))
	assert.Equal(t, RefundDenied, req.Status)
	assert.Equal(t, "outside refund window", req.Reason)
	assert.ErrorIs(t, req.Approve("admin-1"), status.ErrInvalidTransition)
}

func TestMoney_Arithmetic(t *testing.T) {
	price := NewMoney(19.99, "USD")

	total := price.MulInt(3)
	assert.True(t, total.Equal(NewMoney(59.97, "USD")))

	sum := ZeroMoney("USD").Add(price).Add(price)
	assert.True(t, sum.Equal(NewMoney(39.98, "USD")))
	assert.False(t, sum.Equal(NewMoney(39.98, "EUR")))
	assert.Equal(t, "59.97 USD", total.String())
}

func TestEvent_Available(t *testing.T) {
	event := Event{ID: "event-1", Capacity: 100, TicketsSold: 37, Status: EventPublished}

	assert.Equal(t, 63, event.Available())
	assert.True(t, event.OnSale())

	event.Status = EventCanceled
	assert.False(t, event.OnSale())
}
