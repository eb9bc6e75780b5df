package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concert-ticketing/internal/services/gateway"
	"concert-ticketing/internal/services/gateway/mockpay"
	"concert-ticketing/internal/status"
	"concert-ticketing/models"
)

type bookingFixture struct {
	service *BookingService
	event   *models.Event
	store   *MemoryStore
	mockpay *mockpay.Client
}

func setupBookingFixture(t *testing.T, capacity int, seats []models.Seat) *bookingFixture {
	t.Helper()
	ctx := context.Background()

	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.RegisterGateway(ctx, gateway.ProviderMockPay, &mockpay.Config{
		MerchantID: "TEST",
	}))

	gw, err := registry.GetGateway(gateway.ProviderMockPay)
	require.NoError(t, err)
	adapter, ok := gw.(*gateway.MockPayAdapter)
	require.True(t, ok)

	store := NewMemoryStore()
	service := NewBookingService(NewInventoryService(testTTL), NewLedgerService(), registry, store, nil, nil, nil)

	event := &models.Event{
		ID:        "ev1",
		Name:      "Arena Night",
		Venue:     "City Arena",
		Capacity:  capacity,
		BasePrice: models.NewMoney(50, "USD"),
		Status:    models.EventPublished,
	}
	service.RegisterEvent(event, seats)

	return &bookingFixture{
		service: service,
		event:   event,
		store:   store,
		mockpay: adapter.Client(),
	}
}

func TestBookingService_BookConfirmsOrder(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 2)
	require.NoError(t, err)

	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.NotEmpty(t, order.PaymentID)
	assert.Len(t, order.Tickets, 2)
	assert.True(t, order.TotalAmount.Equal(models.NewMoney(100, "USD")))

	charge := f.service.ledger.ChargeFor(order.ID)
	require.NotNil(t, charge)
	assert.Equal(t, models.PaymentCharge, charge.Type)
	assert.True(t, charge.Amount.Equal(order.TotalAmount))

	snap, err := f.service.Availability("ev1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Sold)
	assert.Equal(t, 8, snap.Available)
	assert.Equal(t, 0, snap.Held)

	assert.NotNil(t, f.store.Order(order.ID))
	assert.Equal(t, 2, f.event.TicketsSold)
}

func TestBookingService_PaymentFailureReleasesEverything(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	f.mockpay.SetFailNext(1)
	_, err := f.service.Book(ctx, "user1", "ev1", 3)
	assert.True(t, errors.Is(err, status.ErrPaymentFailed))

	snap, err := f.service.Availability("ev1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Sold)
	assert.Equal(t, 0, snap.Held)
	assert.Equal(t, 10, snap.Available)

	assert.Empty(t, f.service.ledger.All())
	assert.Empty(t, f.service.OrderHistory("user1"))

	// Next attempt goes through.
	order, err := f.service.Book(ctx, "user1", "ev1", 3)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, order.Status)
}

func TestBookingService_SoldOut(t *testing.T) {
	f := setupBookingFixture(t, 1, nil)
	ctx := context.Background()

	_, err := f.service.Book(ctx, "user1", "ev1", 2)
	assert.True(t, errors.Is(err, status.ErrSoldOut))

	_, err = f.service.Book(ctx, "user1", "ev1", 1)
	require.NoError(t, err)

	_, err = f.service.Book(ctx, "user2", "ev1", 1)
	assert.True(t, errors.Is(err, status.ErrSoldOut))
}

func TestBookingService_LastTicketSingleWinner(t *testing.T) {
	f := setupBookingFixture(t, 1, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, user := range []string{"user1", "user2"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := f.service.Book(ctx, u, "ev1", 1)
			results <- err
		}(user)
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, errors.Is(err, status.ErrSoldOut))
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	snap, _ := f.service.Availability("ev1")
	assert.Equal(t, 1, snap.Sold)
}

func TestBookingService_EventNotOnSale(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	f.event.Status = models.EventDraft
	ctx := context.Background()

	_, err := f.service.Book(ctx, "user1", "ev1", 1)
	assert.True(t, errors.Is(err, status.ErrEventNotOnSale))

	_, err = f.service.Book(ctx, "user1", "missing", 1)
	assert.True(t, errors.Is(err, status.ErrEventNotFound))
}

func TestBookingService_BookSeatsUnavailableSeatFailsWhole(t *testing.T) {
	f := setupBookingFixture(t, 3, testSeats("ev1", 3))
	ctx := context.Background()

	first, err := f.service.BookSeats(ctx, "user1", "ev1", []string{"a1"})
	require.NoError(t, err)
	assert.Equal(t, "A1", first.Tickets[0].SeatLabel)

	_, err = f.service.BookSeats(ctx, "user2", "ev1", []string{"a1", "b1"})
	assert.True(t, errors.Is(err, status.ErrSeatUnavailable))

	snap, _ := f.service.Availability("ev1")
	assert.Equal(t, 1, snap.Sold)
	assert.Equal(t, 0, snap.Held)

	order, err := f.service.BookSeats(ctx, "user2", "ev1", []string{"b1", "c1"})
	require.NoError(t, err)
	assert.Len(t, order.Tickets, 2)
}

func TestBookingService_MixedBookingsNeverOversell(t *testing.T) {
	f := setupBookingFixture(t, 2, testSeats("ev1", 2))
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 2)
	require.NoError(t, err)
	assert.Equal(t, "A1", order.Tickets[0].SeatLabel)

	// The quantity booking consumed both seats, so a seat-level booking
	// for the same event has nothing left to claim.
	_, err = f.service.BookSeats(ctx, "user2", "ev1", []string{"a1", "b1"})
	assert.True(t, errors.Is(err, status.ErrSoldOut))

	snap, _ := f.service.Availability("ev1")
	assert.Equal(t, 2, snap.Sold)
	assert.Equal(t, 0, snap.Available)
	assert.Equal(t, 2, f.event.TicketsSold)
}

func TestBookingService_RefundLifecycle(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 2)
	require.NoError(t, err)

	req, err := f.service.SubmitRefund(ctx, "user1", order.ID, "cannot attend")
	require.NoError(t, err)
	assert.Equal(t, models.RefundPending, req.Status)

	_, err = f.service.SubmitRefund(ctx, "user1", order.ID, "still cannot attend")
	assert.True(t, errors.Is(err, status.ErrAlreadyPending))

	require.NoError(t, f.service.ApproveRefund(ctx, "admin1", req.ID))
	assert.Equal(t, models.RefundApproved, req.Status)
	assert.Equal(t, "admin1", req.ProcessedBy)
	assert.Equal(t, models.OrderRefunded, order.Status)

	refund := f.service.ledger.RefundFor(order.ID)
	require.NotNil(t, refund)
	assert.True(t, refund.Amount.Equal(order.TotalAmount))
	assert.Equal(t, refund.ID, req.RefundTxnID)

	// Refunded seats stay off the market.
	snap, _ := f.service.Availability("ev1")
	assert.Equal(t, 2, snap.Sold)

	_, err = f.service.SubmitRefund(ctx, "user1", order.ID, "again")
	assert.True(t, errors.Is(err, status.ErrOrderNotRefundable))
}

func TestBookingService_SubmitRefundChecksOwnership(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 1)
	require.NoError(t, err)

	_, err = f.service.SubmitRefund(ctx, "user2", order.ID, "not mine")
	assert.True(t, errors.Is(err, status.ErrOrderNotFound))
}

func TestBookingService_DenyRefundKeepsOrderConfirmed(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 1)
	require.NoError(t, err)

	req, err := f.service.SubmitRefund(ctx, "user1", order.ID, "changed my mind")
	require.NoError(t, err)

	require.NoError(t, f.service.DenyRefund(ctx, "admin1", req.ID, "outside refund window"))
	assert.Equal(t, models.RefundDenied, req.Status)
	assert.Equal(t, "outside refund window", req.Reason)
	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.Nil(t, f.service.ledger.RefundFor(order.ID))

	// A denied request does not block a new submission.
	_, err = f.service.SubmitRefund(ctx, "user1", order.ID, "second try")
	require.NoError(t, err)
}

func TestBookingService_ApproveRefundGatewayFailureLeavesPending(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 1)
	require.NoError(t, err)
	req, err := f.service.SubmitRefund(ctx, "user1", order.ID, "cannot attend")
	require.NoError(t, err)

	f.mockpay.SetFailNext(1)
	err = f.service.ApproveRefund(ctx, "admin1", req.ID)
	assert.True(t, errors.Is(err, status.ErrPaymentFailed))
	assert.Equal(t, models.RefundPending, req.Status)
	assert.Equal(t, models.OrderConfirmed, order.Status)

	// Admin retries once the gateway recovers.
	require.NoError(t, f.service.ApproveRefund(ctx, "admin1", req.ID))
	assert.Equal(t, models.RefundApproved, req.Status)
}

func TestBookingService_ProcessedRefundIsTerminal(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	order, err := f.service.Book(ctx, "user1", "ev1", 1)
	require.NoError(t, err)
	req, err := f.service.SubmitRefund(ctx, "user1", order.ID, "cannot attend")
	require.NoError(t, err)
	require.NoError(t, f.service.ApproveRefund(ctx, "admin1", req.ID))

	err = f.service.ApproveRefund(ctx, "admin1", req.ID)
	assert.True(t, errors.Is(err, status.ErrInvalidTransition))
	err = f.service.DenyRefund(ctx, "admin1", req.ID, "late")
	assert.True(t, errors.Is(err, status.ErrInvalidTransition))
}

func TestBookingService_DecliningAmountLimit(t *testing.T) {
	ctx := context.Background()

	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.RegisterGateway(ctx, gateway.ProviderMockPay, &mockpay.Config{
		MerchantID:   "TEST",
		DeclineAbove: decimal.NewFromInt(120),
	}))

	service := NewBookingService(NewInventoryService(testTTL), NewLedgerService(), registry, NewMemoryStore(), nil, nil, nil)
	event := &models.Event{
		ID:        "ev1",
		Name:      "Arena Night",
		Capacity:  10,
		BasePrice: models.NewMoney(50, "USD"),
		Status:    models.EventPublished,
	}
	service.RegisterEvent(event, nil)

	_, err := service.Book(ctx, "user1", "ev1", 3)
	assert.True(t, errors.Is(err, status.ErrPaymentFailed))

	_, err = service.Book(ctx, "user1", "ev1", 2)
	require.NoError(t, err)
}

func TestBookingService_HoldExpiryDuringChargeIsReversed(t *testing.T) {
	ctx := context.Background()

	// The gateway answers slower than the hold lives.
	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.RegisterGateway(ctx, gateway.ProviderMockPay, &mockpay.Config{
		MerchantID: "TEST",
		Latency:    60 * time.Millisecond,
	}))

	ledger := NewLedgerService()
	service := NewBookingService(NewInventoryService(5*time.Millisecond), ledger, registry, NewMemoryStore(), nil, nil, nil)
	service.RegisterEvent(&models.Event{
		ID:        "ev1",
		Name:      "Arena Night",
		Capacity:  10,
		BasePrice: models.NewMoney(50, "USD"),
		Status:    models.EventPublished,
	}, nil)

	_, err := service.Book(ctx, "user1", "ev1", 2)
	assert.True(t, errors.Is(err, status.ErrPaymentFailed))
	assert.Empty(t, service.OrderHistory("user1"))

	snap, _ := service.Availability("ev1")
	assert.Equal(t, 0, snap.Sold)
	assert.Equal(t, 0, snap.Held)
	assert.Equal(t, 10, snap.Available)

	// Money moved twice; the ledger shows the charge and its reversal.
	entries := ledger.All()
	require.Len(t, entries, 2)
	assert.Equal(t, models.PaymentCharge, entries[0].Type)
	assert.Equal(t, models.PaymentRefund, entries[1].Type)
	assert.Equal(t, entries[0].OrderID, entries[1].OrderID)
	assert.True(t, entries[0].Amount.Equal(entries[1].Amount))
}

func TestBookingService_RestoreCounters(t *testing.T) {
	f := setupBookingFixture(t, 10, nil)
	ctx := context.Background()

	_, err := f.service.Book(ctx, "user1", "ev1", 4)
	require.NoError(t, err)

	// Simulate a restart sharing the same store.
	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.RegisterGateway(ctx, gateway.ProviderMockPay, &mockpay.Config{MerchantID: "TEST"}))
	restarted := NewBookingService(NewInventoryService(testTTL), NewLedgerService(), registry, f.store, nil, nil, nil)
	restarted.RegisterEvent(&models.Event{
		ID:        "ev1",
		Name:      "Arena Night",
		Capacity:  10,
		BasePrice: models.NewMoney(50, "USD"),
		Status:    models.EventPublished,
	}, nil)

	require.NoError(t, restarted.RestoreCounters(ctx))

	snap, err := restarted.Availability("ev1")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Sold)
	assert.Equal(t, 6, snap.Available)
}
