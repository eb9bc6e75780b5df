package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"concert-ticketing/internal/services/gateway"
	"concert-ticketing/internal/status"
	"concert-ticketing/models"
	"concert-ticketing/monitoring"
	"concert-ticketing/utils"
)

// BookingService coordinates the reserve, charge, confirm sequence across
// inventory, the payment gateway, the ledger and the store. Money only
// moves while a hold protects the seats, and a failed charge releases the
// hold so nothing leaks.
type BookingService struct {
	inventory *InventoryService
	ledger    *LedgerService
	gateways  *gateway.Registry
	breaker   *utils.CircuitBreaker
	store     Store
	sessions  *SessionService
	notifier  Notifier
	monitor   *monitoring.Monitor

	mu             sync.RWMutex
	events         map[string]*models.Event
	orders         map[string]*models.Order
	refunds        map[string]*models.RefundRequest
	refundsByOrder map[string]string
}

// NewBookingService wires the coordinator. sessions and monitor may be
// nil, notifier may be nil and falls back to NopNotifier.
func NewBookingService(inventory *InventoryService, ledger *LedgerService, gateways *gateway.Registry, store Store, sessions *SessionService, notifier Notifier, monitor *monitoring.Monitor) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		inventory:      inventory,
		ledger:         ledger,
		gateways:       gateways,
		breaker:        utils.NewCircuitBreaker("payment-gateway"),
		store:          store,
		sessions:       sessions,
		notifier:       notifier,
		monitor:        monitor,
		events:         map[string]*models.Event{},
		orders:         map[string]*models.Order{},
		refunds:        map[string]*models.RefundRequest{},
		refundsByOrder: map[string]string{},
	}
}

// RegisterEvent makes an event bookable. Seats are optional; without
// them the event sells by quantity against its capacity.
func (s *BookingService) RegisterEvent(event *models.Event, seats []models.Seat) {
	s.mu.Lock()
	s.events[event.ID] = event
	s.mu.Unlock()

	inv := s.inventory.Register(event, seats)
	if event.TicketsSold > 0 {
		inv.RestoreSold(event.TicketsSold)
	}
}

func (s *BookingService) Event(eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, status.ErrEventNotFound)
	}
	return event, nil
}

// Availability reports live counters for one event.
func (s *BookingService) Availability(eventID string) (InventorySnapshot, error) {
	inv, ok := s.inventory.Get(eventID)
	if !ok {
		return InventorySnapshot{}, fmt.Errorf("event %s: %w", eventID, status.ErrEventNotFound)
	}
	return inv.Snapshot(), nil
}

// Book buys quantity general-admission tickets in one atomic step.
func (s *BookingService) Book(ctx context.Context, userID, eventID string, quantity int) (*models.Order, error) {
	event, inv, err := s.bookableEvent(eventID)
	if err != nil {
		return nil, err
	}

	token, err := inv.Reserve(quantity, s.inventory.HoldTTL())
	if err != nil {
		s.trackReject(eventID, err)
		return nil, err
	}

	return s.completeBooking(ctx, userID, event, inv, token, quantity)
}

// BookSeats buys a specific set of seats. Any unavailable seat fails the
// whole booking before money moves.
func (s *BookingService) BookSeats(ctx context.Context, userID, eventID string, seatIDs []string) (*models.Order, error) {
	event, inv, err := s.bookableEvent(eventID)
	if err != nil {
		return nil, err
	}

	token, err := inv.ReserveSeats(seatIDs, s.inventory.HoldTTL())
	if err != nil {
		s.trackReject(eventID, err)
		return nil, err
	}

	return s.completeBooking(ctx, userID, event, inv, token, len(seatIDs))
}

func (s *BookingService) bookableEvent(eventID string) (*models.Event, *SeatInventory, error) {
	event, err := s.Event(eventID)
	if err != nil {
		return nil, nil, err
	}
	if !event.OnSale() {
		return nil, nil, fmt.Errorf("event %s: %w", eventID, status.ErrEventNotOnSale)
	}
	inv, ok := s.inventory.Get(eventID)
	if !ok {
		return nil, nil, fmt.Errorf("event %s: %w", eventID, status.ErrEventNotFound)
	}
	return event, inv, nil
}

func (s *BookingService) trackReject(eventID string, err error) {
	if s.monitor == nil {
		return
	}
	outcome := monitoring.OutcomeRejected
	if errors.Is(err, status.ErrSoldOut) {
		outcome = monitoring.OutcomeSoldOut
	}
	s.monitor.TrackBooking(eventID, outcome)
}

// completeBooking runs the charge and either confirms the hold or
// releases it. The order object only becomes visible once confirmed.
func (s *BookingService) completeBooking(ctx context.Context, userID string, event *models.Event, inv *SeatInventory, token ReservationToken, quantity int) (*models.Order, error) {
	orderID, err := utils.GenerateCode(8)
	if err != nil {
		inv.Release(token)
		return nil, fmt.Errorf("booking: generate order id: %w", err)
	}

	order := models.NewOrder(orderID, userID, event.ID, event.BasePrice.Currency)

	labels := inv.SeatLabels(token)
	for i := 0; i < quantity; i++ {
		ticketID, err := utils.GenerateCode(8)
		if err != nil {
			inv.Release(token)
			return nil, fmt.Errorf("booking: generate ticket id: %w", err)
		}
		label := "GA"
		if i < len(labels) {
			label = labels[i]
		}
		if err := order.AddTicket(models.NewTicket(ticketID, orderID, event.ID, event.BasePrice, label)); err != nil {
			inv.Release(token)
			return nil, err
		}
	}

	if s.sessions != nil {
		if err := s.sessions.CreateSession(ctx, orderID, userID, event.ID, order.TotalAmount.String()); err != nil {
			log.Printf("Error creating payment session for order %s: %v", orderID, err)
		}
	}

	result, err := s.charge(ctx, order, event)
	if err != nil || result.Status != gateway.StatusSuccess {
		inv.Release(token)
		order.Cancel()
		s.failSession(ctx, orderID, result, err)
		if s.monitor != nil {
			s.monitor.TrackBooking(event.ID, monitoring.OutcomePaymentFailed)
		}
		s.notifier.NotifyUser(userID, map[string]any{
			"type":     "payment_failed",
			"order_id": orderID,
			"event_id": event.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("charge order %s: %v: %w", orderID, err, status.ErrPaymentFailed)
		}
		return nil, fmt.Errorf("charge order %s: %s: %w", orderID, result.Message, status.ErrPaymentFailed)
	}

	txnID, err := utils.GenerateCode(8)
	if err != nil {
		txnID = fmt.Sprintf("txn_%d", time.Now().UnixNano())
	}
	txn := models.NewPaymentTransaction(txnID, orderID, result.GatewayRef, models.PaymentCharge, order.TotalAmount, models.PaymentSuccess)

	s.mu.Lock()
	if err := inv.Confirm(token); err != nil {
		// Hold expired while the charge was in flight. The money moved,
		// so refund it and surface a payment failure to the buyer.
		s.mu.Unlock()
		s.reverseExpiredCharge(ctx, order, txn)
		s.failSession(ctx, orderID, nil, err)
		if s.monitor != nil {
			s.monitor.TrackBooking(event.ID, monitoring.OutcomePaymentFailed)
		}
		return nil, fmt.Errorf("confirm order %s: %w", orderID, status.ErrPaymentFailed)
	}
	event.TicketsSold = inv.Sold()
	if err := order.AttachPayment(txn); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.ledger.Append(txn); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.orders[orderID] = order
	s.mu.Unlock()

	if err := s.store.SaveBooking(ctx, order, txn, event); err != nil {
		log.Printf("Error persisting order %s: %v", orderID, err)
	}
	if s.sessions != nil {
		if err := s.sessions.MarkCompleted(ctx, orderID, result.GatewayRef); err != nil {
			log.Printf("Error completing payment session for order %s: %v", orderID, err)
		}
	}
	if s.monitor != nil {
		s.monitor.TrackBooking(event.ID, monitoring.OutcomeConfirmed)
		s.monitor.SetTicketsSold(event.ID, event.TicketsSold)
		s.monitor.SetActiveHolds(event.ID, inv.Snapshot().Held)
	}
	s.notifier.NotifyUser(userID, map[string]any{
		"type":     "booking_confirmed",
		"order_id": orderID,
		"event_id": event.ID,
		"tickets":  quantity,
		"amount":   order.TotalAmount.String(),
	})

	return order, nil
}

func (s *BookingService) charge(ctx context.Context, order *models.Order, event *models.Event) (*gateway.Result, error) {
	gw, err := s.gateways.GetPrimaryGateway()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return gw.Charge(ctx, &gateway.Request{
			Amount:          order.TotalAmount.Amount,
			Currency:        order.TotalAmount.Currency,
			OrderID:         order.ID,
			ReferenceNumber: order.ID,
			Description:     event.Name,
		})
	})
	s.trackGateway("charge", res, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res.(*gateway.Result), nil
}

func (s *BookingService) trackGateway(operation string, res interface{}, err error, elapsed time.Duration) {
	if s.monitor == nil {
		return
	}
	st := string(gateway.StatusFailed)
	if err == nil {
		if r, ok := res.(*gateway.Result); ok {
			st = string(r.Status)
		}
	}
	s.monitor.TrackGatewayCall(operation, st, elapsed)
}

func (s *BookingService) failSession(ctx context.Context, orderID string, result *gateway.Result, err error) {
	if s.sessions == nil {
		return
	}
	reason := "payment declined"
	if err != nil {
		reason = err.Error()
	} else if result != nil && result.Message != "" {
		reason = result.Message
	}
	if serr := s.sessions.MarkFailed(ctx, orderID, reason); serr != nil {
		log.Printf("Error failing payment session for order %s: %v", orderID, serr)
	}
}

// reverseExpiredCharge sends money back that was captured against a hold
// no longer there. Both movements land in the ledger even though no order
// comes out of them.
func (s *BookingService) reverseExpiredCharge(ctx context.Context, order *models.Order, chargeTxn *models.PaymentTransaction) {
	if err := s.ledger.Append(chargeTxn); err != nil {
		log.Printf("Error recording expired charge for order %s: %v", order.ID, err)
	}

	gw, err := s.gateways.GetPrimaryGateway()
	if err != nil {
		log.Printf("Error refunding expired charge for order %s: %v", order.ID, err)
		return
	}
	result, err := gw.Refund(ctx, &gateway.Request{
		Amount:          order.TotalAmount.Amount,
		Currency:        order.TotalAmount.Currency,
		OrderID:         order.ID,
		ReferenceNumber: chargeTxn.GatewayRef,
		Description:     "hold expired before confirmation",
	})
	if err != nil {
		log.Printf("Error refunding expired charge for order %s: %v", order.ID, err)
		return
	}
	if result.Status != gateway.StatusSuccess {
		log.Printf("Error refunding expired charge for order %s: %s", order.ID, result.Message)
		return
	}

	refundID, err := utils.GenerateCode(8)
	if err != nil {
		refundID = fmt.Sprintf("txn_%d", time.Now().UnixNano())
	}
	refund := models.NewPaymentTransaction(refundID, order.ID, result.GatewayRef, models.PaymentRefund, order.TotalAmount, models.PaymentSuccess)
	if err := s.ledger.Append(refund); err != nil {
		log.Printf("Error recording expired charge refund for order %s: %v", order.ID, err)
	}
}

// Order returns a single order without exposing the registry.
func (s *BookingService) Order(orderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, status.ErrOrderNotFound)
	}
	return order, nil
}

// OrderHistory lists a user's orders, every status included.
func (s *BookingService) OrderHistory(userID string) []*models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := []*models.Order{}
	for _, order := range s.orders {
		if order.UserID == userID {
			history = append(history, order)
		}
	}
	return history
}

// SubmitRefund opens a refund request for a confirmed order. One pending
// request per order at a time.
func (s *BookingService) SubmitRefund(ctx context.Context, userID, orderID, reason string) (*models.RefundRequest, error) {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok || order.UserID != userID {
		s.mu.Unlock()
		return nil, fmt.Errorf("order %s: %w", orderID, status.ErrOrderNotFound)
	}
	if _, pending := s.refundsByOrder[orderID]; pending {
		s.mu.Unlock()
		return nil, fmt.Errorf("order %s: %w", orderID, status.ErrAlreadyPending)
	}
	if order.Status != models.OrderConfirmed {
		s.mu.Unlock()
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, status.ErrOrderNotRefundable)
	}

	refundID, err := utils.GenerateCode(8)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("refund: generate id: %w", err)
	}
	req := models.NewRefundRequest(refundID, orderID, reason)
	s.refunds[refundID] = req
	s.refundsByOrder[orderID] = refundID
	s.mu.Unlock()

	if err := s.store.SaveRefundRequest(ctx, req); err != nil {
		log.Printf("Error persisting refund request %s: %v", refundID, err)
	}
	s.notifier.NotifyAdmins(map[string]any{
		"type":      "refund_requested",
		"refund_id": refundID,
		"order_id":  orderID,
	})

	return req, nil
}

// PendingRefunds lists requests awaiting an admin decision.
func (s *BookingService) PendingRefunds() []*models.RefundRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := []*models.RefundRequest{}
	for _, req := range s.refunds {
		if req.Status == models.RefundPending {
			pending = append(pending, req)
		}
	}
	return pending
}

// ApproveRefund refunds the original charge through the gateway, moves
// the order to refunded and closes the request. A gateway failure leaves
// the request pending so the admin can retry. The sold counter stays
// where it is; refunded seats do not go back on sale.
func (s *BookingService) ApproveRefund(ctx context.Context, adminID, refundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.refunds[refundID]
	if !ok {
		return fmt.Errorf("refund %s: %w", refundID, status.ErrRefundNotFound)
	}
	if req.Status != models.RefundPending {
		return fmt.Errorf("refund %s is %s: %w", refundID, req.Status, status.ErrInvalidTransition)
	}
	order, ok := s.orders[req.OrderID]
	if !ok || order.Status != models.OrderConfirmed {
		return fmt.Errorf("order %s: %w", req.OrderID, status.ErrOrderNotRefundable)
	}
	charge := s.ledger.ChargeFor(req.OrderID)
	if charge == nil {
		return fmt.Errorf("order %s has no charge: %w", req.OrderID, status.ErrOrderNotRefundable)
	}

	gw, err := s.gateways.GetPrimaryGateway()
	if err != nil {
		return fmt.Errorf("refund %s: %v: %w", refundID, err, status.ErrPaymentFailed)
	}

	start := time.Now()
	res, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return gw.Refund(ctx, &gateway.Request{
			Amount:          charge.Amount.Amount,
			Currency:        charge.Amount.Currency,
			OrderID:         req.OrderID,
			ReferenceNumber: charge.GatewayRef,
			Description:     fmt.Sprintf("refund_%s", refundID),
		})
	})
	s.trackGateway("refund", res, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("refund %s: %v: %w", refundID, err, status.ErrPaymentFailed)
	}
	result := res.(*gateway.Result)
	if result.Status != gateway.StatusSuccess {
		return fmt.Errorf("refund %s: %s: %w", refundID, result.Message, status.ErrPaymentFailed)
	}

	txnID, err := utils.GenerateCode(8)
	if err != nil {
		txnID = fmt.Sprintf("txn_%d", time.Now().UnixNano())
	}
	txn := models.NewPaymentTransaction(txnID, req.OrderID, result.GatewayRef, models.PaymentRefund, charge.Amount, models.PaymentSuccess)

	if err := order.MarkRefunded(); err != nil {
		return err
	}
	if err := req.Approve(adminID); err != nil {
		return err
	}
	req.RefundTxnID = txn.ID
	if err := s.ledger.Append(txn); err != nil {
		return err
	}
	delete(s.refundsByOrder, req.OrderID)

	if err := s.store.SaveRefundDecision(ctx, req, txn, order); err != nil {
		log.Printf("Error persisting refund decision %s: %v", refundID, err)
	}
	if s.monitor != nil {
		s.monitor.TrackRefundDecision("approved")
	}
	s.notifier.NotifyUser(order.UserID, map[string]any{
		"type":      "refund_approved",
		"refund_id": refundID,
		"order_id":  req.OrderID,
		"amount":    charge.Amount.String(),
	})

	return nil
}

// DenyRefund closes the request without moving money. The order stays
// confirmed and the denial reason replaces the buyer's reason.
func (s *BookingService) DenyRefund(ctx context.Context, adminID, refundID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.refunds[refundID]
	if !ok {
		return fmt.Errorf("refund %s: %w", refundID, status.ErrRefundNotFound)
	}
	if err := req.Deny(adminID, reason); err != nil {
		return err
	}
	delete(s.refundsByOrder, req.OrderID)

	if err := s.store.SaveRefundDecision(ctx, req, nil, nil); err != nil {
		log.Printf("Error persisting refund decision %s: %v", refundID, err)
	}
	if s.monitor != nil {
		s.monitor.TrackRefundDecision("denied")
	}

	var userID string
	if order, ok := s.orders[req.OrderID]; ok {
		userID = order.UserID
	}
	if userID != "" {
		s.notifier.NotifyUser(userID, map[string]any{
			"type":      "refund_denied",
			"refund_id": refundID,
			"order_id":  req.OrderID,
			"reason":    reason,
		})
	}

	return nil
}

// RestoreCounters rebuilds per-event sold counts from the store after a
// restart, so inventory never trusts an in-memory number that did not
// survive the process.
func (s *BookingService) RestoreCounters(ctx context.Context) error {
	counts, err := s.store.CountSoldByEvent(ctx)
	if err != nil {
		return fmt.Errorf("restore counters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for eventID, sold := range counts {
		inv, ok := s.inventory.Get(eventID)
		if !ok {
			continue
		}
		inv.RestoreSold(sold)
		if event, ok := s.events[eventID]; ok {
			event.TicketsSold = sold
		}
		if s.monitor != nil {
			s.monitor.SetTicketsSold(eventID, sold)
		}
	}
	log.Printf("Restored sold counters for %d events", len(counts))
	return nil
}
