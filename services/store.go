package services

import (
	"context"
	"sync"

	"concert-ticketing/models"
)

// Store persists booking state. Each Save method writes one transactional
// unit: either everything in the call becomes visible or nothing does.
type Store interface {
	// SaveBooking writes a confirmed order, its tickets, the charge entry
	// and the event's updated sold counter as one unit.
	SaveBooking(ctx context.Context, order *models.Order, txn *models.PaymentTransaction, event *models.Event) error

	// SaveRefundRequest writes a newly submitted refund request.
	SaveRefundRequest(ctx context.Context, req *models.RefundRequest) error

	// SaveRefundDecision writes a processed refund request together with
	// the refund ledger entry and updated order, both nil on denial.
	SaveRefundDecision(ctx context.Context, req *models.RefundRequest, txn *models.PaymentTransaction, order *models.Order) error

	// CountSoldByEvent reports persisted sold-ticket counts per event,
	// used to rebuild inventory counters at startup.
	CountSoldByEvent(ctx context.Context) (map[string]int, error)
}

// MemoryStore keeps everything in process memory. Used in tests and for
// local development without a database.
type MemoryStore struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	txns    map[string]*models.PaymentTransaction
	refunds map[string]*models.RefundRequest
	sold    map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  map[string]*models.Order{},
		txns:    map[string]*models.PaymentTransaction{},
		refunds: map[string]*models.RefundRequest{},
		sold:    map[string]int{},
	}
}

func (s *MemoryStore) SaveBooking(ctx context.Context, order *models.Order, txn *models.PaymentTransaction, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = order
	s.txns[txn.ID] = txn
	s.sold[event.ID] = event.TicketsSold
	return nil
}

func (s *MemoryStore) SaveRefundRequest(ctx context.Context, req *models.RefundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refunds[req.ID] = req
	return nil
}

func (s *MemoryStore) SaveRefundDecision(ctx context.Context, req *models.RefundRequest, txn *models.PaymentTransaction, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refunds[req.ID] = req
	if txn != nil {
		s.txns[txn.ID] = txn
	}
	if order != nil {
		s.orders[order.ID] = order
	}
	return nil
}

func (s *MemoryStore) CountSoldByEvent(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.sold))
	for eventID, n := range s.sold {
		counts[eventID] = n
	}
	return counts, nil
}

// Order returns a persisted order by ID, for test assertions.
func (s *MemoryStore) Order(id string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}
