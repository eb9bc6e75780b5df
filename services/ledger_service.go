package services

import (
	"fmt"
	"sync"

	"concert-ticketing/internal/status"
	"concert-ticketing/models"
)

// LedgerService is the append-only record of gateway money movement.
// Entries are never updated or deleted; a refund is a new REFUND entry,
// not a mutation of the original charge.
type LedgerService struct {
	mu      sync.RWMutex
	entries []*models.PaymentTransaction
	byID    map[string]*models.PaymentTransaction
	byOrder map[string][]*models.PaymentTransaction
}

func NewLedgerService() *LedgerService {
	return &LedgerService{
		byID:    map[string]*models.PaymentTransaction{},
		byOrder: map[string][]*models.PaymentTransaction{},
	}
}

func (s *LedgerService) Append(txn *models.PaymentTransaction) error {
	if txn == nil {
		return fmt.Errorf("ledger: nil transaction: %w", status.ErrInvalidTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[txn.ID]; exists {
		return fmt.Errorf("ledger: duplicate transaction %s: %w", txn.ID, status.ErrInvalidTransition)
	}
	s.entries = append(s.entries, txn)
	s.byID[txn.ID] = txn
	s.byOrder[txn.OrderID] = append(s.byOrder[txn.OrderID], txn)
	return nil
}

// ChargeFor returns the successful charge for an order, or nil.
func (s *LedgerService) ChargeFor(orderID string) *models.PaymentTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, txn := range s.byOrder[orderID] {
		if txn.Type == models.PaymentCharge && txn.Status == models.PaymentSuccess {
			return txn
		}
	}
	return nil
}

// RefundFor returns the successful refund for an order, or nil.
func (s *LedgerService) RefundFor(orderID string) *models.PaymentTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, txn := range s.byOrder[orderID] {
		if txn.Type == models.PaymentRefund && txn.Status == models.PaymentSuccess {
			return txn
		}
	}
	return nil
}

// EntriesFor lists every ledger entry for an order, oldest first.
func (s *LedgerService) EntriesFor(orderID string) []*models.PaymentTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.PaymentTransaction{}, s.byOrder[orderID]...)
}

// All returns a copy of the full ledger in append order.
func (s *LedgerService) All() []*models.PaymentTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.PaymentTransaction{}, s.entries...)
}
