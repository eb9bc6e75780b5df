package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"concert-ticketing/internal/status"
	"concert-ticketing/models"
	"concert-ticketing/utils"
)

const (
	holdActive    = "active"
	holdConfirmed = "confirmed"
	holdReleased  = "released"
)

// ReservationToken identifies a pending seat hold handed out by Reserve.
type ReservationToken string

type seatHold struct {
	token     ReservationToken
	quantity  int
	seatIDs   []string
	state     string
	createdAt time.Time
	expiresAt time.Time
}

// SeatInventory tracks capacity, sold tickets and in-flight holds for a
// single event. All mutations go through its mutex so concurrent bookings
// can never push sold+held past capacity.
type SeatInventory struct {
	mu       sync.Mutex
	eventID  string
	capacity int
	sold     int
	held     int
	seats    map[string]*models.Seat
	holds    map[ReservationToken]*seatHold
}

func NewSeatInventory(eventID string, capacity int) *SeatInventory {
	return &SeatInventory{
		eventID:  eventID,
		capacity: capacity,
		seats:    map[string]*models.Seat{},
		holds:    map[ReservationToken]*seatHold{},
	}
}

// NewSeatInventoryWithSeats builds an inventory with an explicit seat map.
// Capacity is the number of seats.
func NewSeatInventoryWithSeats(eventID string, seats []models.Seat) *SeatInventory {
	inv := NewSeatInventory(eventID, len(seats))
	for i := range seats {
		s := seats[i]
		inv.seats[s.ID] = &s
	}
	return inv
}

func (inv *SeatInventory) EventID() string { return inv.eventID }

// Available returns the number of tickets still open for sale. Admin-held
// seats are excluded.
func (inv *SeatInventory) Available() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.availableLocked()
}

func (inv *SeatInventory) availableLocked() int {
	avail := inv.capacity - inv.sold - inv.held
	for _, s := range inv.seats {
		if s.Status == models.SeatAdminHeld {
			avail--
		}
	}
	if avail < 0 {
		avail = 0
	}
	return avail
}

func (inv *SeatInventory) Sold() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.sold
}

// Reserve places a hold on quantity tickets. The hold counts against
// capacity immediately, so two buyers racing for the last ticket cannot
// both succeed. Returns status.ErrSoldOut when not enough remain.
func (inv *SeatInventory) Reserve(quantity int, ttl time.Duration) (ReservationToken, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("inventory: reserve quantity %d: %w", quantity, status.ErrSeatUnavailable)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.availableLocked() < quantity {
		return "", fmt.Errorf("event %s: %w", inv.eventID, status.ErrSoldOut)
	}

	// On a seat-mapped event every hold is backed by concrete seats, so
	// quantity holds and seat-level holds draw from the same pool.
	var seatIDs []string
	if len(inv.seats) > 0 {
		seatIDs = inv.allocateSeatsLocked(quantity)
		if seatIDs == nil {
			return "", fmt.Errorf("event %s: %w", inv.eventID, status.ErrSoldOut)
		}
	}

	code, err := utils.GenerateCode(16)
	if err != nil {
		for _, id := range seatIDs {
			inv.seats[id].MarkReleased()
		}
		return "", fmt.Errorf("inventory: generate token: %w", err)
	}

	now := time.Now()
	hold := &seatHold{
		token:     ReservationToken(code),
		quantity:  quantity,
		seatIDs:   seatIDs,
		state:     holdActive,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	inv.held += quantity
	inv.holds[hold.token] = hold
	return hold.token, nil
}

// allocateSeatsLocked marks quantity available seats held, lowest ID
// first, and returns their IDs. Returns nil when not enough seats are
// open, leaving nothing marked.
func (inv *SeatInventory) allocateSeatsLocked(quantity int) []string {
	open := make([]string, 0, len(inv.seats))
	for id, seat := range inv.seats {
		if seat.Status == models.SeatAvailable {
			open = append(open, id)
		}
	}
	if len(open) < quantity {
		return nil
	}
	sort.Strings(open)
	picked := open[:quantity]
	for _, id := range picked {
		inv.seats[id].MarkHeld()
	}
	return picked
}

// ReserveSeats holds a specific set of seats. If any requested seat is not
// available the whole reservation fails and already-marked seats are put
// back, so a failed call leaves no trace.
func (inv *SeatInventory) ReserveSeats(seatIDs []string, ttl time.Duration) (ReservationToken, error) {
	if len(seatIDs) == 0 {
		return "", fmt.Errorf("inventory: empty seat list: %w", status.ErrSeatUnavailable)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	// The counters bind seat-level holds too; seat statuses alone cannot
	// be trusted when sold counts were restored without seat state.
	if inv.availableLocked() < len(seatIDs) {
		return "", fmt.Errorf("event %s: %w", inv.eventID, status.ErrSoldOut)
	}

	marked := make([]*models.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := inv.seats[id]
		if !ok || !seat.MarkHeld() {
			for _, m := range marked {
				m.MarkReleased()
			}
			return "", fmt.Errorf("seat %s: %w", id, status.ErrSeatUnavailable)
		}
		marked = append(marked, seat)
	}

	code, err := utils.GenerateCode(16)
	if err != nil {
		for _, m := range marked {
			m.MarkReleased()
		}
		return "", fmt.Errorf("inventory: generate token: %w", err)
	}

	now := time.Now()
	hold := &seatHold{
		token:     ReservationToken(code),
		quantity:  len(seatIDs),
		seatIDs:   append([]string{}, seatIDs...),
		state:     holdActive,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	inv.held += hold.quantity
	inv.holds[hold.token] = hold
	return hold.token, nil
}

// Confirm converts a hold into sold tickets. Confirming the same token
// twice is a no-op. A token that was already released (expired or payment
// failed) cannot be confirmed.
func (inv *SeatInventory) Confirm(token ReservationToken) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	hold, ok := inv.holds[token]
	if !ok {
		return fmt.Errorf("token %s: %w", token, status.ErrHoldNotFound)
	}
	switch hold.state {
	case holdConfirmed:
		return nil
	case holdReleased:
		return fmt.Errorf("token %s already released: %w", token, status.ErrHoldNotFound)
	}
	if time.Now().After(hold.expiresAt) {
		// The janitor has not swept this one yet; it is still dead.
		inv.releaseLocked(hold)
		delete(inv.holds, token)
		return fmt.Errorf("token %s expired: %w", token, status.ErrHoldNotFound)
	}

	hold.state = holdConfirmed
	inv.held -= hold.quantity
	inv.sold += hold.quantity
	for _, id := range hold.seatIDs {
		if seat, ok := inv.seats[id]; ok {
			seat.MarkSold()
		}
	}
	return nil
}

// Release returns a hold's tickets to the pool. Releasing a confirmed or
// already-released token is a no-op, so payment-failure cleanup can be
// retried safely.
func (inv *SeatInventory) Release(token ReservationToken) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	hold, ok := inv.holds[token]
	if !ok || hold.state != holdActive {
		return
	}
	inv.releaseLocked(hold)
	delete(inv.holds, token)
}

func (inv *SeatInventory) releaseLocked(hold *seatHold) {
	hold.state = holdReleased
	inv.held -= hold.quantity
	for _, id := range hold.seatIDs {
		if seat, ok := inv.seats[id]; ok {
			seat.MarkReleased()
		}
	}
}

// SeatLabels returns display labels for the seats behind a hold, or nil
// for quantity-only holds (general admission).
func (inv *SeatInventory) SeatLabels(token ReservationToken) []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	hold, ok := inv.holds[token]
	if !ok {
		return nil
	}
	labels := make([]string, 0, len(hold.seatIDs))
	for _, id := range hold.seatIDs {
		if seat, ok := inv.seats[id]; ok {
			labels = append(labels, seat.Label())
		}
	}
	return labels
}

// AdminHold takes seats off sale for maintenance or VIP blocks. Seats that
// cannot be held (sold, already held) are skipped rather than failing the
// whole batch. Returns the IDs that were actually held.
func (inv *SeatInventory) AdminHold(seatIDs []string) []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	heldIDs := []string{}
	for _, id := range seatIDs {
		seat, ok := inv.seats[id]
		if !ok {
			continue
		}
		if seat.MarkAdminHeld() {
			heldIDs = append(heldIDs, id)
		}
	}
	return heldIDs
}

// AdminRelease puts admin-held seats back on sale, skipping any that are
// not admin-held.
func (inv *SeatInventory) AdminRelease(seatIDs []string) []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	released := []string{}
	for _, id := range seatIDs {
		seat, ok := inv.seats[id]
		if !ok || seat.Status != models.SeatAdminHeld {
			continue
		}
		seat.Status = models.SeatAvailable
		released = append(released, id)
	}
	return released
}

// RestoreSold seeds the sold counter from persisted orders at startup.
func (inv *SeatInventory) RestoreSold(sold int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if sold > inv.capacity {
		sold = inv.capacity
	}
	inv.sold = sold
}

// ExpireHolds releases every active hold whose deadline passed. Returns
// the number of holds released.
func (inv *SeatInventory) ExpireHolds(now time.Time) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	expired := 0
	for token, hold := range inv.holds {
		if hold.state == holdActive && now.After(hold.expiresAt) {
			inv.releaseLocked(hold)
			delete(inv.holds, token)
			expired++
		}
	}
	return expired
}

// Snapshot is a point-in-time view for dashboards.
type InventorySnapshot struct {
	EventID   string `json:"event_id"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
	Held      int    `json:"held"`
	Available int    `json:"available"`
}

func (inv *SeatInventory) Snapshot() InventorySnapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return InventorySnapshot{
		EventID:   inv.eventID,
		Capacity:  inv.capacity,
		Sold:      inv.sold,
		Held:      inv.held,
		Available: inv.availableLocked(),
	}
}

// InventoryService owns one SeatInventory per registered event and runs
// the hold-expiry janitor.
type InventoryService struct {
	mu          sync.RWMutex
	inventories map[string]*SeatInventory
	holdTTL     time.Duration
}

func NewInventoryService(holdTTL time.Duration) *InventoryService {
	return &InventoryService{
		inventories: map[string]*SeatInventory{},
		holdTTL:     holdTTL,
	}
}

func (s *InventoryService) HoldTTL() time.Duration { return s.holdTTL }

// Register creates the inventory for an event. Passing seats switches the
// event to seat-level tracking.
func (s *InventoryService) Register(event *models.Event, seats []models.Seat) *SeatInventory {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv, ok := s.inventories[event.ID]; ok {
		return inv
	}
	var inv *SeatInventory
	if len(seats) > 0 {
		inv = NewSeatInventoryWithSeats(event.ID, seats)
	} else {
		inv = NewSeatInventory(event.ID, event.Capacity)
	}
	s.inventories[event.ID] = inv
	return inv
}

func (s *InventoryService) Get(eventID string) (*SeatInventory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.inventories[eventID]
	return inv, ok
}

func (s *InventoryService) Snapshots() []InventorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := make([]InventorySnapshot, 0, len(s.inventories))
	for _, inv := range s.inventories {
		snaps = append(snaps, inv.Snapshot())
	}
	return snaps
}

// StartJanitor launches the background loop that releases expired holds.
func (s *InventoryService) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.expireAll(now)
			}
		}
	}()
}

func (s *InventoryService) expireAll(now time.Time) {
	s.mu.RLock()
	invs := make([]*SeatInventory, 0, len(s.inventories))
	for _, inv := range s.inventories {
		invs = append(invs, inv)
	}
	s.mu.RUnlock()

	for _, inv := range invs {
		if n := inv.ExpireHolds(now); n > 0 {
			log.Printf("Released %d expired holds for event %s", n, inv.EventID())
		}
	}
}
