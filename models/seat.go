package models

import "fmt"

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatSold      SeatStatus = "sold"
	SeatAdminHeld SeatStatus = "admin_held"
)

type Seat struct {
	ID      string     `json:"id"`
	EventID string     `json:"event_id"`
	Row     string     `json:"row"`
	Number  int        `json:"number"`
	Section string     `json:"section"`
	Price   Money      `json:"price"`
	Status  SeatStatus `json:"status"`
}

// The mark* methods implement the seat state machine:
// available -> held -> sold, held -> available on release, and
// available -> admin_held for manual venue holds. Invalid transitions
// return false and leave the seat untouched so bulk operations can skip
// stale entries instead of aborting.

func (s *Seat) MarkHeld() bool {
	if s.Status != SeatAvailable {
		return false
	}
	s.Status = SeatHeld
	return true
}

func (s *Seat) MarkSold() bool {
	if s.Status != SeatHeld {
		return false
	}
	s.Status = SeatSold
	return true
}

func (s *Seat) MarkReleased() bool {
	if s.Status != SeatHeld {
		return false
	}
	s.Status = SeatAvailable
	return true
}

func (s *Seat) MarkAdminHeld() bool {
	if s.Status != SeatAvailable {
		return false
	}
	s.Status = SeatAdminHeld
	return true
}

func (s *Seat) Label() string {
	if s.Section != "" {
		return fmt.Sprintf("%s %s%d", s.Section, s.Row, s.Number)
	}
	return fmt.Sprintf("%s%d", s.Row, s.Number)
}
