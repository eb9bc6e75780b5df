package models

import (
	"time"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCanceled  EventStatus = "canceled"
)

type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Venue       string      `json:"venue"`
	StartAt     time.Time   `json:"start_at"`
	Capacity    int         `json:"capacity"`
	TicketsSold int         `json:"tickets_sold"`
	BasePrice   Money       `json:"base_price"`
	Status      EventStatus `json:"status"`
}

// Available reports seats still open for sale. TicketsSold never exceeds
// Capacity; the inventory service is the only writer of the counter.
func (e *Event) Available() int {
	return e.Capacity - e.TicketsSold
}

func (e *Event) OnSale() bool {
	return e.Status == EventPublished
}
