package models

// Ticket is an immutable record of one seat/price assignment within an
// order. Fields are set once at issuance; a ticket is discarded only when
// its still-pending order is voided.
type Ticket struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	EventID   string `json:"event_id"`
	Price     Money  `json:"price"`
	SeatLabel string `json:"seat_label"`
}

func NewTicket(id, orderID, eventID string, price Money, seatLabel string) Ticket {
	return Ticket{
		ID:        id,
		OrderID:   orderID,
		EventID:   eventID,
		Price:     price,
		SeatLabel: seatLabel,
	}
}
