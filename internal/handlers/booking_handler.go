package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"concert-ticketing/internal/status"
	"concert-ticketing/models"
	"concert-ticketing/services"
)

type BookingHandler struct {
	app     *pocketbase.PocketBase
	booking *services.BookingService
}

func NewBookingHandler(app *pocketbase.PocketBase, booking *services.BookingService) *BookingHandler {
	return &BookingHandler{
		app:     app,
		booking: booking,
	}
}

// CreateBooking - Reserve, charge and confirm in one call
func (h *BookingHandler) CreateBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		EventID  string   `json:"event_id"`
		Quantity int      `json:"quantity"`
		SeatIDs  []string `json:"seat_ids"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}

	ctx := e.Request.Context()

	var order *models.Order
	var err error
	if len(req.SeatIDs) > 0 {
		order, err = h.booking.BookSeats(ctx, e.Auth.Id, req.EventID, req.SeatIDs)
	} else {
		order, err = h.booking.Book(ctx, e.Auth.Id, req.EventID, req.Quantity)
	}
	if err != nil {
		return bookingAPIError(err)
	}

	return e.JSON(http.StatusOK, orderResponse(order))
}

// GetBookingHistory - Every order of the authenticated user
func (h *BookingHandler) GetBookingHistory(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orders := h.booking.OrderHistory(e.Auth.Id)
	history := make([]map[string]any, 0, len(orders))
	for _, order := range orders {
		history = append(history, orderResponse(order))
	}

	return e.JSON(http.StatusOK, map[string]any{"orders": history})
}

// GetOrder - Single order lookup, owner only
func (h *BookingHandler) GetOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	order, err := h.booking.Order(e.Request.PathValue("orderId"))
	if err != nil {
		return bookingAPIError(err)
	}
	if order.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, orderResponse(order))
}

// GetAvailability - Live counters for one event, no auth required
func (h *BookingHandler) GetAvailability(e *core.RequestEvent) error {
	snap, err := h.booking.Availability(e.Request.PathValue("eventId"))
	if err != nil {
		return bookingAPIError(err)
	}
	return e.JSON(http.StatusOK, snap)
}

func orderResponse(order *models.Order) map[string]any {
	tickets := make([]map[string]any, 0, len(order.Tickets))
	for _, t := range order.Tickets {
		tickets = append(tickets, map[string]any{
			"ticket_id":  t.ID,
			"seat_label": t.SeatLabel,
			"price":      t.Price.String(),
		})
	}
	return map[string]any{
		"order_id":     order.ID,
		"event_id":     order.EventID,
		"status":       string(order.Status),
		"total_amount": order.TotalAmount.String(),
		"payment_id":   order.PaymentID,
		"tickets":      tickets,
		"created_at":   order.CreatedAt,
	}
}

func bookingAPIError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrOrderNotFound),
		errors.Is(err, status.ErrRefundNotFound):
		return apis.NewNotFoundError("Not found", err)
	case errors.Is(err, status.ErrSoldOut):
		return apis.NewBadRequestError("Event is sold out", err)
	case errors.Is(err, status.ErrSeatUnavailable):
		return apis.NewBadRequestError("Requested seats are not available", err)
	case errors.Is(err, status.ErrEventNotOnSale):
		return apis.NewBadRequestError("Event is not on sale", err)
	case errors.Is(err, status.ErrPaymentFailed):
		return apis.NewBadRequestError("Payment failed", err)
	case errors.Is(err, status.ErrAlreadyPending):
		return apis.NewBadRequestError("A refund request is already pending for this order", err)
	case errors.Is(err, status.ErrOrderNotRefundable):
		return apis.NewBadRequestError("Order is not refundable", err)
	case errors.Is(err, status.ErrInvalidTransition):
		return apis.NewBadRequestError("Invalid state transition", err)
	default:
		return apis.NewBadRequestError("Request failed", err)
	}
}
