package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"concert-ticketing/internal/services/gateway"
	"concert-ticketing/services"
)

type PaymentHandler struct {
	app      *pocketbase.PocketBase
	sessions *services.SessionService
	gateways *gateway.Registry
}

func NewPaymentHandler(app *pocketbase.PocketBase, sessions *services.SessionService, gateways *gateway.Registry) *PaymentHandler {
	return &PaymentHandler{
		app:      app,
		sessions: sessions,
		gateways: gateways,
	}
}

// GetPaymentSession - Charge progress for one order, owner only
func (h *PaymentHandler) GetPaymentSession(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")
	data, err := h.sessions.GetSession(e.Request.Context(), orderID)
	if err != nil {
		return apis.NewBadRequestError("Failed to load payment session", err)
	}
	if len(data) == 0 {
		return apis.NewNotFoundError("Payment session not found", nil)
	}
	if data["user_id"] != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"order_id": orderID,
		"amount":   data["amount"],
		"status":   data["status"],
		"reason":   data["reason"],
	})
}

// SimulateGatewayFailure - Development helper, forces the next N gateway
// calls to be declined
func (h *PaymentHandler) SimulateGatewayFailure(e *core.RequestEvent) error {
	var req struct {
		FailNext int `json:"fail_next"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	gw, err := h.gateways.GetGateway(gateway.ProviderMockPay)
	if err != nil {
		return apis.NewBadRequestError("Mock gateway not registered", err)
	}
	adapter, ok := gw.(*gateway.MockPayAdapter)
	if !ok {
		return apis.NewBadRequestError("Mock gateway not registered", nil)
	}
	adapter.Client().SetFailNext(req.FailNext)

	return e.JSON(http.StatusOK, map[string]any{"fail_next": req.FailNext})
}
