package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"concert-ticketing/models"
	"concert-ticketing/services"
)

type RefundHandler struct {
	app     *pocketbase.PocketBase
	booking *services.BookingService
}

func NewRefundHandler(app *pocketbase.PocketBase, booking *services.BookingService) *RefundHandler {
	return &RefundHandler{
		app:     app,
		booking: booking,
	}
}

// SubmitRefund - Buyer opens a refund request for a confirmed order
func (h *RefundHandler) SubmitRefund(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		OrderID string `json:"order_id"`
		Reason  string `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.OrderID == "" {
		return apis.NewBadRequestError("order_id is required", nil)
	}

	refund, err := h.booking.SubmitRefund(e.Request.Context(), e.Auth.Id, req.OrderID, req.Reason)
	if err != nil {
		return bookingAPIError(err)
	}

	return e.JSON(http.StatusOK, refundResponse(refund))
}

// GetPendingRefunds - Admin queue of open requests
func (h *RefundHandler) GetPendingRefunds(e *core.RequestEvent) error {
	if e.Auth == nil || e.Auth.Collection().Name != "admins" {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	pending := h.booking.PendingRefunds()
	refunds := make([]map[string]any, 0, len(pending))
	for _, req := range pending {
		refunds = append(refunds, refundResponse(req))
	}

	return e.JSON(http.StatusOK, map[string]any{"refunds": refunds})
}

// ProcessRefund - Admin approves or denies one request
func (h *RefundHandler) ProcessRefund(e *core.RequestEvent) error {
	if e.Auth == nil || e.Auth.Collection().Name != "admins" {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	var req struct {
		RefundID string `json:"refund_id"`
		Approve  bool   `json:"approve"`
		Reason   string `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.RefundID == "" {
		return apis.NewBadRequestError("refund_id is required", nil)
	}

	ctx := e.Request.Context()
	var err error
	if req.Approve {
		err = h.booking.ApproveRefund(ctx, e.Auth.Id, req.RefundID)
	} else {
		err = h.booking.DenyRefund(ctx, e.Auth.Id, req.RefundID, req.Reason)
	}
	if err != nil {
		return bookingAPIError(err)
	}

	decision := "denied"
	if req.Approve {
		decision = "approved"
	}
	return e.JSON(http.StatusOK, map[string]any{
		"refund_id": req.RefundID,
		"decision":  decision,
	})
}

func refundResponse(req *models.RefundRequest) map[string]any {
	resp := map[string]any{
		"refund_id":  req.ID,
		"order_id":   req.OrderID,
		"reason":     req.Reason,
		"status":     string(req.Status),
		"created_at": req.CreatedAt,
	}
	if req.ProcessedAt != nil {
		resp["processed_at"] = req.ProcessedAt
		resp["processed_by"] = req.ProcessedBy
	}
	if req.RefundTxnID != "" {
		resp["refund_txn_id"] = req.RefundTxnID
	}
	return resp
}
