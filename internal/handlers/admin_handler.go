package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"concert-ticketing/services"
)

type AdminHandler struct {
	app       *pocketbase.PocketBase
	booking   *services.BookingService
	inventory *services.InventoryService
	ledger    *services.LedgerService
	redis     *redis.Client
}

func NewAdminHandler(app *pocketbase.PocketBase, booking *services.BookingService, inventory *services.InventoryService, ledger *services.LedgerService, redisClient *redis.Client) *AdminHandler {
	return &AdminHandler{
		app:       app,
		booking:   booking,
		inventory: inventory,
		ledger:    ledger,
		redis:     redisClient,
	}
}

// GetInventoryDashboard - Live counters for every registered event
func (h *AdminHandler) GetInventoryDashboard(e *core.RequestEvent) error {
	if e.Auth == nil || e.Auth.Collection().Name != "admins" {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	ctx := e.Request.Context()

	dashboard := []map[string]any{}
	for _, snap := range h.inventory.Snapshots() {
		entry := map[string]any{
			"event_id":  snap.EventID,
			"capacity":  snap.Capacity,
			"sold":      snap.Sold,
			"held":      snap.Held,
			"available": snap.Available,
		}
		if event, err := h.app.FindRecordById("events", snap.EventID); err == nil {
			entry["event_name"] = event.GetString("name")
		}
		dashboard = append(dashboard, entry)
	}

	var activeEvents []string
	if h.redis != nil {
		var err error
		activeEvents, err = h.redis.SMembers(ctx, "active_events").Result()
		if err != nil {
			log.Printf("Error reading active events: %v", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"events":        dashboard,
		"active_events": activeEvents,
	})
}

// HoldSeats - Take seats off sale for maintenance or VIP blocks
func (h *AdminHandler) HoldSeats(e *core.RequestEvent) error {
	if e.Auth == nil || e.Auth.Collection().Name != "admins" {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	var req struct {
		EventID string   `json:"event_id"`
		SeatIDs []string `json:"seat_ids"`
		Release bool     `json:"release"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	inv, ok := h.inventory.Get(req.EventID)
	if !ok {
		return apis.NewNotFoundError("Event not found", nil)
	}

	var affected []string
	if req.Release {
		affected = inv.AdminRelease(req.SeatIDs)
	} else {
		affected = inv.AdminHold(req.SeatIDs)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id": req.EventID,
		"seats":    affected,
		"released": req.Release,
	})
}

// GetLedgerReport - Full payment ledger plus per-event revenue totals
func (h *AdminHandler) GetLedgerReport(e *core.RequestEvent) error {
	if e.Auth == nil || e.Auth.Collection().Name != "admins" {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	entries := h.ledger.All()
	report := make([]map[string]any, 0, len(entries))
	for _, txn := range entries {
		report = append(report, map[string]any{
			"txn_id":      txn.ID,
			"order_id":    txn.OrderID,
			"gateway_ref": txn.GatewayRef,
			"type":        string(txn.Type),
			"amount":      txn.Amount.String(),
			"status":      string(txn.Status),
			"timestamp":   txn.Timestamp,
		})
	}

	var rows []dbx.NullStringMap
	if err := h.app.DB().NewQuery(
		"SELECT event_id, COUNT(*) AS orders, SUM(total_amount) AS revenue FROM orders WHERE status IN ('confirmed', 'refunded') GROUP BY event_id",
	).All(&rows); err != nil {
		log.Printf("Error building revenue report: %v", err)
	}

	revenue := []map[string]any{}
	for _, row := range rows {
		revenue = append(revenue, map[string]any{
			"event_id": row["event_id"].String,
			"orders":   row["orders"].String,
			"revenue":  row["revenue"].String,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ledger":  report,
		"revenue": revenue,
	})
}
