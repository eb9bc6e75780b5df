package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"concert-ticketing/models"
)

// PocketBaseStore persists bookings in the app database. Multi-record
// saves run inside one transaction so an order never becomes visible
// without its ledger entry.
type PocketBaseStore struct {
	app core.App
}

func NewPocketBaseStore(app core.App) *PocketBaseStore {
	return &PocketBaseStore{app: app}
}

func (s *PocketBaseStore) SaveBooking(ctx context.Context, order *models.Order, txn *models.PaymentTransaction, event *models.Event) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		if err := s.saveOrder(txApp, order); err != nil {
			return err
		}
		for i := range order.Tickets {
			if err := s.saveTicket(txApp, &order.Tickets[i]); err != nil {
				return err
			}
		}
		if err := s.saveTransaction(txApp, txn); err != nil {
			return err
		}

		record, err := txApp.FindRecordById("events", event.ID)
		if err != nil {
			return fmt.Errorf("find event %s: %w", event.ID, err)
		}
		record.Set("tickets_sold", event.TicketsSold)
		return txApp.Save(record)
	})
}

func (s *PocketBaseStore) SaveRefundRequest(ctx context.Context, req *models.RefundRequest) error {
	collection, err := s.app.FindCollectionByNameOrId("refunds")
	if err != nil {
		return fmt.Errorf("find refunds collection: %w", err)
	}

	record := core.NewRecord(collection)
	s.fillRefund(record, req)
	return s.app.Save(record)
}

func (s *PocketBaseStore) SaveRefundDecision(ctx context.Context, req *models.RefundRequest, txn *models.PaymentTransaction, order *models.Order) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByData("refunds", "refund_id", req.ID)
		if err != nil {
			return fmt.Errorf("find refund %s: %w", req.ID, err)
		}
		s.fillRefund(record, req)
		if err := txApp.Save(record); err != nil {
			return err
		}

		if txn != nil {
			if err := s.saveTransaction(txApp, txn); err != nil {
				return err
			}
		}
		if order != nil {
			orderRecord, err := txApp.FindFirstRecordByData("orders", "order_id", order.ID)
			if err != nil {
				return fmt.Errorf("find order %s: %w", order.ID, err)
			}
			orderRecord.Set("status", string(order.Status))
			if err := txApp.Save(orderRecord); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountSoldByEvent sums persisted order quantities per event. Refunded
// orders still count because refund approval does not reopen seats.
func (s *PocketBaseStore) CountSoldByEvent(ctx context.Context) (map[string]int, error) {
	var rows []dbx.NullStringMap
	err := s.app.DB().NewQuery(
		"SELECT event_id, SUM(quantity) AS sold FROM orders WHERE status IN ('confirmed', 'refunded') GROUP BY event_id",
	).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("count sold tickets: %w", err)
	}

	counts := map[string]int{}
	for _, row := range rows {
		eventID := row["event_id"].String
		if eventID == "" {
			continue
		}
		sold, err := strconv.Atoi(row["sold"].String)
		if err != nil {
			continue
		}
		counts[eventID] = sold
	}
	return counts, nil
}

func (s *PocketBaseStore) saveOrder(app core.App, order *models.Order) error {
	collection, err := app.FindCollectionByNameOrId("orders")
	if err != nil {
		return fmt.Errorf("find orders collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("order_id", order.ID)
	record.Set("user_id", order.UserID)
	record.Set("event_id", order.EventID)
	record.Set("status", string(order.Status))
	record.Set("quantity", len(order.Tickets))
	record.Set("total_amount", order.TotalAmount.Amount.StringFixed(2))
	record.Set("currency", order.TotalAmount.Currency)
	record.Set("payment_id", order.PaymentID)
	return app.Save(record)
}

func (s *PocketBaseStore) saveTicket(app core.App, ticket *models.Ticket) error {
	collection, err := app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return fmt.Errorf("find tickets collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("ticket_id", ticket.ID)
	record.Set("order_id", ticket.OrderID)
	record.Set("event_id", ticket.EventID)
	record.Set("price", ticket.Price.Amount.StringFixed(2))
	record.Set("currency", ticket.Price.Currency)
	record.Set("seat_label", ticket.SeatLabel)
	return app.Save(record)
}

func (s *PocketBaseStore) saveTransaction(app core.App, txn *models.PaymentTransaction) error {
	collection, err := app.FindCollectionByNameOrId("payments")
	if err != nil {
		return fmt.Errorf("find payments collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("txn_id", txn.ID)
	record.Set("order_id", txn.OrderID)
	record.Set("gateway_ref", txn.GatewayRef)
	record.Set("type", string(txn.Type))
	record.Set("amount", txn.Amount.Amount.StringFixed(2))
	record.Set("currency", txn.Amount.Currency)
	record.Set("status", string(txn.Status))
	return app.Save(record)
}

func (s *PocketBaseStore) fillRefund(record *core.Record, req *models.RefundRequest) {
	record.Set("refund_id", req.ID)
	record.Set("order_id", req.OrderID)
	record.Set("reason", req.Reason)
	record.Set("status", string(req.Status))
	record.Set("processed_by", req.ProcessedBy)
	record.Set("refund_txn_id", req.RefundTxnID)
}
