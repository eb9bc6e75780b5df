package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionService tracks in-flight payment sessions in Redis so the
// frontend can poll charge progress and abandoned sessions expire on
// their own.
type SessionService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSessionService(redisClient *redis.Client, ttl time.Duration) *SessionService {
	return &SessionService{
		redis: redisClient,
		ttl:   ttl,
	}
}

func sessionKey(orderID string) string {
	return fmt.Sprintf("payment:session:%s", orderID)
}

// CreateSession records a pending charge attempt. The key carries a TTL
// so sessions for abandoned checkouts disappear without cleanup code.
func (s *SessionService) CreateSession(ctx context.Context, orderID, userID, eventID, amount string) error {
	key := sessionKey(orderID)
	if err := s.redis.HSet(ctx, key,
		"order_id", orderID,
		"user_id", userID,
		"event_id", eventID,
		"amount", amount,
		"status", "pending",
	).Err(); err != nil {
		return fmt.Errorf("create payment session: %w", err)
	}
	if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("expire payment session: %w", err)
	}
	return nil
}

func (s *SessionService) MarkCompleted(ctx context.Context, orderID, gatewayRef string) error {
	key := sessionKey(orderID)
	if err := s.redis.HSet(ctx, key, "status", "completed", "gateway_ref", gatewayRef).Err(); err != nil {
		return fmt.Errorf("complete payment session: %w", err)
	}
	return nil
}

func (s *SessionService) MarkFailed(ctx context.Context, orderID, reason string) error {
	key := sessionKey(orderID)
	if err := s.redis.HSet(ctx, key, "status", "failed", "reason", reason).Err(); err != nil {
		return fmt.Errorf("fail payment session: %w", err)
	}
	return nil
}

// GetSession returns the raw session fields, empty map when expired.
func (s *SessionService) GetSession(ctx context.Context, orderID string) (map[string]string, error) {
	data, err := s.redis.HGetAll(ctx, sessionKey(orderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	return data, nil
}

// RegisterActiveEvent adds an event to the on-sale set shown on the
// admin dashboard.
func (s *SessionService) RegisterActiveEvent(ctx context.Context, eventID string) error {
	return s.redis.SAdd(ctx, "active_events", eventID).Err()
}

func (s *SessionService) ActiveEvents(ctx context.Context) ([]string, error) {
	return s.redis.SMembers(ctx, "active_events").Result()
}
