package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("gateway")

	assert.Equal(t, "gateway", cb.name)
	assert.Equal(t, uint32(100), cb.maxRequests)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("gateway")
	ctx := context.Background()

	result, err := cb.Execute(ctx, func() (any, error) {
		return "charged", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "charged", result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("gateway")
	ctx := context.Background()

	declined := errors.New("declined")
	result, err := cb.Execute(ctx, func() (any, error) {
		return nil, declined
	})

	assert.Equal(t, declined, err)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_OpensOnFailureRatio(t *testing.T) {
	cb := NewCircuitBreaker("gateway")
	cb.maxRequests = 5
	cb.failureRatio = 0.6
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(ctx, func() (any, error) {
			return "charged", nil
		})
		assert.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		_, err := cb.Execute(ctx, func() (any, error) {
			return nil, errors.New("gateway down")
		})
		assert.Error(t, err)
	}

	assert.Equal(t, StateOpen, cb.state)

	// An open breaker rejects without calling the gateway.
	_, err := cb.Execute(ctx, func() (any, error) {
		t.Fatal("must not execute while open")
		return nil, nil
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("gateway")
	cb.maxRequests = 5
	cb.failureRatio = 0.6
	cb.timeout = 100 * time.Millisecond
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cb.Execute(ctx, func() (any, error) {
			return nil, errors.New("gateway down")
		})
	}
	assert.Equal(t, StateOpen, cb.state)

	time.Sleep(150 * time.Millisecond)

	// First probe after the timeout runs half-open and closes on success.
	_, err := cb.Execute(ctx, func() (any, error) {
		return "charged", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ConcurrentExecute(t *testing.T) {
	cb := NewCircuitBreaker("gateway")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := cb.Execute(ctx, func() (any, error) {
				time.Sleep(time.Millisecond)
				if id%10 == 0 {
					return nil, errors.New("declined")
				}
				return "charged", nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 90, succeeded)
	assert.Equal(t, uint32(100), cb.counts.Requests)
}

func TestCircuitBreaker_ReadyToTrip(t *testing.T) {
	cb := NewCircuitBreaker("gateway")

	tests := []struct {
		name         string
		requests     uint32
		failures     uint32
		maxRequests  uint32
		failureRatio float64
		want         bool
	}{
		{"below request floor", 5, 5, 10, 0.5, false},
		{"above ratio", 10, 8, 10, 0.6, true},
		{"below ratio", 10, 3, 10, 0.6, false},
		{"at ratio", 10, 6, 10, 0.6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb.maxRequests = tt.maxRequests
			cb.failureRatio = tt.failureRatio
			cb.counts.Requests = tt.requests
			cb.counts.TotalFailures = tt.failures

			assert.Equal(t, tt.want, cb.readyToTrip())
		})
	}
}

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	assert.NoError(t, RedisHealthCheck(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	err := RedisHealthCheck(db)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
