package httpx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/foodies-backoffice/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type IdemState int

const (
	IdemNew IdemState = iota
	IdemInProgress
	IdemDone
)

// Idempotency remembers which Idempotency-Key values already produced an order.
type Idempotency interface {
	Begin(ctx context.Context, companyID int64, key string) (IdemState, error)
	Complete(ctx context.Context, companyID int64, key string, orderID int64) error
	Abort(ctx context.Context, companyID int64, key string) error
}

const idemPending = "pending"

// RedisIdempotency holds "pending" for PendingTTL while an order is being placed and the
// order ID for TTL once it is.
type RedisIdempotency struct {
	Redis      *redis.Client
	TTL        time.Duration
	PendingTTL time.Duration
}

func (s *RedisIdempotency) key(companyID int64, key string) string {
	return fmt.Sprintf(redisx.KeyIdemOrderPlace, companyID, key)
}

func (s *RedisIdempotency) ttl() time.Duration {
	if s.TTL <= 0 {
		return redisx.TTLIdempotency
	}
	return s.TTL
}

func (s *RedisIdempotency) pendingTTL() time.Duration {
	if s.PendingTTL <= 0 {
		return redisx.TTLIdemPending
	}
	return s.PendingTTL
}

func (s *RedisIdempotency) Begin(ctx context.Context, companyID int64, key string) (IdemState, error) {
	k := s.key(companyID, key)
	ok, err := s.Redis.SetNX(ctx, k, idemPending, s.pendingTTL()).Result()
	if err != nil {
		return IdemNew, err
	}
	if ok {
		return IdemNew, nil
	}
	v, err := s.Redis.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Begin(ctx, companyID, key)
	}
	if err != nil {
		return IdemNew, err
	}
	if v == idemPending {
		return IdemInProgress, nil
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return IdemNew, fmt.Errorf("idempotency value %q: %w", v, err)
	}
	return IdemDone, nil
}

func (s *RedisIdempotency) Complete(ctx context.Context, companyID int64, key string, orderID int64) error {
	return s.Redis.Set(ctx, s.key(companyID, key), orderID, s.ttl()).Err()
}

func (s *RedisIdempotency) Abort(ctx context.Context, companyID int64, key string) error {
	return s.Redis.Del(ctx, s.key(companyID, key)).Err()
}
