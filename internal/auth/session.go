package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/foodies-backoffice/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("session not found")

// SessionStore keeps bearer tokens in Redis. Logging in is handled elsewhere; this
// store only issues and resolves tokens.
type SessionStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (s *SessionStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf(redisx.KeySession, token)
	if err := s.Redis.Set(ctx, key, userID, s.TTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SessionStore) Lookup(ctx context.Context, token string) (int64, error) {
	v, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeySession, token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %q: %w", token, err)
	}
	return id, nil
}

func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}
