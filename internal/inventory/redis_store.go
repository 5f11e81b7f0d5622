package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ariefcatur/foodies-backoffice/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// DedupScope namespaces the processed-event keys of the alerts consumer.
const DedupScope = "alerts"

type RedisAlertStore struct {
	Redis   *redis.Client
	Service string
}

var _ AlertStore = (*RedisAlertStore)(nil)

func (s *RedisAlertStore) dedupKey(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, s.Service, eventID)
}

func (s *RedisAlertStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.Redis.SetNX(ctx, s.dedupKey(eventID), 1, redisx.TTLDedup).Result()
}

func (s *RedisAlertStore) Unmark(ctx context.Context, eventID string) error {
	return s.Redis.Del(ctx, s.dedupKey(eventID)).Err()
}

// SetLowStock records the latest remaining stock, higher or lower than before. Events of
// one company share a partition and are applied in order, so the last write is current.
func (s *RedisAlertStore) SetLowStock(ctx context.Context, companyID, productID int64, remaining int) error {
	return s.Redis.ZAdd(ctx, fmt.Sprintf(redisx.KeyLowStock, companyID), redis.Z{
		Score:  float64(remaining),
		Member: strconv.FormatInt(productID, 10),
	}).Err()
}

func (s *RedisAlertStore) ClearLowStock(ctx context.Context, companyID, productID int64) error {
	return s.Redis.ZRem(ctx, fmt.Sprintf(redisx.KeyLowStock, companyID), strconv.FormatInt(productID, 10)).Err()
}

func (s *RedisAlertStore) LowStock(ctx context.Context, companyID int64) ([]LowStockItem, error) {
	zs, err := s.Redis.ZRangeWithScores(ctx, fmt.Sprintf(redisx.KeyLowStock, companyID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LowStockItem, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, LowStockItem{ProductID: id, Remaining: int(z.Score)})
	}
	return out, nil
}
