package redisx

import "time"

const (
	// session:{token} -> user id
	KeySession = "session:%s"

	// idem:order:place:{company_id}:{idempotency_key} -> "pending" | order id
	KeyIdemOrderPlace = "idem:order:place:%d:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// lowstock:{company_id} sorted set, member = product id, score = remaining stock
	KeyLowStock = "lowstock:%d"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
