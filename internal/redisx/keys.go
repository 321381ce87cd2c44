package redisx

import "time"

const (
	// Cache ringkas status order: order_status:{order_id} -> StatusSnapshot
	// (status + payment_status + owner ids untuk cek akses di fast-path).
	KeyOrderStatus = "order_status:%s"

	// Dedup event/callback processing: dedup:{service}:{id}
	// id = event_id, atau order_id:payment_ref untuk payment callback.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
