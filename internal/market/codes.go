package market

import (
	"fmt"
	"math/rand"
	"time"
)

// Suffix tanpa 0/O/1/I/L biar gampang dibaca di struk.
const suffixChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewOrderNumber builds a human-readable order number: timestamp
// component plus a random suffix. Collisions are negligible and caught by
// the unique index on orders.order_number anyway.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = suffixChars[rand.Intn(len(suffixChars))]
	}
	return fmt.Sprintf("PS-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

// NewPickupCode returns exactly 4 numeric digits (1000-9999). The code is
// not globally unique; it only has meaning together with the order at
// handoff time.
func NewPickupCode() string {
	return fmt.Sprintf("%04d", 1000+rand.Intn(9000))
}
