package market

import (
	"encoding/json"
	"time"
)

const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderCompleted = "OrderCompleted"
	EventTypePickupNotify   = "PickupNotify"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "surplus-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

// ---- Payload tipe per event ----

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	OrderType   OrderType `json:"order_type"`
	Items       []ItemQty `json:"items"`
	TotalCents  int       `json:"total_cents"`
}

type OrderCancelledPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"` // user id atau "system"
}

type OrderCompletedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PickedUpAt  time.Time `json:"picked_up_at"`
}

// PickupNotifyPayload feeds the notifier; the actual channel (email, push)
// lives outside this repo.
type PickupNotifyPayload struct {
	OrderID           string     `json:"order_id"`
	OrderNumber       string     `json:"order_number"`
	BuyerID           string     `json:"buyer_id"`
	PickupCode        string     `json:"pickup_code"`
	PickupLocation    string     `json:"pickup_location"`
	ScheduledPickupAt *time.Time `json:"scheduled_pickup_at,omitempty"`
}

func ItemQtys(items []OrderItem) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	return out
}
