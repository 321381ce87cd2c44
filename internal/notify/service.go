// Package notify consumes pickup notification events. The real delivery
// channel (email/push) lives outside this repo; this service validates,
// dedups and acknowledges.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/pasarhemat/pasar-surplus.git/internal/kafka"
	"github.com/pasarhemat/pasar-surplus.git/internal/market"
	"github.com/pasarhemat/pasar-surplus.git/internal/redisx"
)

type Service struct {
	Redis *redis.Client // optional, dedup per event id
	Log   *zap.Logger
}

// HandlePickupNotify dipasang sebagai handler consumer topic notify.pickup.
func (s *Service) HandlePickupNotify(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != market.EventTypePickupNotify {
		return nil // ignore
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[market.PickupNotifyPayload](env.Payload)
	if err != nil {
		return err
	}

	// Di sini email/push provider dipanggil; untuk service ini cukup
	// catat bahwa notifikasi terkirim.
	s.Log.Info("pickup confirmation sent",
		zap.String("order_id", p.OrderID),
		zap.String("order_number", p.OrderNumber),
		zap.String("buyer_id", p.BuyerID),
		zap.String("pickup_location", p.PickupLocation))
	return nil
}
