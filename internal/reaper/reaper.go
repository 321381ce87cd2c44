// Package reaper owns the periodic sweeps: force-cancelling stale
// unfulfilled orders (with stock restoration) and deactivating expired
// product listings.
package reaper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/pasarhemat/pasar-surplus.git/internal/kafka"
	"github.com/pasarhemat/pasar-surplus.git/internal/market"
)

type OrderStore interface {
	ExpiredBefore(ctx context.Context, cutoff time.Time) ([]*market.Order, error)
	CancelAndRestore(ctx context.Context, ord *market.Order) error
}

type ListingStore interface {
	DeactivateExpiredListings(ctx context.Context, deadline time.Time) (int64, error)
}

type Reaper struct {
	Orders   OrderStore
	Listings ListingStore
	Producer market.Publisher // optional
	Log      *zap.Logger

	ReapAfter      time.Duration // default 24h
	ListingHorizon time.Duration // default 24h
	ServiceName    string

	cron *cron.Cron
}

// Start registers both sweeps on an owned cron scheduler. The specs come
// from config ("@hourly" / "@daily" by default).
func (r *Reaper) Start(orderSpec, listingSpec string) error {
	c := cron.New()
	if _, err := c.AddFunc(orderSpec, func() { r.ReapExpiredOrders(context.Background()) }); err != nil {
		return err
	}
	if _, err := c.AddFunc(listingSpec, func() { r.SweepExpiredListings(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	r.Log.Info("reaper started",
		zap.String("order_spec", orderSpec), zap.String("listing_spec", listingSpec),
		zap.Duration("reap_after", r.reapAfter()))
	return nil
}

// Stop waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

func (r *Reaper) reapAfter() time.Duration {
	if r.ReapAfter > 0 {
		return r.ReapAfter
	}
	return 24 * time.Hour
}

func (r *Reaper) listingHorizon() time.Duration {
	if r.ListingHorizon > 0 {
		return r.ListingHorizon
	}
	return 24 * time.Hour
}

// ReapExpiredOrders cancels every non-terminal order older than
// ReapAfter, restoring its reserved stock. Satu order gagal tidak boleh
// menghentikan sisanya: error di-log per order, sweep jalan terus.
func (r *Reaper) ReapExpiredOrders(ctx context.Context) (reaped int, err error) {
	cutoff := time.Now().Add(-r.reapAfter())
	batch, err := r.Orders.ExpiredBefore(ctx, cutoff)
	if err != nil {
		r.Log.Error("reap sweep: list expired orders failed", zap.Error(err))
		return 0, err
	}

	for _, ord := range batch {
		if err := ord.Cancel(market.ReasonExpired, time.Now()); err != nil {
			// sudah terminal (writer lain menang); bukan kegagalan sweep
			r.Log.Info("reap skipped", zap.String("order_id", ord.ID), zap.Error(err))
			continue
		}
		if err := r.Orders.CancelAndRestore(ctx, ord); err != nil {
			r.Log.Error("reap failed", zap.String("order_id", ord.ID),
				zap.String("order_number", ord.OrderNumber), zap.Error(err))
			continue
		}
		reaped++
		r.publishCancelled(ord)
	}

	r.Log.Info("reap sweep done", zap.Int("expired", len(batch)), zap.Int("reaped", reaped))
	return reaped, nil
}

// SweepExpiredListings deactivates listings whose expiry date has passed
// or falls within the horizon.
func (r *Reaper) SweepExpiredListings(ctx context.Context) (int64, error) {
	n, err := r.Listings.DeactivateExpiredListings(ctx, time.Now().Add(r.listingHorizon()))
	if err != nil {
		r.Log.Error("listing sweep failed", zap.Error(err))
		return 0, err
	}
	r.Log.Info("listing sweep done", zap.Int64("deactivated", n))
	return n, nil
}

func (r *Reaper) publishCancelled(ord *market.Order) {
	if r.Producer == nil {
		return
	}
	ev := market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     market.EventTypeOrderCancelled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.ServiceName,
		CorrelationID: ord.ID,
		Payload: kafkax.MustMarshal(market.OrderCancelledPayload{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			Reason:      ord.CancelReason,
			CancelledBy: "system",
		}),
	}
	r.Producer.Publish(market.TopicOrderCancelled, market.PartitionKey(ord.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(market.EventTypeOrderCancelled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
