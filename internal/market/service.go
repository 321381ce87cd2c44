package market

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/pasarhemat/pasar-surplus.git/internal/kafka"
	"github.com/pasarhemat/pasar-surplus.git/internal/redisx"
)

// OrderStore is what the workflow needs from persistence; *Repo is the
// pg implementation, tests plug an in-memory one.
type OrderStore interface {
	Create(ctx context.Context, in CreateInput) (*Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)
	Save(ctx context.Context, ord *Order, prev Status) error
	CancelAndRestore(ctx context.Context, ord *Order) error
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store       OrderStore
	Redis       *redis.Client // optional
	Producer    Publisher     // optional
	Log         *zap.Logger
	ServiceName string
}

type traceKey struct{}

func WithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

func traceFrom(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}

// Create runs the order creation workflow. Event publish, notification
// and status cache are best-effort: once the transaction committed the
// order stands, apapun yang terjadi pada side effect.
func (s *Service) Create(ctx context.Context, ident Identity, in CreateInput) (*Order, error) {
	if ident.UserID == "" {
		return nil, Errorf(KindUnauthenticated, "missing buyer identity")
	}
	in.BuyerID = ident.UserID

	ord, err := s.Store.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, ord)
	s.publish(ctx, TopicOrderCreated, EventTypeOrderCreated, ord.ID, OrderCreatedPayload{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		BuyerID:     ord.BuyerID,
		SellerID:    ord.SellerID,
		OrderType:   ord.Type,
		Items:       ItemQtys(ord.Items),
		TotalCents:  ord.TotalCents,
	})
	// pickup confirmation ke buyer; gagal kirim bukan alasan gagal order
	s.publish(ctx, TopicNotifyPickup, EventTypePickupNotify, ord.ID, PickupNotifyPayload{
		OrderID:           ord.ID,
		OrderNumber:       ord.OrderNumber,
		BuyerID:           ord.BuyerID,
		PickupCode:        ord.PickupCode,
		PickupLocation:    ord.PickupLocation,
		ScheduledPickupAt: ord.ScheduledPickupAt,
	})
	return ord, nil
}

func (s *Service) Get(ctx context.Context, ident Identity, orderID string) (*Order, error) {
	ord, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.CanView(ord.BuyerID, ord.SellerID) {
		return nil, Errorf(KindForbidden, "not allowed to view this order")
	}
	return ord, nil
}

// Confirm: seller acknowledges a pending order. Seller/admin only.
func (s *Service) Confirm(ctx context.Context, ident Identity, orderID string) (*Order, error) {
	ord, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.CanManage(ord.SellerID) {
		return ord, Errorf(KindForbidden, "only the seller can confirm an order")
	}
	prev := ord.Status
	if err := ord.Confirm(); err != nil {
		return ord, err
	}
	if err := s.Store.Save(ctx, ord, prev); err != nil {
		return ord, err
	}
	s.cacheStatus(ctx, ord)
	return ord, nil
}

// Ready: seller packed the order; requires payment first.
func (s *Service) Ready(ctx context.Context, ident Identity, orderID string) (*Order, error) {
	ord, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.CanManage(ord.SellerID) {
		return ord, Errorf(KindForbidden, "only the seller can mark an order ready")
	}
	prev := ord.Status
	if err := ord.MarkReady(); err != nil {
		return ord, err
	}
	if err := s.Store.Save(ctx, ord, prev); err != nil {
		return ord, err
	}
	s.cacheStatus(ctx, ord)
	return ord, nil
}

// Complete verifies the pickup code at handoff and closes the order.
func (s *Service) Complete(ctx context.Context, ident Identity, orderID, suppliedCode string) (*Order, error) {
	ord, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.CanManage(ord.SellerID) {
		return ord, Errorf(KindForbidden, "only the seller can complete a pickup")
	}
	prev := ord.Status
	if err := ord.CompletePickup(suppliedCode, time.Now()); err != nil {
		return ord, err
	}
	if err := s.Store.Save(ctx, ord, prev); err != nil {
		return ord, err
	}
	s.cacheStatus(ctx, ord)
	s.publish(ctx, TopicOrderCompleted, EventTypeOrderCompleted, ord.ID, OrderCompletedPayload{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		PickedUpAt:  *ord.PickedUpAt,
	})
	return ord, nil
}

// Cancel is open to the buyer, the seller, or an admin; it restores every
// reserved item in the same transaction that flips the status.
func (s *Service) Cancel(ctx context.Context, ident Identity, orderID, reason string) (*Order, error) {
	ord, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ident.CanView(ord.BuyerID, ord.SellerID) {
		return ord, Errorf(KindForbidden, "not allowed to cancel this order")
	}
	if err := ord.Cancel(reason, time.Now()); err != nil {
		return ord, err
	}
	if err := s.Store.CancelAndRestore(ctx, ord); err != nil {
		return ord, err
	}
	s.cacheStatus(ctx, ord)
	s.publish(ctx, TopicOrderCancelled, EventTypeOrderCancelled, ord.ID, OrderCancelledPayload{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Reason:      ord.CancelReason,
		CancelledBy: ident.UserID,
	})
	return ord, nil
}

// PaymentSuccess handles the external gateway callback. Sudah paid ->
// conflict, tidak pernah double-stamp paid_at.
func (s *Service) PaymentSuccess(ctx context.Context, orderID, reference string) (*Order, error) {
	// fast-path dedup; DB tetap sumber kebenaran
	dkey := fmt.Sprintf(redisx.KeyDedup, "payment", orderID+":"+reference)
	if s.Redis != nil {
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil, Errorf(KindConflict, "payment already processed")
		}
	}

	ord, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := ord.Status
	if err := ord.MarkPaid(reference, time.Now()); err != nil {
		return ord, err
	}
	if err := s.Store.Save(ctx, ord, prev); err != nil {
		return ord, err
	}
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	s.cacheStatus(ctx, ord)
	return ord, nil
}

// StatusSnapshot is what the status cache stores. Owner ids ride along so
// the cache fast-path applies the same access check as the DB path; they
// are never part of the HTTP response.
type StatusSnapshot struct {
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	BuyerID       string        `json:"buyer_id"`
	SellerID      string        `json:"seller_id"`
}

func SnapshotOf(ord *Order) StatusSnapshot {
	return StatusSnapshot{
		Status:        ord.Status,
		PaymentStatus: ord.PaymentStatus,
		BuyerID:       ord.BuyerID,
		SellerID:      ord.SellerID,
	}
}

func (s *Service) cacheStatus(ctx context.Context, ord *Order) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, ord.ID)
	body := kafkax.MustMarshal(SnapshotOf(ord))
	if err := s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil && s.Log != nil {
		s.Log.Debug("status cache set failed", zap.String("order_id", ord.ID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceFrom(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Producer.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
