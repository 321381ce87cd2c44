package market

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore keeps products and orders in memory and mirrors the pg
// store's semantics: create reserves stock, cancel restores it.
type fakeStore struct {
	products map[string]*Product
	orders   map[string]*Order
}

func newFakeStore(products ...Product) *fakeStore {
	f := &fakeStore{products: map[string]*Product{}, orders: map[string]*Order{}}
	for _, p := range products {
		cp := p
		f.products[p.ID] = &cp
	}
	return f
}

func (f *fakeStore) Create(ctx context.Context, in CreateInput) (*Order, error) {
	snapshot := map[string]Product{}
	for id, p := range f.products {
		snapshot[id] = *p
	}
	ord, err := BuildOrder(in, snapshot, time.Now())
	if err != nil {
		return nil, err
	}
	for _, it := range ord.Items {
		ApplyAdjust(f.products[it.ProductID], it.Qty, DirDecrease)
	}
	cp := *ord
	f.orders[ord.ID] = &cp
	return ord, nil
}

func (f *fakeStore) Get(ctx context.Context, orderID string) (*Order, error) {
	ord, ok := f.orders[orderID]
	if !ok {
		return nil, Errorf(KindNotFound, "order not found: %s", orderID)
	}
	cp := *ord
	return &cp, nil
}

func (f *fakeStore) Save(ctx context.Context, ord *Order, prev Status) error {
	stored, ok := f.orders[ord.ID]
	if !ok {
		return Errorf(KindNotFound, "order not found: %s", ord.ID)
	}
	if stored.Status != prev {
		return Errorf(KindConflict, "order %s was modified concurrently", ord.OrderNumber)
	}
	cp := *ord
	f.orders[ord.ID] = &cp
	return nil
}

func (f *fakeStore) CancelAndRestore(ctx context.Context, ord *Order) error {
	stored, ok := f.orders[ord.ID]
	if !ok {
		return Errorf(KindNotFound, "order not found: %s", ord.ID)
	}
	if stored.Status.Terminal() {
		return Errorf(KindConflict, "order %s is already terminal", ord.OrderNumber)
	}
	for _, it := range ord.Items {
		ApplyAdjust(f.products[it.ProductID], it.Qty, DirIncrease)
	}
	cp := *ord
	f.orders[ord.ID] = &cp
	return nil
}

type recordedEvent struct {
	topic string
	env   Envelope
}

type recorder struct{ events []recordedEvent }

func (r *recorder) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	var env Envelope
	_ = json.Unmarshal(value, &env)
	r.events = append(r.events, recordedEvent{topic: topic, env: env})
}

func (r *recorder) topics() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.topic)
	}
	return out
}

func newService(store *fakeStore) (*Service, *recorder) {
	rec := &recorder{}
	return &Service{
		Store:       store,
		Producer:    rec,
		Log:         zap.NewNop(),
		ServiceName: "surplus-api-test",
	}, rec
}

var (
	buyer    = Identity{UserID: "b-1", Role: RoleBuyer}
	seller   = Identity{UserID: "seller-1", Role: RoleSeller}
	admin    = Identity{UserID: "adm-1", Role: RoleAdmin}
	stranger = Identity{UserID: "someone-else", Role: RoleBuyer}
)

func boxProduct(stock int) Product {
	return Product{
		ID:               "p-1",
		SellerID:         "seller-1",
		Name:             "rescue box",
		Unit:             "box",
		RetailPriceCents: 500,
		RetailMinQty:     1,
		AvailableStock:   stock,
		Status:           ProductActive,
		PickupLocation:   "back door",
	}
}

func TestCreatePublishesEventsAndNotification(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, rec := newService(store)

	ord, err := svc.Create(context.Background(), buyer, CreateInput{
		Items: []ItemInput{{ProductID: "p-1", Qty: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, store.products["p-1"].AvailableStock)
	assert.Equal(t, []string{TopicOrderCreated, TopicNotifyPickup}, rec.topics())

	// notifikasi bawa pickup code yang sama dengan order
	notif := rec.events[1]
	assert.Equal(t, EventTypePickupNotify, notif.env.EventType)
	p, err := func() (PickupNotifyPayload, error) {
		var v PickupNotifyPayload
		return v, json.Unmarshal(notif.env.Payload, &v)
	}()
	require.NoError(t, err)
	assert.Equal(t, ord.PickupCode, p.PickupCode)
	assert.Equal(t, "back door", p.PickupLocation)
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc, rec := newService(newFakeStore(boxProduct(10)))

	_, err := svc.Create(context.Background(), Identity{}, CreateInput{
		Items: []ItemInput{{ProductID: "p-1", Qty: 1}},
	})
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.Empty(t, rec.events)
}

func TestConfirmIsSellerOnly(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, _ := newService(store)
	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 1}}})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), buyer, ord.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	wrongSeller := Identity{UserID: "seller-99", Role: RoleSeller}
	_, err = svc.Confirm(context.Background(), wrongSeller, ord.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	got, err := svc.Confirm(context.Background(), seller, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestReadyRequiresPaidOrder(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, _ := newService(store)
	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 1}}})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), seller, ord.ID)
	require.NoError(t, err)

	got, err := svc.Ready(context.Background(), seller, ord.ID)
	assert.Equal(t, KindInvalidState, KindOf(err))
	require.NotNil(t, got)
	assert.Equal(t, StatusConfirmed, got.Status)

	_, err = svc.PaymentSuccess(context.Background(), ord.ID, "pay-1")
	require.NoError(t, err)
	got, err = svc.Ready(context.Background(), seller, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForPickup, got.Status)
}

func TestPaymentSuccessIsIdempotencyBoundary(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, _ := newService(store)
	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 1}}})
	require.NoError(t, err)

	got, err := svc.PaymentSuccess(context.Background(), ord.ID, "pay-1")
	require.NoError(t, err)
	// pembayaran meng-confirm order yang masih pending
	assert.Equal(t, StatusConfirmed, got.Status)
	firstPaidAt := *got.PaidAt

	again, err := svc.PaymentSuccess(context.Background(), ord.ID, "pay-1")
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	require.NotNil(t, again)
	assert.Equal(t, firstPaidAt, *again.PaidAt)
	assert.Equal(t, "pay-1", again.PaymentRef)
}

func TestCompleteVerifiesPickupCode(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, rec := newService(store)
	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 1}}})
	require.NoError(t, err)
	_, err = svc.PaymentSuccess(context.Background(), ord.ID, "pay-1")
	require.NoError(t, err)
	_, err = svc.Ready(context.Background(), seller, ord.ID)
	require.NoError(t, err)

	wrong := "0000"
	if ord.PickupCode == wrong {
		wrong = "0001"
	}
	got, err := svc.Complete(context.Background(), seller, ord.ID, wrong)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, StatusReadyForPickup, got.Status)

	stored, _ := store.Get(context.Background(), ord.ID)
	assert.Equal(t, StatusReadyForPickup, stored.Status)

	got, err = svc.Complete(context.Background(), seller, ord.ID, ord.PickupCode)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.PickedUpAt)
	assert.Contains(t, rec.topics(), TopicOrderCompleted)
}

func TestCancelRestoresStockRoundTrip(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, rec := newService(store)

	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 3}}})
	require.NoError(t, err)
	require.Equal(t, 7, store.products["p-1"].AvailableStock)
	require.Equal(t, 1, store.products["p-1"].OrderCount)
	require.Equal(t, 3, store.products["p-1"].TotalSold)

	got, err := svc.Cancel(context.Background(), buyer, ord.ID, "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, "no longer needed", got.CancelReason)

	// stok dan counter balik ke nilai sebelum order
	assert.Equal(t, 10, store.products["p-1"].AvailableStock)
	assert.Equal(t, 0, store.products["p-1"].OrderCount)
	assert.Equal(t, 0, store.products["p-1"].TotalSold)
	assert.Contains(t, rec.topics(), TopicOrderCancelled)
}

func TestCancelAuthorization(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, _ := newService(store)
	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 1}}})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), stranger, ord.ID, "")
	assert.Equal(t, KindForbidden, KindOf(err))

	// admin boleh
	got, err := svc.Cancel(context.Background(), admin, ord.ID, "fraud check")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestTotalAmountImmutableAfterPriceChange(t *testing.T) {
	store := newFakeStore(boxProduct(10))
	svc, _ := newService(store)
	ord, err := svc.Create(context.Background(), buyer, CreateInput{Items: []ItemInput{{ProductID: "p-1", Qty: 2}}})
	require.NoError(t, err)
	require.Equal(t, 1000, ord.TotalCents)

	// harga produk naik setelah order dibuat
	store.products["p-1"].RetailPriceCents = 9999

	got, err := svc.Get(context.Background(), buyer, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, got.TotalCents)
	assert.Equal(t, 500, got.Items[0].UnitPriceCents)
}
