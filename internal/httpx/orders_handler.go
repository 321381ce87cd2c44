package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pasarhemat/pasar-surplus.git/internal/market"
	"github.com/pasarhemat/pasar-surplus.git/internal/redisx"
)

type ProductLister interface {
	ListProducts(ctx context.Context) ([]market.Product, error)
}

// StockAdjuster is satisfied by *market.Ledger.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID string, qty int, dir market.Direction) (market.Product, error)
	GetProduct(ctx context.Context, productID string) (market.Product, error)
}

type OrdersHandler struct {
	Svc      *market.Service
	Products ProductLister
	Ledger   StockAdjuster
	Redis    *redis.Client // optional, status fast-path
	Log      *zap.Logger
	Dev      bool
}

type itemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderReq struct {
	Items               []itemReq        `json:"items"`
	OrderType           market.OrderType `json:"orderType"`
	ScheduledPickupTime *time.Time       `json:"scheduledPickupTime,omitempty"`
	Notes               string           `json:"notes,omitempty"`
}

type completeReq struct {
	PickupCode string `json:"pickupCode"`
}

type cancelReq struct {
	Reason string `json:"reason,omitempty"`
}

type paymentReq struct {
	Reference string `json:"reference"`
}

type orderResp struct {
	Success bool          `json:"success"`
	Order   *market.Order `json:"order"`
}

type adjustStockReq struct {
	Quantity  int              `json:"quantity"`
	Direction market.Direction `json:"direction"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	// callback gateway pembayaran, identitas user tidak ada di sini
	r.Post("/orders/{id}/payment-success", h.paymentSuccess)

	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getOrderStatus)
		r.Patch("/orders/{id}/confirm", h.confirm)
		r.Patch("/orders/{id}/ready", h.ready)
		r.Patch("/orders/{id}/complete", h.complete)
		r.Patch("/orders/{id}/cancel", h.cancel)
		r.Patch("/products/{id}/stock", h.adjustStock)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindValidation, "invalid json"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ctx = market.WithTrace(ctx, middleware.GetReqID(r.Context()))

	items := make([]market.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, market.ItemInput{ProductID: it.ProductID, Qty: it.Quantity})
	}
	ord, err := h.Svc.Create(ctx, identityFrom(r.Context()), market.CreateInput{
		Type:              req.OrderType,
		Items:             items,
		ScheduledPickupAt: req.ScheduledPickupTime,
		Notes:             req.Notes,
	})
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, orderResp{Success: true, Order: ord})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ord, err := h.Svc.Get(ctx, identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, orderResp{Success: true, Order: ord})
}

type statusResp struct {
	Status        market.Status        `json:"status"`
	PaymentStatus market.PaymentStatus `json:"payment_status"`
}

// getOrderStatus: jalur ringan untuk polling client; cache dulu, DB
// belakangan. Cache hit lewat cek kepemilikan yang sama dengan jalur DB.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ident := identityFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var snap market.StatusSnapshot
			if err := json.Unmarshal([]byte(s), &snap); err == nil {
				if !ident.CanView(snap.BuyerID, snap.SellerID) {
					writeErr(w, h.Log, h.Dev, market.Errorf(market.KindForbidden, "not allowed to view this order"), nil)
					return
				}
				writeJSON(w, http.StatusOK, statusResp{Status: snap.Status, PaymentStatus: snap.PaymentStatus})
				return
			}
		}
	}

	ord, err := h.Svc.Get(ctx, ident, orderID)
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, nil)
		return
	}
	snap := market.SnapshotOf(ord)
	if h.Redis != nil {
		if body, err := json.Marshal(snap); err == nil {
			_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, statusResp{Status: snap.Status, PaymentStatus: snap.PaymentStatus})
}

func (h *OrdersHandler) confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, ident market.Identity, id string) (*market.Order, error) {
		return h.Svc.Confirm(ctx, ident, id)
	})
}

func (h *OrdersHandler) ready(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, ident market.Identity, id string) (*market.Order, error) {
		return h.Svc.Ready(ctx, ident, id)
	})
}

func (h *OrdersHandler) complete(w http.ResponseWriter, r *http.Request) {
	var req completeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindValidation, "invalid json"), nil)
		return
	}
	h.transition(w, r, func(ctx context.Context, ident market.Identity, id string) (*market.Order, error) {
		return h.Svc.Complete(ctx, ident, id, req.PickupCode)
	})
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body optional
	}
	h.transition(w, r, func(ctx context.Context, ident market.Identity, id string) (*market.Order, error) {
		return h.Svc.Cancel(ctx, ident, id, req.Reason)
	})
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, ident market.Identity, id string) (*market.Order, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ctx = market.WithTrace(ctx, middleware.GetReqID(r.Context()))

	ord, err := fn(ctx, identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, ord)
		return
	}
	writeJSON(w, http.StatusOK, orderResp{Success: true, Order: ord})
}

func (h *OrdersHandler) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindValidation, "invalid json"), nil)
		return
	}
	if req.Reference == "" {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindValidation, "missing payment reference"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Svc.PaymentSuccess(ctx, chi.URLParam(r, "id"), req.Reference)
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, ord)
		return
	}
	writeJSON(w, http.StatusOK, orderResp{Success: true, Order: ord})
}

func (h *OrdersHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Ledger.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// adjustStock: admin stock edit, lewat primitive ledger yang sama dengan
// jalur order/cancel.
func (h *OrdersHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	if ident := identityFrom(r.Context()); ident.Role != market.RoleAdmin {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindForbidden, "admin only"), nil)
		return
	}
	var req adjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindValidation, "invalid json"), nil)
		return
	}
	if req.Direction != market.DirIncrease && req.Direction != market.DirDecrease {
		writeErr(w, h.Log, h.Dev, market.Errorf(market.KindValidation, "direction must be increase or decrease"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Ledger.AdjustStock(ctx, chi.URLParam(r, "id"), req.Quantity, req.Direction)
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.ListProducts(ctx)
	if err != nil {
		writeErr(w, h.Log, h.Dev, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
