package market

import (
	"time"

	"github.com/google/uuid"
)

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"quantity"`
}

type CreateInput struct {
	BuyerID           string
	Type              OrderType
	Items             []ItemInput
	ScheduledPickupAt *time.Time
	Notes             string
}

// BuildOrder validates a cart against the resolved products and produces
// a pending order with a full price snapshot. Pure: the caller (pg store)
// runs it with the product rows locked, so the stock check here and the
// decrement that follows observe the same values.
//
// All-or-nothing: any unresolvable product or unfulfillable line rejects
// the whole cart before anything is persisted.
func BuildOrder(in CreateInput, products map[string]Product, now time.Time) (*Order, error) {
	if in.BuyerID == "" {
		return nil, Errorf(KindUnauthenticated, "missing buyer identity")
	}
	if len(in.Items) == 0 {
		return nil, Errorf(KindValidation, "order must contain at least one item")
	}
	if in.Type == "" {
		in.Type = OrderRetail
	}
	if in.Type != OrderRetail && in.Type != OrderBulk {
		return nil, Errorf(KindValidation, "unknown order type %q", in.Type)
	}

	sellerID := ""
	items := make([]OrderItem, 0, len(in.Items))
	total := 0
	for _, it := range in.Items {
		if it.Qty < 1 {
			return nil, Errorf(KindValidation, "quantity must be at least 1 for product %s", it.ProductID)
		}
		p, ok := products[it.ProductID]
		if !ok {
			return nil, Errorf(KindNotFound, "product not found: %s", it.ProductID)
		}
		if sellerID == "" {
			sellerID = p.SellerID
		} else if p.SellerID != sellerID {
			return nil, Errorf(KindValidation, "all items must belong to a single seller")
		}
		if err := CheckFulfillable(p, it.Qty, in.Type); err != nil {
			return nil, err
		}
		price := ResolveUnitPrice(p, it.Qty, in.Type)
		items = append(items, OrderItem{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Qty:            it.Qty,
			UnitPriceCents: price,
			Unit:           p.Unit,
			SubtotalCents:  price * it.Qty,
		})
		total += price * it.Qty
	}

	// Lokasi pickup di-snapshot dari listing penjual.
	pickup := ""
	if len(in.Items) > 0 {
		pickup = products[in.Items[0].ProductID].PickupLocation
	}

	now = now.UTC()
	return &Order{
		ID:                uuid.NewString(),
		OrderNumber:       NewOrderNumber(now),
		BuyerID:           in.BuyerID,
		SellerID:          sellerID,
		Status:            StatusPending,
		Type:              in.Type,
		PaymentStatus:     PaymentPending,
		Items:             items,
		TotalCents:        total,
		PickupCode:        NewPickupCode(),
		PickupLocation:    pickup,
		ScheduledPickupAt: in.ScheduledPickupAt,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
