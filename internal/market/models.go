package market

import "time"

type ProductStatus string

const (
	ProductActive     ProductStatus = "active"
	ProductInactive   ProductStatus = "inactive"
	ProductDraft      ProductStatus = "draft"
	ProductOutOfStock ProductStatus = "out_of_stock"
)

// BulkTier adalah price break grosir: harga satuan tetap untuk komitmen
// minimal MinQty unit.
type BulkTier struct {
	MinQty     int `json:"min_qty"`
	PriceCents int `json:"price_cents"`
}

type Product struct {
	ID                string        `json:"id"`
	SellerID          string        `json:"seller_id"`
	Name              string        `json:"name"`
	Unit              string        `json:"unit"`
	RetailPriceCents  int           `json:"retail_price_cents"`
	RetailMinQty      int           `json:"retail_min_qty"`
	BulkTiers         []BulkTier    `json:"bulk_tiers,omitempty"`
	AvailableStock    int           `json:"available_stock"`
	LowStockThreshold int           `json:"low_stock_threshold"`
	OrderCount        int           `json:"order_count"`
	TotalSold         int           `json:"total_sold"`
	Status            ProductStatus `json:"status"`
	PickupLocation    string        `json:"pickup_location"`
	ExpiresAt         *time.Time    `json:"expires_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type OrderType string

const (
	OrderRetail OrderType = "retail"
	OrderBulk   OrderType = "bulk"
)

type OrderItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"` // snapshot saat order dibuat
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Unit           string `json:"unit"`
	SubtotalCents  int    `json:"subtotal_cents"`
}

type Order struct {
	ID                string        `json:"id"`
	OrderNumber       string        `json:"order_number"`
	BuyerID           string        `json:"buyer_id"`
	SellerID          string        `json:"seller_id"`
	Status            Status        `json:"status"`
	Type              OrderType     `json:"order_type"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	Items             []OrderItem   `json:"items"`
	TotalCents        int           `json:"total_cents"`
	PickupCode        string        `json:"pickup_code"`
	PickupLocation    string        `json:"pickup_location"`
	ScheduledPickupAt *time.Time    `json:"scheduled_pickup_at,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	PaymentRef        string        `json:"payment_ref,omitempty"`
	PaidAt            *time.Time    `json:"paid_at,omitempty"`
	PickedUpAt        *time.Time    `json:"picked_up_at,omitempty"`
	CancelReason      string        `json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Identity datang dari gateway (header), bukan dari session milik service ini.
type Identity struct {
	UserID string
	Role   Role
}

// CanManage: pemilik listing (seller) atau admin.
func (i Identity) CanManage(sellerID string) bool {
	switch i.Role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return i.UserID == sellerID
	default:
		return false
	}
}

// CanView: buyer pemilik order juga boleh, selain seller/admin.
func (i Identity) CanView(buyerID, sellerID string) bool {
	return i.CanManage(sellerID) || i.UserID == buyerID
}
