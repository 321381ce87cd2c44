package market

// ResolveUnitPrice picks the unit price for an ordered quantity.
//
// Bulk: ambil tier dengan min_qty terbesar yang masih <= qty (tier paling
// spesifik yang qualified); kalau tidak ada tier yang qualified, fallback
// ke harga retail. Retail: selalu harga retail.
func ResolveUnitPrice(p Product, qty int, typ OrderType) int {
	if typ != OrderBulk {
		return p.RetailPriceCents
	}
	best := -1
	price := p.RetailPriceCents
	for _, t := range p.BulkTiers {
		if t.MinQty <= qty && t.MinQty > best {
			best = t.MinQty
			price = t.PriceCents
		}
	}
	return price
}

// minQtyFor is the minimum-quantity rule per order type: retail_min_qty,
// or the first bulk tier's min_qty for bulk orders.
func minQtyFor(p Product, typ OrderType) int {
	if typ == OrderBulk && len(p.BulkTiers) > 0 {
		return p.BulkTiers[0].MinQty
	}
	return p.RetailMinQty
}

// CheckFulfillable reports why a product cannot fulfil the requested
// quantity; nil when it can.
func CheckFulfillable(p Product, qty int, typ OrderType) error {
	if p.Status != ProductActive && p.Status != ProductDraft {
		return Errorf(KindValidation, "product %q is not available for ordering", p.Name)
	}
	if min := minQtyFor(p, typ); qty < min {
		return Errorf(KindValidation, "product %q requires a minimum quantity of %d", p.Name, min)
	}
	if p.AvailableStock < qty {
		return Errorf(KindValidation, "insufficient stock for product %q: requested %d, available %d", p.Name, qty, p.AvailableStock)
	}
	return nil
}

func CanFulfill(p Product, qty int, typ OrderType) bool {
	return CheckFulfillable(p, qty, typ) == nil
}
