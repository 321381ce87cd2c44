package market

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Direction string

const (
	DirIncrease Direction = "increase"
	DirDecrease Direction = "decrease"
)

// querier dipenuhi pgxpool.Pool maupun pgx.Tx, supaya SQL ledger bisa
// dipakai standalone ataupun di dalam transaksi create/cancel.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ApplyAdjust mirrors the ledger UPDATE statements for in-memory copies
// of a product (fakes, tests). Semantics:
//
//	decrease: stock = max(0, stock-qty), order_count+1, total_sold+qty
//	increase: stock+qty, order_count = max(0, order_count-1),
//	          total_sold = max(0, total_sold-qty)
//
// increase is strictly "undo an order" (cancel/expiry restore), not a
// restock API. Derived status is recomputed on every mutation.
func ApplyAdjust(p *Product, qty int, dir Direction) {
	switch dir {
	case DirDecrease:
		p.AvailableStock -= qty
		if p.AvailableStock < 0 {
			p.AvailableStock = 0
		}
		p.OrderCount++
		p.TotalSold += qty
	case DirIncrease:
		p.AvailableStock += qty
		p.OrderCount--
		if p.OrderCount < 0 {
			p.OrderCount = 0
		}
		p.TotalSold -= qty
		if p.TotalSold < 0 {
			p.TotalSold = 0
		}
	}
	if p.AvailableStock <= 0 {
		p.Status = ProductOutOfStock
	} else if p.Status == ProductOutOfStock {
		p.Status = ProductActive
	}
}

const productCols = `id, seller_id, name, unit, retail_price_cents, retail_min_qty,
	bulk_tiers, available_stock, low_stock_threshold, order_count, total_sold,
	status, pickup_location, expires_at, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Unit, &p.RetailPriceCents,
		&p.RetailMinQty, &p.BulkTiers, &p.AvailableStock, &p.LowStockThreshold,
		&p.OrderCount, &p.TotalSold, &p.Status, &p.PickupLocation, &p.ExpiresAt,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Satu statement atomik per arah; status turunan dihitung di statement
// yang sama, bukan round-trip kedua.
const sqlAdjustDecrease = `
	UPDATE products SET
		available_stock = GREATEST(available_stock - $2, 0),
		order_count = order_count + 1,
		total_sold = total_sold + $2,
		status = CASE
			WHEN GREATEST(available_stock - $2, 0) <= 0 THEN 'out_of_stock'
			WHEN status = 'out_of_stock' THEN 'active'
			ELSE status END,
		updated_at = now()
	WHERE id = $1
	RETURNING ` + productCols

const sqlAdjustIncrease = `
	UPDATE products SET
		available_stock = available_stock + $2,
		order_count = GREATEST(order_count - 1, 0),
		total_sold = GREATEST(total_sold - $2, 0),
		status = CASE
			WHEN available_stock + $2 <= 0 THEN 'out_of_stock'
			WHEN status = 'out_of_stock' THEN 'active'
			ELSE status END,
		updated_at = now()
	WHERE id = $1
	RETURNING ` + productCols

func adjustStock(ctx context.Context, q querier, productID string, qty int, dir Direction) (Product, error) {
	if qty < 1 {
		return Product{}, Errorf(KindValidation, "adjust quantity must be at least 1")
	}
	sql := sqlAdjustDecrease
	if dir == DirIncrease {
		sql = sqlAdjustIncrease
	}
	p, err := scanProduct(q.QueryRow(ctx, sql, productID, qty))
	if err == pgx.ErrNoRows {
		return Product{}, Errorf(KindNotFound, "product not found: %s", productID)
	}
	return p, err
}

// reserve is the conditional decrement used at order creation: it only
// succeeds when enough stock remains, so a lost race surfaces as
// insufficient stock instead of a silently clamped oversell.
func reserve(ctx context.Context, q querier, productID, productName string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE products SET
			available_stock = available_stock - $2,
			order_count = order_count + 1,
			total_sold = total_sold + $2,
			status = CASE WHEN available_stock - $2 <= 0 THEN 'out_of_stock' ELSE status END,
			updated_at = now()
		WHERE id = $1 AND available_stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return Errorf(KindValidation, "insufficient stock for product %q", productName)
	}
	return nil
}

// Ledger owns authoritative stock counts; all stock mutation goes through
// here or through the tx-scoped helpers above.
type Ledger struct{ DB *pgxpool.Pool }

func (l *Ledger) AdjustStock(ctx context.Context, productID string, qty int, dir Direction) (Product, error) {
	return adjustStock(ctx, l.DB, productID, qty, dir)
}

func (l *Ledger) GetProduct(ctx context.Context, productID string) (Product, error) {
	p, err := scanProduct(l.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, productID))
	if err == pgx.ErrNoRows {
		return Product{}, Errorf(KindNotFound, "product not found: %s", productID)
	}
	return p, err
}
