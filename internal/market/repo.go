package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, order_number, buyer_id, seller_id, status, order_type,
	payment_status, total_cents, pickup_code, pickup_location, scheduled_pickup_at,
	notes, payment_ref, paid_at, picked_up_at, cancel_reason, cancelled_at,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.SellerID, &o.Status,
		&o.Type, &o.PaymentStatus, &o.TotalCents, &o.PickupCode, &o.PickupLocation,
		&o.ScheduledPickupAt, &o.Notes, &o.PaymentRef, &o.PaidAt, &o.PickedUpAt,
		&o.CancelReason, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create runs the whole creation workflow in ONE transaction: lock the
// product rows, validate + price the cart, insert the order, then
// conditionally decrement every stock. Either the order exists with all
// reservations, or nothing happened.
func (r *Repo) Create(ctx context.Context, in CreateInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// ambil semua product sekali, di-lock; ORDER BY id supaya dua create
	// yang bentrok lock dalam urutan sama (hindari deadlock)
	ids := make([]any, 0, len(in.Items))
	params := ""
	seen := map[string]bool{}
	for _, it := range in.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		if len(ids) > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", len(ids)+1)
		ids = append(ids, it.ProductID)
	}

	products := map[string]Product{}
	if len(ids) > 0 {
		rows, err := tx.Query(ctx, `SELECT `+productCols+` FROM products
			WHERE id IN (`+params+`) ORDER BY id FOR UPDATE`, ids...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			products[p.ID] = p
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	ord, err := BuildOrder(in, products, time.Now())
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(`+orderCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		ord.ID, ord.OrderNumber, ord.BuyerID, ord.SellerID, ord.Status, ord.Type,
		ord.PaymentStatus, ord.TotalCents, ord.PickupCode, ord.PickupLocation,
		ord.ScheduledPickupAt, ord.Notes, ord.PaymentRef, ord.PaidAt, ord.PickedUpAt,
		ord.CancelReason, ord.CancelledAt, ord.CreatedAt, ord.UpdatedAt,
	); err != nil {
		return nil, err
	}

	for _, it := range ord.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, product_name, qty, unit_price_cents, unit, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			ord.ID, it.ProductID, it.ProductName, it.Qty, it.UnitPriceCents, it.Unit, it.SubtotalCents,
		); err != nil {
			return nil, err
		}
		if err := reserve(ctx, tx, it.ProductID, it.ProductName, it.Qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ord, nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Order, error) {
	ord, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Errorf(KindNotFound, "order not found: %s", orderID)
	}
	if err != nil {
		return nil, err
	}
	if ord.Items, err = r.itemsFor(ctx, orderID); err != nil {
		return nil, err
	}
	return ord, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, product_name, qty, unit_price_cents, unit, subtotal_cents
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Qty, &it.UnitPriceCents, &it.Unit, &it.SubtotalCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Save persists the mutable lifecycle fields, guarded by the status the
// caller read. RowsAffected 0 berarti ada writer lain yang menang.
func (r *Repo) Save(ctx context.Context, ord *Order, prev Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, payment_ref=$4, paid_at=$5,
			picked_up_at=$6, cancel_reason=$7, cancelled_at=$8, updated_at=now()
		WHERE id=$1 AND status=$9`,
		ord.ID, ord.Status, ord.PaymentStatus, ord.PaymentRef, ord.PaidAt,
		ord.PickedUpAt, ord.CancelReason, ord.CancelledAt, prev)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return Errorf(KindConflict, "order %s was modified concurrently", ord.OrderNumber)
	}
	return nil
}

// CancelAndRestore restores the reserved stock of every item and flips
// the order to cancelled, atomically. The order must already carry the
// cancelled fields (domain Cancel ran first).
func (r *Repo) CancelAndRestore(ctx context.Context, ord *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range ord.Items {
		if _, err := adjustStock(ctx, tx, it.ProductID, it.Qty, DirIncrease); err != nil {
			return fmt.Errorf("restore stock for product %s: %w", it.ProductID, err)
		}
	}

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, cancel_reason=$3, cancelled_at=$4, updated_at=now()
		WHERE id=$1 AND status NOT IN ('completed','cancelled')`,
		ord.ID, StatusCancelled, ord.CancelReason, ord.CancelledAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return Errorf(KindConflict, "order %s is already terminal", ord.OrderNumber)
	}
	return tx.Commit(ctx)
}

// ExpiredBefore lists non-terminal orders created before the cutoff,
// items included (the reaper needs them for restoration).
func (r *Repo) ExpiredBefore(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders
		WHERE created_at < $1 AND status NOT IN ('completed','cancelled')
		ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ord := range out {
		if ord.Items, err = r.itemsFor(ctx, ord.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products
		WHERE status IN ('active','out_of_stock') ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeactivateExpiredListings flips listings whose expiry has passed or is
// within the horizon to inactive. Listing housekeeping, bukan bagian
// state machine order.
func (r *Repo) DeactivateExpiredListings(ctx context.Context, deadline time.Time) (int64, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET status='inactive', updated_at=now()
		WHERE expires_at IS NOT NULL AND expires_at <= $1 AND status <> 'inactive'`, deadline)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
