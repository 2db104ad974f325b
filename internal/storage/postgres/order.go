package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/fault"
	"github.com/marzouqa/souq-backend/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, buyer_id, vendor_id, status, total, from_city_id, to_city_id,
		 shipping_price, payment_method, payment_status, remaining_amount,
		 shipping_address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	createOrderItemSQL = `INSERT INTO order_items
		(id, order_id, product_id, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT id, buyer_id, vendor_id, status, total, from_city_id, to_city_id,
			shipping_price, payment_method, payment_status, remaining_amount,
			shipping_address, phone, created_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, order_id, product_id, quantity, price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	cancelOrderSQL = `UPDATE orders SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status NOT IN ('delivered', 'cancelled')`

	getOrderStatusSQL = `SELECT status FROM orders WHERE id = $1`

	setOrderPaymentSQL = `UPDATE orders SET payment_status = $2, remaining_amount = $3, updated_at = now()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given db.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order and its items together.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order insert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.BuyerID, o.VendorID, o.Status, o.Total, o.FromCityID, o.ToCityID,
		o.ShippingPrice, o.PaymentMethod, o.PaymentStatus, o.RemainingAmount,
		o.ShippingAddress, o.Phone,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, createOrderItemSQL,
			it.ID, o.ID, it.ProductID, it.Quantity, it.Price, it.Subtotal)
		if err != nil {
			return fmt.Errorf("creating item for order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns the order aggregate including its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.db.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.BuyerID, &o.VendorID, &o.Status, &o.Total, &o.FromCityID, &o.ToCityID,
		&o.ShippingPrice, &o.PaymentMethod, &o.PaymentStatus, &o.RemainingAmount,
		&o.ShippingAddress, &o.Phone, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.NotFound("order %s not found", id)
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err := r.db.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.Subtotal)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus applies from -> to only while the order is still in from.
// The conditional UPDATE makes a concurrent transition lose cleanly
// instead of overwriting it.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.db.Exec(ctx, updateOrderStatusSQL, id, from, to)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionLost(ctx, id)
	}
	return nil
}

// MarkCancelled moves the order to cancelled unless it is already in a
// terminal state. Callers refund only after this reports success, so a
// racing second cancel cannot refund again.
func (r *OrderRepository) MarkCancelled(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, cancelOrderSQL, id)
	if err != nil {
		return fmt.Errorf("cancelling order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionLost(ctx, id)
	}
	return nil
}

// transitionLost explains a conditional status UPDATE that matched no
// row: either the order does not exist or its status moved underneath
// the caller.
func (r *OrderRepository) transitionLost(ctx context.Context, id string) error {
	var current order.Status
	err := r.db.QueryRow(ctx, getOrderStatusSQL, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fault.NotFound("order %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("reading status of order %q: %w", id, err)
	}
	return fault.InvalidState("order is already %s", current)
}

// SetPayment updates the settlement state and remaining amount.
func (r *OrderRepository) SetPayment(ctx context.Context, id string, ps order.PaymentStatus, remaining decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, setOrderPaymentSQL, id, ps, remaining)
	if err != nil {
		return fmt.Errorf("updating payment of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("order %s not found", id)
	}
	return nil
}
