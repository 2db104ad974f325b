package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
	"github.com/marzouqa/souq-backend/internal/domain/fault"
)

const (
	linesByUserSQL = `SELECT id, user_id, product_id, quantity, size, color, created_at
		FROM cart_lines WHERE user_id = $1 ORDER BY created_at, id`

	getLineSQL = `SELECT id, user_id, product_id, quantity, size, color, created_at
		FROM cart_lines WHERE id = $1 AND user_id = $2`

	// The unique constraint on (user_id, product_id, size, color) makes two
	// concurrent adds of the same identity converge on one row with the
	// summed quantity.
	upsertLineSQL = `INSERT INTO cart_lines (id, user_id, product_id, quantity, size, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, product_id, size, color)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING id, quantity`

	setLineQuantitySQL = `UPDATE cart_lines SET quantity = $2 WHERE id = $1`

	deleteLineSQL = `DELETE FROM cart_lines WHERE id = $1`

	clearCartSQL = `DELETE FROM cart_lines WHERE user_id = $1`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store backed by PostgreSQL.
type CartStore struct {
	db DB
}

// NewCartStore returns a CartStore that uses the given db.
func NewCartStore(db DB) *CartStore {
	return &CartStore{db: db}
}

// LinesByUser returns the user's cart lines in insertion order.
func (s *CartStore) LinesByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := s.db.Query(ctx, linesByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// GetLine returns the line only when it belongs to userID.
func (s *CartStore) GetLine(ctx context.Context, userID, lineID string) (*cart.Line, error) {
	rows, err := s.db.Query(ctx, getLineSQL, lineID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart line %q: %w", lineID, err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.NotFound("cart line %s not found", lineID)
		}
		return nil, fmt.Errorf("getting cart line %q: %w", lineID, err)
	}
	return &l, nil
}

// Upsert inserts the line or merges its quantity into the existing row
// with the same (user, product, size, color) identity. The line's ID and
// Quantity are updated to the stored row's values.
func (s *CartStore) Upsert(ctx context.Context, line *cart.Line) error {
	err := s.db.QueryRow(ctx, upsertLineSQL,
		line.ID, line.UserID, line.ProductID, line.Quantity, line.Size, line.Color,
	).Scan(&line.ID, &line.Quantity)
	if err != nil {
		return fmt.Errorf("upserting cart line for %q: %w", line.UserID, err)
	}
	return nil
}

// SetQuantity overwrites the quantity of an existing line.
func (s *CartStore) SetQuantity(ctx context.Context, lineID string, quantity int) error {
	tag, err := s.db.Exec(ctx, setLineQuantitySQL, lineID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("cart line %s not found", lineID)
	}
	return nil
}

// Delete removes a single line.
func (s *CartStore) Delete(ctx context.Context, lineID string) error {
	if _, err := s.db.Exec(ctx, deleteLineSQL, lineID); err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	return nil
}

// Clear removes all of the user's lines.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", userID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.Size, &l.Color, &l.CreatedAt)
	return l, err
}
