// Package cart implements the shopping cart and its invariants: one
// vendor per cart, variant validation on insert, and merge-by-key upsert
// semantics.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Line is a single cart entry. Its identity key is
// (UserID, ProductID, Size, Color); Size and Color use the empty string
// for "not specified", which is a stable key component rather than a
// wildcard — the same product with and without a size are two lines.
type Line struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	Size      string
	Color     string
	CreatedAt time.Time
}

// Store defines persistence operations for cart lines.
//
// Upsert must be race-safe: two concurrent upserts with the same identity
// key must merge into a single line with the summed quantity, which the
// postgres implementation guarantees through a uniqueness constraint with
// conflict-as-merge semantics.
type Store interface {
	LinesByUser(ctx context.Context, userID string) ([]Line, error)
	// GetLine returns the line only when it belongs to userID; otherwise a
	// fault.KindNotFound error.
	GetLine(ctx context.Context, userID, lineID string) (*Line, error)
	Upsert(ctx context.Context, line *Line) error
	SetQuantity(ctx context.Context, lineID string, quantity int) error
	Delete(ctx context.Context, lineID string) error
	Clear(ctx context.Context, userID string) error
}

// LineView is a cart line joined with its live product snapshot for
// display purposes.
type LineView struct {
	Line
	ProductName string
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// View is the buyer-facing cart summary.
type View struct {
	Lines []LineView
	Total decimal.Decimal
}
