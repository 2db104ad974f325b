// Package shipping prices delivery between cities over directed,
// individually priced lanes.
package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// Lane is a directed, priced route between two cities. A lane A→B says
// nothing about B→A; each ordered pair is configured independently and is
// unique.
type Lane struct {
	ID         string
	FromCityID string
	ToCityID   string
	Price      decimal.Decimal
}

// Repository provides lane lookup and administration.
type Repository interface {
	// PriceOf returns the price of the directed lane (from, to). It returns
	// a fault.KindNotFound error when no lane is configured for the pair.
	PriceOf(ctx context.Context, fromCityID, toCityID string) (decimal.Decimal, error)
	// Create persists a new lane. It returns a fault.KindConflict error
	// when a lane for the same ordered pair already exists.
	Create(ctx context.Context, lane *Lane) error
}
