package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/catalog"
	"github.com/marzouqa/souq-backend/internal/domain/fault"
)

// Resolver resolves shipping prices for checkout. It owns the input
// contract (non-empty endpoints, known cities, non-negative admin
// prices); the Repository owns storage semantics.
type Resolver struct {
	lanes  Repository
	cities catalog.CityRepository
}

// NewResolver creates a Resolver over the given lane and city repositories.
func NewResolver(lanes Repository, cities catalog.CityRepository) *Resolver {
	return &Resolver{lanes: lanes, cities: cities}
}

// PriceOf returns the configured price for shipping from fromCityID to
// toCityID. Whether a missing lane is fatal is the caller's decision; the
// order orchestrator treats it as fatal to the whole checkout.
func (r *Resolver) PriceOf(ctx context.Context, fromCityID, toCityID string) (decimal.Decimal, error) {
	if fromCityID == "" || toCityID == "" {
		return decimal.Zero, fault.Validation("both origin and destination cities are required")
	}

	price, err := r.lanes.PriceOf(ctx, fromCityID, toCityID)
	if err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, errors.Wrapf(err, "price lane %s->%s", fromCityID, toCityID)
	}
	return price, nil
}

// CreateLane registers a new directed lane between two known cities.
// Duplicate ordered pairs are rejected with a conflict fault by the
// repository.
func (r *Resolver) CreateLane(ctx context.Context, fromCityID, toCityID string, price decimal.Decimal) (*Lane, error) {
	if fromCityID == "" || toCityID == "" {
		return nil, fault.Validation("both origin and destination cities are required")
	}
	if fromCityID == toCityID {
		return nil, fault.Validation("origin and destination cities must differ")
	}
	if price.IsNegative() {
		return nil, fault.Validation("lane price must not be negative")
	}
	for _, cityID := range []string{fromCityID, toCityID} {
		if _, err := r.cities.GetByID(ctx, cityID); err != nil {
			if fault.IsKind(err, fault.KindNotFound) {
				return nil, err
			}
			return nil, errors.Wrapf(err, "resolve city %s", cityID)
		}
	}

	lane := &Lane{
		ID:         uuid.New().String(),
		FromCityID: fromCityID,
		ToCityID:   toCityID,
		Price:      price.Round(2),
	}
	if err := r.lanes.Create(ctx, lane); err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "create lane %s->%s", fromCityID, toCityID)
	}
	return lane, nil
}
