package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/fault"
	"github.com/marzouqa/souq-backend/internal/domain/shipping"
)

const (
	getLanePriceSQL = `SELECT price FROM shipping_lanes
		WHERE from_city_id = $1 AND to_city_id = $2`

	createLaneSQL = `INSERT INTO shipping_lanes (id, from_city_id, to_city_id, price)
		VALUES ($1, $2, $3, $4)`
)

var _ shipping.Repository = (*LaneRepository)(nil)

// LaneRepository implements shipping.Repository backed by PostgreSQL.
type LaneRepository struct {
	db DB
}

// NewLaneRepository returns a LaneRepository that uses the given db.
func NewLaneRepository(db DB) *LaneRepository {
	return &LaneRepository{db: db}
}

// PriceOf returns the price of the directed lane from one city to another.
func (r *LaneRepository) PriceOf(ctx context.Context, fromCityID, toCityID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.db.QueryRow(ctx, getLanePriceSQL, fromCityID, toCityID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fault.NotFound("no shipping lane from %s to %s", fromCityID, toCityID)
		}
		return decimal.Zero, fmt.Errorf("getting lane price %s->%s: %w", fromCityID, toCityID, err)
	}
	return price, nil
}

// Create inserts a new directed lane.
func (r *LaneRepository) Create(ctx context.Context, lane *shipping.Lane) error {
	_, err := r.db.Exec(ctx, createLaneSQL, lane.ID, lane.FromCityID, lane.ToCityID, lane.Price)
	if err != nil {
		if isUniqueViolation(err) {
			return fault.Conflict("shipping lane from %s to %s already exists", lane.FromCityID, lane.ToCityID)
		}
		return fmt.Errorf("creating lane %s->%s: %w", lane.FromCityID, lane.ToCityID, err)
	}
	return nil
}
