package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/marzouqa/souq-backend/internal/domain/catalog"
	"github.com/marzouqa/souq-backend/internal/domain/fault"
)

const (
	getProductByIDSQL = `SELECT id, vendor_id, name, price, discount_pct, sizes, colors
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, vendor_id, name, price, discount_pct, sizes, colors
		FROM products WHERE id = ANY($1) ORDER BY id`

	getVendorByIDSQL = `SELECT id, name, city_id, user_id FROM vendors WHERE id = $1`

	getCityByIDSQL = `SELECT id, name, government_id FROM cities WHERE id = $1`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses the given db.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.NotFound("product %s not found", id)
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p             catalog.Product
		sizes, colors []string
	)
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Price, &p.DiscountPct, &sizes, &colors)
	// An empty array in the column means the variant axis is unconstrained.
	if len(sizes) > 0 {
		p.Sizes = sizes
	}
	if len(colors) > 0 {
		p.Colors = colors
	}
	return p, err
}

var _ catalog.VendorRepository = (*VendorRepository)(nil)

// VendorRepository implements catalog.VendorRepository backed by PostgreSQL.
type VendorRepository struct {
	db DB
}

// NewVendorRepository returns a VendorRepository that uses the given db.
func NewVendorRepository(db DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// GetByID returns a single vendor by its identifier.
func (r *VendorRepository) GetByID(ctx context.Context, id string) (*catalog.Vendor, error) {
	var v catalog.Vendor
	err := r.db.QueryRow(ctx, getVendorByIDSQL, id).Scan(&v.ID, &v.Name, &v.CityID, &v.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.NotFound("vendor %s not found", id)
		}
		return nil, fmt.Errorf("getting vendor %q: %w", id, err)
	}
	return &v, nil
}

var _ catalog.CityRepository = (*CityRepository)(nil)

// CityRepository implements catalog.CityRepository backed by PostgreSQL.
type CityRepository struct {
	db DB
}

// NewCityRepository returns a CityRepository that uses the given db.
func NewCityRepository(db DB) *CityRepository {
	return &CityRepository{db: db}
}

// GetByID returns a single city by its identifier.
func (r *CityRepository) GetByID(ctx context.Context, id string) (*catalog.City, error) {
	var c catalog.City
	err := r.db.QueryRow(ctx, getCityByIDSQL, id).Scan(&c.ID, &c.Name, &c.GovernmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.NotFound("city %s not found", id)
		}
		return nil, fmt.Errorf("getting city %q: %w", id, err)
	}
	return &c, nil
}
