// Package catalog exposes the read-only product, vendor, and city
// collaborators the checkout pipeline depends on. Catalog management
// itself (CRUD, search, listing) lives outside this service.
package catalog

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as seen by the cart and checkout pipeline.
type Product struct {
	ID       string
	VendorID string // empty when the product has no owning vendor
	Name     string
	Price    decimal.Decimal
	// DiscountPct is the live discount percentage in [0, 100].
	DiscountPct decimal.Decimal
	// Sizes and Colors are the declared variant sets. A nil slice means the
	// variant axis is unconstrained; a non-nil slice is a closed set.
	Sizes  []string
	Colors []string
}

var hundred = decimal.NewFromInt(100)

// EffectivePrice returns the live unit price with the discount applied,
// rounded to 2 decimal places. This is the value snapshotted onto order
// items at checkout.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPct.IsZero() {
		return p.Price.Round(2)
	}
	factor := hundred.Sub(p.DiscountPct).Div(hundred)
	return p.Price.Mul(factor).Round(2)
}

// AllowsSize reports whether the requested size is valid for this product.
// An empty request is only valid when the product declares no size set.
func (p Product) AllowsSize(size string) bool {
	if p.Sizes == nil {
		return true
	}
	return slices.Contains(p.Sizes, size)
}

// AllowsColor reports whether the requested color is valid for this product.
func (p Product) AllowsColor(color string) bool {
	if p.Colors == nil {
		return true
	}
	return slices.Contains(p.Colors, color)
}

// Vendor is a selling party. CityID locates the vendor for shipping
// pricing; UserID is the account that acts on the vendor's behalf.
type Vendor struct {
	ID     string
	Name   string
	CityID string // empty when the vendor has no city on file
	UserID string
}

// City is a shipping endpoint in the city/government hierarchy.
type City struct {
	ID           string
	Name         string
	GovernmentID string
}

// ProductRepository provides product lookup by id.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// VendorRepository provides vendor lookup by id.
type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*Vendor, error)
}

// CityRepository provides city lookup by id.
type CityRepository interface {
	GetByID(ctx context.Context, id string) (*City, error)
}
