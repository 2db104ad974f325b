package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/catalog"
	"github.com/marzouqa/souq-backend/internal/domain/fault"
)

// Service guards the cart invariants on every mutation.
type Service struct {
	lines    Store
	products catalog.ProductRepository
}

// NewService creates a cart Service over the given stores.
func NewService(lines Store, products catalog.ProductRepository) *Service {
	return &Service{
		lines:    lines,
		products: products,
	}
}

// Add inserts a product into the user's cart or, when a line with the
// same (product, size, color) key already exists, increments its
// quantity. It enforces the vendor lock: a non-empty cart only accepts
// products from the vendor its existing lines belong to.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int, size, color string) (*Line, error) {
	if quantity < 1 {
		return nil, fault.Validation("quantity must be at least 1")
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.VendorID == "" {
		return nil, fault.InvalidState("product %s has no vendor and cannot be purchased", productID)
	}

	if p.Sizes != nil && size == "" {
		return nil, fault.Validation("product %s requires a size", productID)
	}
	if !p.AllowsSize(size) {
		return nil, fault.Validation("size %q is not available for product %s", size, productID)
	}
	if p.Colors != nil && color == "" {
		return nil, fault.Validation("product %s requires a color", productID)
	}
	if !p.AllowsColor(color) {
		return nil, fault.Validation("color %q is not available for product %s", color, productID)
	}

	if err := s.checkVendorLock(ctx, userID, p.VendorID); err != nil {
		return nil, err
	}

	line := &Line{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
	}
	if err := s.lines.Upsert(ctx, line); err != nil {
		return nil, errors.Wrap(err, "upsert cart line")
	}
	return line, nil
}

// checkVendorLock verifies the new product's vendor matches the vendor of
// the cart's existing lines. A cart line whose product no longer resolves
// to a vendor is itself an invariant violation and also fails the add.
func (s *Service) checkVendorLock(ctx context.Context, userID, vendorID string) error {
	existing, err := s.lines.LinesByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load cart lines")
	}
	if len(existing) == 0 {
		return nil
	}

	first, err := s.products.GetByID(ctx, existing[0].ProductID)
	if err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return fault.InvalidState("cart references product %s which no longer exists", existing[0].ProductID)
		}
		return err
	}
	if first.VendorID == "" {
		return fault.InvalidState("cart references product %s with no resolvable vendor", first.ID)
	}
	if first.VendorID != vendorID {
		return fault.Conflict("cart already holds products from another vendor; clear it first")
	}
	return nil
}

// UpdateQuantity sets the quantity of one of the caller's cart lines.
// A quantity of zero or less removes the line; that is a removal, not an
// error.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	line, err := s.lines.GetLine(ctx, userID, lineID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return s.lines.Delete(ctx, line.ID)
	}
	return s.lines.SetQuantity(ctx, line.ID, quantity)
}

// Remove deletes one of the caller's cart lines.
func (s *Service) Remove(ctx context.Context, userID, lineID string) error {
	line, err := s.lines.GetLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	return s.lines.Delete(ctx, line.ID)
}

// Clear deletes every line in the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.lines.Clear(ctx, userID)
}

// View returns the user's cart joined with live product data, with
// per-line subtotals at the products' effective (discounted) prices.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	lines, err := s.lines.LinesByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart lines")
	}
	if len(lines) == 0 {
		return &View{Lines: []LineView{}, Total: decimal.Zero}, nil
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load cart products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	view := &View{Lines: make([]LineView, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, fault.InvalidState("cart references product %s which no longer exists", l.ProductID)
		}
		unit := p.EffectivePrice()
		sub := unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		view.Lines = append(view.Lines, LineView{
			Line:        l,
			ProductName: p.Name,
			UnitPrice:   unit,
			Subtotal:    sub,
		})
		view.Total = view.Total.Add(sub)
	}
	return view, nil
}
