package order

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
	"github.com/marzouqa/souq-backend/internal/domain/catalog"
	"github.com/marzouqa/souq-backend/internal/domain/fault"
	"github.com/marzouqa/souq-backend/internal/domain/notify"
	"github.com/marzouqa/souq-backend/internal/domain/shipping"
	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

// Service orchestrates checkout and order lifecycle operations.
type Service struct {
	cartLines cart.Store
	products  catalog.ProductRepository
	vendors   catalog.VendorRepository
	shipping  *shipping.Resolver
	wallet    wallet.Ledger
	orders    Repository
	uow       UnitOfWork
	notifier  notify.Notifier
}

// NewService creates an order Service with the required collaborators.
func NewService(
	cartLines cart.Store,
	products catalog.ProductRepository,
	vendors catalog.VendorRepository,
	shippingResolver *shipping.Resolver,
	ledger wallet.Ledger,
	orders Repository,
	uow UnitOfWork,
	notifier notify.Notifier,
) *Service {
	return &Service{
		cartLines: cartLines,
		products:  products,
		vendors:   vendors,
		shipping:  shippingResolver,
		wallet:    ledger,
		orders:    orders,
		uow:       uow,
		notifier:  notifier,
	}
}

// CreateOrderRequest holds the checkout input.
type CreateOrderRequest struct {
	BuyerID         string
	ToCityID        string
	ShippingAddress string
	Phone           string
	PaymentMethod   PaymentMethod
}

func (r CreateOrderRequest) validate() error {
	switch {
	case r.BuyerID == "":
		return fault.Validation("buyer is required")
	case r.ToCityID == "":
		return fault.Validation("destination city is required")
	case r.ShippingAddress == "":
		return fault.Validation("shipping address is required")
	case r.Phone == "":
		return fault.Validation("phone is required")
	case !r.PaymentMethod.Valid():
		return fault.Validation("payment method must be cash or wallet")
	}
	return nil
}

// vendorGroup is the priced subset of a checkout belonging to one vendor.
type vendorGroup struct {
	vendor           *catalog.Vendor
	items            []Item
	productsSubtotal decimal.Decimal
	shippingPrice    decimal.Decimal
	shippingKnown    bool
	total            decimal.Decimal
}

// CreateOrder turns the buyer's cart into one order per vendor. Pricing
// is resolved up front; every wallet deduction, every order insert, and
// the cart clear then commit in a single unit of work, so a failure
// anywhere leaves no partial order set, no deduction, and the cart
// intact. A missing shipping lane for any vendor group aborts the whole
// call.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) ([]*Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	lines, err := s.cartLines.LinesByUser(ctx, req.BuyerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(lines) == 0 {
		return nil, fault.Validation("cart is empty")
	}

	groups, err := s.priceGroups(ctx, lines, req.ToCityID, true)
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod == PaymentWallet {
		balance, err := s.wallet.Balance(ctx, req.BuyerID)
		if err != nil {
			return nil, errors.Wrap(err, "read wallet balance")
		}
		// A zero-balance wallet payment would record a "paid" order that
		// nothing was paid against; reject it before touching the ledger.
		if balance.IsZero() {
			return nil, fault.InvalidState("wallet balance is zero; deposit funds or pay cash")
		}
	}

	created := make([]*Order, 0, len(groups))
	err = s.uow.Do(ctx, func(ctx context.Context, tx Stores) error {
		for _, g := range groups {
			o := &Order{
				ID:              uuid.New().String(),
				BuyerID:         req.BuyerID,
				VendorID:        g.vendor.ID,
				Status:          StatusPending,
				Total:           g.total,
				FromCityID:      g.vendor.CityID,
				ToCityID:        req.ToCityID,
				ShippingPrice:   g.shippingPrice,
				PaymentMethod:   req.PaymentMethod,
				PaymentStatus:   PaymentPaid,
				RemainingAmount: decimal.Zero,
				ShippingAddress: req.ShippingAddress,
				Phone:           req.Phone,
				Items:           g.items,
			}
			for i := range o.Items {
				o.Items[i].OrderID = o.ID
			}

			if req.PaymentMethod == PaymentWallet {
				d, err := tx.Wallet().DeductPartial(ctx, req.BuyerID, g.total,
					fmt.Sprintf("payment for order from %s", g.vendor.Name), o.ID)
				if err != nil {
					return errors.Wrap(err, "settle wallet payment")
				}
				if d.Remaining.IsPositive() {
					o.PaymentStatus = PaymentRemaining
					o.RemainingAmount = d.Remaining
				}
			}

			if err := tx.Orders().Create(ctx, o); err != nil {
				return errors.Wrap(err, "persist order")
			}
			created = append(created, o)
		}

		if err := tx.Cart().Clear(ctx, req.BuyerID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range created {
		notify.BestEffort(ctx, s.notifier, o.BuyerID, "Order placed",
			fmt.Sprintf("Your order %s was placed, total %s.", o.ID, o.Total), notify.TypeOrderCreated)
	}
	return created, nil
}

// priceGroups resolves vendors and shipping for the cart lines and prices
// one group per vendor. With failOnMissingLane set, an unconfigured lane
// fails the call; otherwise the group is returned with shippingKnown
// false and no shipping cost, for quoting.
func (s *Service) priceGroups(ctx context.Context, lines []cart.Line, toCityID string, failOnMissingLane bool) ([]*vendorGroup, error) {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	byVendor := make(map[string]*vendorGroup)
	for _, l := range lines {
		p, ok := productMap[l.ProductID]
		if !ok {
			return nil, fault.NotFound("product %s no longer exists", l.ProductID)
		}
		if p.VendorID == "" {
			return nil, fault.InvalidState("product %s has no vendor", p.ID)
		}

		g, ok := byVendor[p.VendorID]
		if !ok {
			vendor, err := s.vendors.GetByID(ctx, p.VendorID)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve vendor %s", p.VendorID)
			}
			if vendor.CityID == "" {
				return nil, fault.InvalidState("vendor %s has no city on file; shipping cannot be priced", vendor.ID)
			}
			g = &vendorGroup{
				vendor:           vendor,
				productsSubtotal: decimal.Zero,
			}
			byVendor[p.VendorID] = g
		}

		unit := p.EffectivePrice()
		sub := unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		g.items = append(g.items, Item{
			ID:        uuid.New().String(),
			ProductID: p.ID,
			Quantity:  l.Quantity,
			Price:     unit,
			Subtotal:  sub,
		})
		g.productsSubtotal = g.productsSubtotal.Add(sub)
	}

	groups := make([]*vendorGroup, 0, len(byVendor))
	for _, g := range byVendor {
		groups = append(groups, g)
	}
	// Stable vendor order keeps ledger entries and order rows deterministic.
	sort.Slice(groups, func(i, j int) bool { return groups[i].vendor.ID < groups[j].vendor.ID })

	for _, g := range groups {
		price, err := s.shipping.PriceOf(ctx, g.vendor.CityID, toCityID)
		switch {
		case err == nil:
			g.shippingPrice = price
			g.shippingKnown = true
		case fault.IsKind(err, fault.KindNotFound):
			if failOnMissingLane {
				return nil, fault.Wrap(err, fault.KindNotFound,
					"no shipping lane from vendor %s's city to the destination", g.vendor.Name)
			}
			g.shippingPrice = decimal.Zero
		default:
			return nil, err
		}
		g.total = g.productsSubtotal.Add(g.shippingPrice)
	}
	return groups, nil
}

// Quote is the pre-checkout pricing summary.
type Quote struct {
	Groups []QuoteGroup
	// GrandTotal sums only the groups whose shipping could be priced.
	GrandTotal    decimal.Decimal
	WalletBalance decimal.Decimal
	WalletCovers  bool
	Shortfall     decimal.Decimal
}

// QuoteGroup is the quoted price of one vendor group. When no shipping
// lane is configured for the vendor's city, ShippingAvailable is false,
// Total holds the products subtotal only, and the group is excluded from
// the quote's grand total.
type QuoteGroup struct {
	VendorID          string
	VendorName        string
	FromCityID        string
	ProductsSubtotal  decimal.Decimal
	ShippingPrice     decimal.Decimal
	ShippingAvailable bool
	Total             decimal.Decimal
	Items             []Item
}

// PriceQuote prices the buyer's current cart against a destination city
// without mutating any state, and reports whether the wallet balance
// covers the payable grand total.
func (s *Service) PriceQuote(ctx context.Context, buyerID, toCityID string) (*Quote, error) {
	if toCityID == "" {
		return nil, fault.Validation("destination city is required")
	}

	lines, err := s.cartLines.LinesByUser(ctx, buyerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	q := &Quote{Groups: []QuoteGroup{}, GrandTotal: decimal.Zero, Shortfall: decimal.Zero}
	if len(lines) > 0 {
		groups, err := s.priceGroups(ctx, lines, toCityID, false)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			q.Groups = append(q.Groups, QuoteGroup{
				VendorID:          g.vendor.ID,
				VendorName:        g.vendor.Name,
				FromCityID:        g.vendor.CityID,
				ProductsSubtotal:  g.productsSubtotal,
				ShippingPrice:     g.shippingPrice,
				ShippingAvailable: g.shippingKnown,
				Total:             g.total,
				Items:             g.items,
			})
			if g.shippingKnown {
				q.GrandTotal = q.GrandTotal.Add(g.total)
			}
		}
	}

	balance, err := s.wallet.Balance(ctx, buyerID)
	if err != nil {
		return nil, errors.Wrap(err, "read wallet balance")
	}
	q.WalletBalance = balance
	q.WalletCovers = balance.GreaterThanOrEqual(q.GrandTotal)
	if !q.WalletCovers {
		q.Shortfall = q.GrandTotal.Sub(balance)
	}
	return q, nil
}

// Get returns an order visible to the actor: its buyer, its vendor's
// user, or an admin.
func (s *Service) Get(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Admin() || o.BuyerID == actor.UserID {
		return o, nil
	}
	vendor, err := s.vendors.GetByID(ctx, o.VendorID)
	if err == nil && vendor.UserID == actor.UserID {
		return o, nil
	}
	return nil, fault.Authorization("not allowed to view this order")
}

// UpdateStatus applies a lifecycle transition on behalf of the order's
// vendor or an admin, enforcing the transition table, then emits the
// matching notifications.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !target.Valid() {
		return nil, fault.Validation("unknown order status %q", target)
	}

	if !actor.Admin() {
		vendor, err := s.vendors.GetByID(ctx, o.VendorID)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve vendor %s", o.VendorID)
		}
		if vendor.UserID != actor.UserID {
			return nil, fault.Authorization("only the order's vendor or an admin may update its status")
		}
	}

	if !o.Status.CanTransitionTo(target) {
		return nil, fault.InvalidState("cannot move order from %s to %s", o.Status, target)
	}

	// Conditional on the observed status: if another request moved the
	// order between our read and this write, the transition fails
	// InvalidState instead of silently overwriting.
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, target); err != nil {
		return nil, err
	}
	o.Status = target

	notify.BestEffort(ctx, s.notifier, o.BuyerID, "Order update",
		fmt.Sprintf("Order %s is now %s.", o.ID, target), notify.TypeOrderStatus)

	if target == StatusDelivered {
		notify.BestEffort(ctx, s.notifier, o.BuyerID, "Order delivered",
			fmt.Sprintf("Order %s was delivered. Enjoy!", o.ID), notify.TypeOrderDelivered)
		if o.PaymentStatus == PaymentPaid {
			if vendor, err := s.vendors.GetByID(ctx, o.VendorID); err == nil && vendor.UserID != "" {
				notify.BestEffort(ctx, s.notifier, vendor.UserID, "Payment received",
					fmt.Sprintf("Payment of %s for order %s is complete.", o.Total, o.ID), notify.TypePaymentReceived)
			}
		}
	}
	return o, nil
}

// Cancel cancels the buyer's own order and refunds whatever the wallet
// actually deducted: the full total for a wallet-paid order, the paid
// portion (total minus remaining) for a partially settled one, nothing
// for cash. Refund and state change commit atomically.
func (s *Service) Cancel(ctx context.Context, orderID, buyerID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, fault.Authorization("only the order's buyer may cancel it")
	}
	if o.Status == StatusDelivered || o.Status == StatusCancelled {
		return nil, fault.InvalidState("order is already %s and cannot be cancelled", o.Status)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx Stores) error {
		// Win the cancel transition first: MarkCancelled is conditional
		// on the order not being terminal, so of two concurrent cancels
		// exactly one reaches the refund below. The pre-transaction
		// snapshot is stale by now; re-read the settlement state under
		// the transition we just won.
		if err := tx.Orders().MarkCancelled(ctx, o.ID); err != nil {
			return err
		}
		cur, err := tx.Orders().GetByID(ctx, o.ID)
		if err != nil {
			return errors.Wrap(err, "reload cancelled order")
		}

		if cur.PaymentStatus == PaymentPaid || cur.PaymentStatus == PaymentRemaining {
			if cur.PaymentMethod == PaymentWallet {
				refund := cur.Total.Sub(cur.RemainingAmount)
				if refund.IsPositive() {
					err := tx.Wallet().Add(ctx, cur.BuyerID, refund, wallet.TypeRefund,
						fmt.Sprintf("refund for cancelled order %s", cur.ID), cur.ID)
					if err != nil {
						return errors.Wrap(err, "refund wallet")
					}
				}
			}
			// remaining = total marks that nothing further is owed or
			// collectible through the wallet.
			remaining := decimal.Zero
			if cur.PaymentStatus == PaymentRemaining {
				remaining = cur.Total
			}
			if err := tx.Orders().SetPayment(ctx, cur.ID, PaymentRefunded, remaining); err != nil {
				return errors.Wrap(err, "mark order refunded")
			}
			cur.PaymentStatus = PaymentRefunded
			cur.RemainingAmount = remaining
		}

		o = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify.BestEffort(ctx, s.notifier, o.BuyerID, "Order cancelled",
		fmt.Sprintf("Order %s was cancelled.", o.ID), notify.TypeOrderCancelled)
	return o, nil
}
