package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
	"github.com/marzouqa/souq-backend/internal/domain/catalog"
	"github.com/marzouqa/souq-backend/internal/domain/fault"
	"github.com/marzouqa/souq-backend/internal/domain/notify"
	"github.com/marzouqa/souq-backend/internal/domain/shipping"
	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- Fakes ---
//
// The fakes share one mutable world; the fake unit of work snapshots it
// before running the callback and restores it on error, mirroring the
// all-or-nothing commit of the postgres implementation.

type world struct {
	cartLines []cart.Line
	balances  map[string]decimal.Decimal
	ledger    []wallet.Transaction
	orders    map[string]*Order

	// failDeductAfter makes DeductPartial fail once n successful
	// deductions have happened, to exercise mid-checkout rollback.
	failDeductAfter int
	deductions      int

	// afterOrderGet, when set, runs once right after an order read, with
	// the caller still holding the pre-hook snapshot. It opens the
	// read-then-write window a concurrent request would exploit.
	afterOrderGet func()
}

func newWorld() *world {
	return &world{
		balances:        map[string]decimal.Decimal{},
		orders:          map[string]*Order{},
		failDeductAfter: -1,
	}
}

func (w *world) snapshot() *world {
	s := &world{
		cartLines:       append([]cart.Line(nil), w.cartLines...),
		balances:        map[string]decimal.Decimal{},
		ledger:          append([]wallet.Transaction(nil), w.ledger...),
		orders:          map[string]*Order{},
		failDeductAfter: w.failDeductAfter,
		deductions:      w.deductions,
	}
	for k, v := range w.balances {
		s.balances[k] = v
	}
	for k, v := range w.orders {
		o := *v
		s.orders[k] = &o
	}
	return s
}

func (w *world) restore(s *world) {
	w.cartLines = s.cartLines
	w.balances = s.balances
	w.ledger = s.ledger
	w.orders = s.orders
	w.deductions = s.deductions
}

type fakeCart struct{ w *world }

func (f *fakeCart) LinesByUser(_ context.Context, userID string) ([]cart.Line, error) {
	var out []cart.Line
	for _, l := range f.w.cartLines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCart) GetLine(_ context.Context, userID, lineID string) (*cart.Line, error) {
	for _, l := range f.w.cartLines {
		if l.ID == lineID && l.UserID == userID {
			return &l, nil
		}
	}
	return nil, fault.NotFound("cart line %s not found", lineID)
}

func (f *fakeCart) Upsert(_ context.Context, line *cart.Line) error {
	f.w.cartLines = append(f.w.cartLines, *line)
	return nil
}

func (f *fakeCart) SetQuantity(context.Context, string, int) error { return nil }
func (f *fakeCart) Delete(context.Context, string) error           { return nil }

func (f *fakeCart) Clear(_ context.Context, userID string) error {
	kept := f.w.cartLines[:0]
	for _, l := range f.w.cartLines {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	f.w.cartLines = kept
	return nil
}

type fakeLedger struct{ w *world }

func (f *fakeLedger) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	return f.w.balances[userID], nil
}

func (f *fakeLedger) DeductPartial(_ context.Context, userID string, amount decimal.Decimal, description, referenceID string) (wallet.Deduction, error) {
	if f.w.failDeductAfter >= 0 && f.w.deductions >= f.w.failDeductAfter {
		return wallet.Deduction{}, errors.New("ledger unavailable")
	}
	balance := f.w.balances[userID]
	d, err := wallet.PlanDeduction(balance, amount)
	if err != nil {
		return wallet.Deduction{}, err
	}
	if d.Deducted.IsPositive() {
		after, err := wallet.ApplyTransaction(balance, wallet.TypePayment, d.Deducted)
		if err != nil {
			return wallet.Deduction{}, err
		}
		f.w.balances[userID] = after
		f.w.ledger = append(f.w.ledger, wallet.Transaction{
			ID: uuid.New().String(), UserID: userID, Type: wallet.TypePayment,
			Amount: d.Deducted, BalanceBefore: balance, BalanceAfter: after,
			Description: description, ReferenceID: referenceID,
		})
	}
	f.w.deductions++
	return d, nil
}

func (f *fakeLedger) Add(_ context.Context, userID string, amount decimal.Decimal, t wallet.TransactionType, description, referenceID string) error {
	balance := f.w.balances[userID]
	after, err := wallet.ApplyTransaction(balance, t, amount)
	if err != nil {
		return err
	}
	f.w.balances[userID] = after
	f.w.ledger = append(f.w.ledger, wallet.Transaction{
		ID: uuid.New().String(), UserID: userID, Type: t,
		Amount: amount, BalanceBefore: balance, BalanceAfter: after,
		Description: description, ReferenceID: referenceID,
	})
	return nil
}

func (f *fakeLedger) History(context.Context, string, int, int) ([]wallet.Transaction, error) {
	return f.w.ledger, nil
}

type fakeOrders struct{ w *world }

func (f *fakeOrders) Create(_ context.Context, o *Order) error {
	cp := *o
	f.w.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := f.w.orders[id]
	if !ok {
		return nil, fault.NotFound("order %s not found", id)
	}
	cp := *o
	if f.w.afterOrderGet != nil {
		hook := f.w.afterOrderGet
		f.w.afterOrderGet = nil
		hook()
	}
	return &cp, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, from, to Status) error {
	o, ok := f.w.orders[id]
	if !ok {
		return fault.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return fault.InvalidState("order is already %s", o.Status)
	}
	o.Status = to
	return nil
}

func (f *fakeOrders) MarkCancelled(_ context.Context, id string) error {
	o, ok := f.w.orders[id]
	if !ok {
		return fault.NotFound("order %s not found", id)
	}
	if o.Status == StatusDelivered || o.Status == StatusCancelled {
		return fault.InvalidState("order is already %s", o.Status)
	}
	o.Status = StatusCancelled
	return nil
}

func (f *fakeOrders) SetPayment(_ context.Context, id string, ps PaymentStatus, remaining decimal.Decimal) error {
	o, ok := f.w.orders[id]
	if !ok {
		return fault.NotFound("order %s not found", id)
	}
	o.PaymentStatus = ps
	o.RemainingAmount = remaining
	return nil
}

type fakeStores struct{ w *world }

func (f *fakeStores) Orders() Repository    { return &fakeOrders{w: f.w} }
func (f *fakeStores) Wallet() wallet.Ledger { return &fakeLedger{w: f.w} }
func (f *fakeStores) Cart() cart.Store      { return &fakeCart{w: f.w} }

type fakeUoW struct {
	w *world
	// before, when set, runs once at the start of the next Do, ahead of
	// the rollback snapshot. It stands in for a competing transaction
	// that commits between a caller's read and its own transaction.
	before func()
}

func (f *fakeUoW) Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	if f.before != nil {
		hook := f.before
		f.before = nil
		hook()
	}
	snap := f.w.snapshot()
	if err := fn(ctx, &fakeStores{w: f.w}); err != nil {
		f.w.restore(snap)
		return err
	}
	return nil
}

type mockProducts struct{ byID map[string]*catalog.Product }

func (m *mockProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, fault.NotFound("product %s not found", id)
	}
	return p, nil
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && !seen[id] {
			out = append(out, *p)
			seen[id] = true
		}
	}
	return out, nil
}

type mockVendors struct{ byID map[string]*catalog.Vendor }

func (m *mockVendors) GetByID(_ context.Context, id string) (*catalog.Vendor, error) {
	v, ok := m.byID[id]
	if !ok {
		return nil, fault.NotFound("vendor %s not found", id)
	}
	return v, nil
}

type mockLanes struct{ prices map[[2]string]decimal.Decimal }

func (m *mockLanes) PriceOf(_ context.Context, from, to string) (decimal.Decimal, error) {
	p, ok := m.prices[[2]string{from, to}]
	if !ok {
		return decimal.Zero, fault.NotFound("no shipping lane from %s to %s", from, to)
	}
	return p, nil
}

func (m *mockLanes) Create(context.Context, *shipping.Lane) error { return nil }

type mockCities struct{ ids []string }

func (m *mockCities) GetByID(_ context.Context, id string) (*catalog.City, error) {
	for _, known := range m.ids {
		if known == id {
			return &catalog.City{ID: id, Name: id}, nil
		}
	}
	return nil, fault.NotFound("city %s not found", id)
}

// --- Fixture ---

type fixture struct {
	w        *world
	svc      *Service
	products map[string]*catalog.Product
	vendors  map[string]*catalog.Vendor
	lanes    *mockLanes
	uow      *fakeUoW
}

// newFixture wires two vendors in two cities with one product each, and
// shipping lanes from both cities to "home".
func newFixture(t *testing.T) *fixture {
	t.Helper()
	w := newWorld()
	products := map[string]*catalog.Product{
		"p1": {ID: "p1", VendorID: "v1", Name: "Rug", Price: dec("30.00")},
		"p2": {ID: "p2", VendorID: "v2", Name: "Lamp", Price: dec("25.00")},
	}
	vendors := map[string]*catalog.Vendor{
		"v1": {ID: "v1", Name: "Rugs&Co", CityID: "cairo", UserID: "vendor-user-1"},
		"v2": {ID: "v2", Name: "Lumen", CityID: "alex", UserID: "vendor-user-2"},
	}
	lanes := &mockLanes{prices: map[[2]string]decimal.Decimal{
		{"cairo", "home"}: dec("10.00"),
		{"alex", "home"}:  dec("20.00"),
	}}
	f := &fixture{w: w, products: products, vendors: vendors, lanes: lanes, uow: &fakeUoW{w: w}}
	f.svc = NewService(
		&fakeCart{w: w},
		&mockProducts{byID: products},
		&mockVendors{byID: vendors},
		shipping.NewResolver(lanes, &mockCities{ids: []string{"cairo", "alex", "home"}}),
		&fakeLedger{w: w},
		&fakeOrders{w: w},
		f.uow,
		notify.Func(func(context.Context, string, string, string, notify.Type) error { return nil }),
	)
	return f
}

func (f *fixture) addLine(userID, productID string, qty int) {
	f.w.cartLines = append(f.w.cartLines, cart.Line{
		ID: uuid.New().String(), UserID: userID, ProductID: productID, Quantity: qty,
	})
}

func checkoutReq(method PaymentMethod) CreateOrderRequest {
	return CreateOrderRequest{
		BuyerID:         "buyer",
		ToCityID:        "home",
		ShippingAddress: "12 Nile St",
		Phone:           "+201000000000",
		PaymentMethod:   method,
	}
}

// --- CreateOrder ---

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestCreateOrder_Cash(t *testing.T) {
	f := newFixture(t)
	f.addLine("buyer", "p1", 2)

	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.True(t, o.RemainingAmount.IsZero())
	// 2 * 30.00 + 10.00 shipping
	assert.True(t, dec("70.00").Equal(o.Total), "got %s", o.Total)
	assert.Empty(t, f.w.ledger, "cash must not touch the wallet")
	assert.Empty(t, f.w.cartLines, "cart cleared after checkout")
}

func TestCreateOrder_TotalInvariant(t *testing.T) {
	f := newFixture(t)
	f.products["p1"].DiscountPct = dec("10")
	f.addLine("buyer", "p1", 3)
	f.addLine("buyer", "p2", 1)

	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	for _, o := range orders {
		sum := decimal.Zero
		for _, it := range o.Items {
			assert.True(t, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2).Equal(it.Subtotal))
			sum = sum.Add(it.Subtotal)
		}
		assert.True(t, o.Total.Equal(sum.Add(o.ShippingPrice)),
			"total %s != items %s + shipping %s", o.Total, sum, o.ShippingPrice)
		assert.True(t, o.RemainingAmount.LessThanOrEqual(o.Total))
	}
}

func TestCreateOrder_PriceSnapshot(t *testing.T) {
	f := newFixture(t)
	f.addLine("buyer", "p1", 1)

	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	require.NoError(t, err)

	// A later catalog price change must not affect the stored item price.
	f.products["p1"].Price = dec("99.00")
	stored := f.w.orders[orders[0].ID]
	assert.True(t, dec("30.00").Equal(stored.Items[0].Price))
}

func TestCreateOrder_MultiVendor(t *testing.T) {
	f := newFixture(t)
	f.addLine("buyer", "p1", 1)
	f.addLine("buyer", "p2", 2)

	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	require.NoError(t, err)
	require.Len(t, orders, 2, "one order per vendor group")

	// Groups come back in stable vendor order.
	assert.Equal(t, "v1", orders[0].VendorID)
	assert.Equal(t, "v2", orders[1].VendorID)
	assert.True(t, dec("40.00").Equal(orders[0].Total)) // 30 + 10
	assert.True(t, dec("70.00").Equal(orders[1].Total)) // 50 + 20
}

func TestCreateOrder_WalletFullCover(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("100.00")
	f.addLine("buyer", "p1", 2) // total 70

	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentWallet))
	require.NoError(t, err)

	o := orders[0]
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.True(t, o.RemainingAmount.IsZero())
	assert.True(t, dec("30.00").Equal(f.w.balances["buyer"]))
	require.Len(t, f.w.ledger, 1)
	assert.Equal(t, wallet.TypePayment, f.w.ledger[0].Type)
	assert.Equal(t, o.ID, f.w.ledger[0].ReferenceID)
}

func TestCreateOrder_WalletPartial(t *testing.T) {
	f := newFixture(t)
	// Balance 50 against a 70 total: deduct 50, 20 remains.
	f.w.balances["buyer"] = dec("50.00")
	f.addLine("buyer", "p1", 2)

	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentWallet))
	require.NoError(t, err)

	o := orders[0]
	assert.Equal(t, PaymentRemaining, o.PaymentStatus)
	assert.True(t, dec("20.00").Equal(o.RemainingAmount))
	assert.True(t, f.w.balances["buyer"].IsZero())
	require.Len(t, f.w.ledger, 1)
	assert.True(t, dec("50.00").Equal(f.w.ledger[0].Amount))
}

func TestCreateOrder_WalletZeroBalance(t *testing.T) {
	f := newFixture(t)
	f.addLine("buyer", "p1", 1)

	_, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentWallet))
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
	assert.Empty(t, f.w.orders)
	assert.Len(t, f.w.cartLines, 1, "cart untouched")
}

func TestCreateOrder_MissingLaneAbortsAll(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("500.00")
	delete(f.lanes.prices, [2]string{"alex", "home"})
	f.addLine("buyer", "p1", 1)
	f.addLine("buyer", "p2", 1)

	_, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentWallet))
	assert.True(t, fault.IsKind(err, fault.KindNotFound))

	assert.Empty(t, f.w.orders, "no partial order set")
	assert.True(t, dec("500.00").Equal(f.w.balances["buyer"]), "no deduction")
	assert.Len(t, f.w.cartLines, 2, "cart untouched")
}

func TestCreateOrder_MidCheckoutFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("500.00")
	f.w.failDeductAfter = 1 // second vendor group's deduction fails
	f.addLine("buyer", "p1", 1)
	f.addLine("buyer", "p2", 1)

	_, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentWallet))
	require.Error(t, err)

	assert.Empty(t, f.w.orders, "first group's order rolled back")
	assert.True(t, dec("500.00").Equal(f.w.balances["buyer"]), "first group's deduction rolled back")
	assert.Empty(t, f.w.ledger)
	assert.Len(t, f.w.cartLines, 2)
}

func TestCreateOrder_VendorWithoutCity(t *testing.T) {
	f := newFixture(t)
	f.vendors["v1"].CityID = ""
	f.addLine("buyer", "p1", 1)

	_, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
}

func TestCreateOrder_ResubmitAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.addLine("buyer", "p1", 1)

	_, err := f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	require.NoError(t, err)

	// The cart was cleared in the same commit, so a duplicate submission
	// cannot create a second order set.
	_, err = f.svc.CreateOrder(context.Background(), checkoutReq(PaymentCash))
	assert.True(t, fault.IsKind(err, fault.KindValidation))
	assert.Len(t, f.w.orders, 1)
}

func TestCreateOrder_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	f.addLine("buyer", "p1", 1)

	for _, req := range []CreateOrderRequest{
		{BuyerID: "buyer", ToCityID: "home", ShippingAddress: "a", Phone: "p", PaymentMethod: "card"},
		{BuyerID: "buyer", ToCityID: "", ShippingAddress: "a", Phone: "p", PaymentMethod: PaymentCash},
		{BuyerID: "buyer", ToCityID: "home", ShippingAddress: "", Phone: "p", PaymentMethod: PaymentCash},
		{BuyerID: "buyer", ToCityID: "home", ShippingAddress: "a", Phone: "", PaymentMethod: PaymentCash},
	} {
		_, err := f.svc.CreateOrder(context.Background(), req)
		assert.True(t, fault.IsKind(err, fault.KindValidation), "req %+v", req)
	}
}

// --- PriceQuote ---

func TestPriceQuote(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("60.00")
	f.addLine("buyer", "p1", 1) // 30 + 10
	f.addLine("buyer", "p2", 1) // 25 + 20

	q, err := f.svc.PriceQuote(context.Background(), "buyer", "home")
	require.NoError(t, err)
	require.Len(t, q.Groups, 2)
	assert.True(t, dec("85.00").Equal(q.GrandTotal))
	assert.True(t, dec("60.00").Equal(q.WalletBalance))
	assert.False(t, q.WalletCovers)
	assert.True(t, dec("25.00").Equal(q.Shortfall))
	assert.Empty(t, f.w.ledger, "quote must not mutate state")
	assert.Empty(t, f.w.orders)
}

func TestPriceQuote_WalletCovers(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("40.00")
	f.addLine("buyer", "p1", 1)

	q, err := f.svc.PriceQuote(context.Background(), "buyer", "home")
	require.NoError(t, err)
	assert.True(t, q.WalletCovers)
	assert.True(t, q.Shortfall.IsZero())
}

func TestPriceQuote_MissingLaneMarksGroup(t *testing.T) {
	f := newFixture(t)
	delete(f.lanes.prices, [2]string{"alex", "home"})
	f.addLine("buyer", "p1", 1)
	f.addLine("buyer", "p2", 1)

	q, err := f.svc.PriceQuote(context.Background(), "buyer", "home")
	require.NoError(t, err)
	require.Len(t, q.Groups, 2)

	assert.True(t, q.Groups[0].ShippingAvailable)
	assert.False(t, q.Groups[1].ShippingAvailable)
	// Only the priceable group counts toward the payable total.
	assert.True(t, dec("40.00").Equal(q.GrandTotal))
}

func TestPriceQuote_EmptyCart(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.PriceQuote(context.Background(), "buyer", "home")
	require.NoError(t, err)
	assert.Empty(t, q.Groups)
	assert.True(t, q.GrandTotal.IsZero())
	assert.True(t, q.WalletCovers)
}

// --- UpdateStatus ---

func placeOrder(t *testing.T, f *fixture, method PaymentMethod) *Order {
	t.Helper()
	f.addLine("buyer", "p1", 2)
	orders, err := f.svc.CreateOrder(context.Background(), checkoutReq(method))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	return orders[0]
}

func TestUpdateStatus_VendorAdvances(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)
	vendorActor := Actor{UserID: "vendor-user-1", Role: RoleUser}

	for _, next := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		updated, err := f.svc.UpdateStatus(context.Background(), o.ID, next, vendorActor)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, next, updated.Status)
	}
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusDelivered, Actor{UserID: "x", Role: RoleAdmin})
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
	assert.Equal(t, StatusPending, f.w.orders[o.ID].Status, "no state change")
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, Status("exploded"), Actor{Role: RoleAdmin})
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestUpdateStatus_Unauthorized(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)

	// Neither admin nor the order's vendor: the buyer, a random user, and
	// the other vendor's user are all rejected.
	for _, userID := range []string{"buyer", "stranger", "vendor-user-2"} {
		_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed, Actor{UserID: userID, Role: RoleUser})
		assert.True(t, fault.IsKind(err, fault.KindAuthorization), "user %s", userID)
	}
	assert.Equal(t, StatusPending, f.w.orders[o.ID].Status)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "nope", StatusConfirmed, Actor{Role: RoleAdmin})
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestUpdateStatus_ConcurrentTransitionLoses(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)
	admin := Actor{Role: RoleAdmin}

	// An admin confirms the order in the window between this request's
	// read and its write; the write is conditional on the status it
	// observed, so the stale transition fails instead of re-applying.
	f.w.afterOrderGet = func() {
		_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed, admin)
		require.NoError(t, err)
	}

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed,
		Actor{UserID: "vendor-user-1", Role: RoleUser})
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
	assert.Equal(t, StatusConfirmed, f.w.orders[o.ID].Status)
}

// --- Cancel ---

func TestCancel_RefundsPaidOrder(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("100.00")
	o := placeOrder(t, f, PaymentWallet) // total 70, fully covered
	require.True(t, dec("30.00").Equal(f.w.balances["buyer"]))

	cancelled, err := f.svc.Cancel(context.Background(), o.ID, "buyer")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, PaymentRefunded, cancelled.PaymentStatus)
	assert.True(t, dec("100.00").Equal(f.w.balances["buyer"]), "full total refunded")

	last := f.w.ledger[len(f.w.ledger)-1]
	assert.Equal(t, wallet.TypeRefund, last.Type)
	assert.True(t, dec("70.00").Equal(last.Amount))
}

func TestCancel_RemainingOrderRefundsDeductedPortion(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("50.00")
	o := placeOrder(t, f, PaymentWallet) // total 70, deducted 50, remaining 20

	cancelled, err := f.svc.Cancel(context.Background(), o.ID, "buyer")
	require.NoError(t, err)

	assert.Equal(t, PaymentRefunded, cancelled.PaymentStatus)
	assert.True(t, cancelled.RemainingAmount.Equal(cancelled.Total),
		"remaining = total marks nothing further collectible")
	// Refund never exceeds what was actually deducted.
	assert.True(t, dec("50.00").Equal(f.w.balances["buyer"]))
}

func TestCancel_CashOrderNoWalletMutation(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)

	cancelled, err := f.svc.Cancel(context.Background(), o.ID, "buyer")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, PaymentRefunded, cancelled.PaymentStatus)
	assert.Empty(t, f.w.ledger, "nothing was deducted, nothing to refund")
}

func TestCancel_ForeignBuyer(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)

	_, err := f.svc.Cancel(context.Background(), o.ID, "intruder")
	assert.True(t, fault.IsKind(err, fault.KindAuthorization))
	assert.Equal(t, StatusPending, f.w.orders[o.ID].Status)
}

func TestCancel_TerminalStates(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)
	admin := Actor{Role: RoleAdmin}

	for _, next := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		_, err := f.svc.UpdateStatus(context.Background(), o.ID, next, admin)
		require.NoError(t, err)
	}

	_, err := f.svc.Cancel(context.Background(), o.ID, "buyer")
	assert.True(t, fault.IsKind(err, fault.KindInvalidState), "delivered orders cannot be cancelled")
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), "nope", "buyer")
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestCancel_ConcurrentCancelRefundsOnce(t *testing.T) {
	f := newFixture(t)
	f.w.balances["buyer"] = dec("100.00")
	o := placeOrder(t, f, PaymentWallet) // total 70, fully covered

	// A second cancel commits between this call's pre-transaction read
	// and its own transaction. Both observed the order as cancellable.
	f.uow.before = func() {
		_, err := f.svc.Cancel(context.Background(), o.ID, "buyer")
		require.NoError(t, err)
	}

	_, err := f.svc.Cancel(context.Background(), o.ID, "buyer")
	assert.True(t, fault.IsKind(err, fault.KindInvalidState), "losing cancel must fail")

	assert.True(t, dec("100.00").Equal(f.w.balances["buyer"]), "refunded exactly once")
	var refunds int
	for _, tx := range f.w.ledger {
		if tx.Type == wallet.TypeRefund {
			refunds++
		}
	}
	assert.Equal(t, 1, refunds)
	assert.Equal(t, StatusCancelled, f.w.orders[o.ID].Status)
	assert.Equal(t, PaymentRefunded, f.w.orders[o.ID].PaymentStatus)
}

// --- Get ---

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, PaymentCash)

	_, err := f.svc.Get(context.Background(), o.ID, Actor{UserID: "buyer", Role: RoleUser})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), o.ID, Actor{UserID: "vendor-user-1", Role: RoleUser})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), o.ID, Actor{UserID: "anyone", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), o.ID, Actor{UserID: "stranger", Role: RoleUser})
	assert.True(t, fault.IsKind(err, fault.KindAuthorization))
}

// --- Status machine ---

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusShipped))
	assert.True(t, StatusShipped.CanTransitionTo(StatusDelivered))

	for _, s := range []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped} {
		assert.True(t, s.CanTransitionTo(StatusCancelled), "%s -> cancelled", s)
	}

	assert.False(t, StatusPending.CanTransitionTo(StatusShipped))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusConfirmed))
	assert.False(t, StatusShipped.CanTransitionTo(StatusConfirmed), "no backwards moves")
}
