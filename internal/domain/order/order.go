// Package order implements the checkout orchestrator: grouping a cart by
// vendor, pricing each group with shipping, settling payment through the
// wallet ledger, and driving order lifecycle transitions.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// forward maps each status to its single forward successor.
var forward = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanTransitionTo reports whether the transition s → target is legal:
// one step forward along pending → confirmed → processing → shipped →
// delivered, or a jump to cancelled from any non-terminal state.
func (s Status) CanTransitionTo(target Status) bool {
	if s.Terminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	return forward[s] == target
}

// PaymentMethod is how the buyer settles an order.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentWallet PaymentMethod = "wallet"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentWallet
}

// PaymentStatus is the settlement state of an order. It is decided once
// at creation from the wallet outcome and only moves to refunded through
// cancellation.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentRemaining PaymentStatus = "remaining"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Item is one order line with its price snapshotted at checkout time.
// The snapshot is the audit record; it is never recomputed from the live
// catalog.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	// Price is the effective unit price at order time.
	Price    decimal.Decimal
	Subtotal decimal.Decimal
}

// Order is one (buyer, vendor) aggregate materialized at checkout.
// Invariants: Total == Σ Items.Subtotal + ShippingPrice, and
// RemainingAmount ≤ Total. Orders are never deleted; cancellation is a
// status.
type Order struct {
	ID              string
	BuyerID         string
	VendorID        string
	Status          Status
	Total           decimal.Decimal
	FromCityID      string
	ToCityID        string
	ShippingPrice   decimal.Decimal
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	RemainingAmount decimal.Decimal
	ShippingAddress string
	Phone           string
	Items           []Item
	CreatedAt       time.Time
}

// Repository defines persistence operations for order aggregates.
type Repository interface {
	// Create persists the order together with its items.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus applies from -> to only while the order is still in
	// from; a concurrent transition makes it fail InvalidState instead
	// of overwriting.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// MarkCancelled moves the order to cancelled unless it is already
	// terminal (delivered or cancelled), failing InvalidState otherwise.
	MarkCancelled(ctx context.Context, id string) error
	// SetPayment updates the settlement state and remaining amount.
	SetPayment(ctx context.Context, id string, ps PaymentStatus, remaining decimal.Decimal) error
}

// Stores groups the repositories that participate in one atomic unit.
// Mutations made through them commit together or not at all.
type Stores interface {
	Orders() Repository
	Wallet() wallet.Ledger
	Cart() cart.Store
}

// UnitOfWork is the transactional boundary around multi-entity
// operations: the whole multi-vendor checkout (every wallet deduction,
// every order insert, the cart clear) and the cancel-with-refund pair.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Role is the coarse permission level the gateway asserts for a request.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated identity acting on an order.
type Actor struct {
	UserID string
	Role   Role
}

// Admin reports whether the actor has administrative rights.
func (a Actor) Admin() bool { return a.Role == RoleAdmin }
