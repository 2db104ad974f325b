// Package wallet defines the per-user balance and its append-only
// transaction ledger. The materialized balance is a projection of the
// ledger; implementations must mutate both in one atomic unit so the
// running balance implied by the ledger always equals the stored balance.
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/fault"
)

// TransactionType enumerates the ledger entry types.
type TransactionType string

const (
	TypeDeposit     TransactionType = "deposit"
	TypeWithdrawal  TransactionType = "withdrawal"
	TypePayment     TransactionType = "payment"
	TypeRefund      TransactionType = "refund"
	TypeTransferIn  TransactionType = "transfer_in"
	TypeTransferOut TransactionType = "transfer_out"
)

// Credits reports whether the type increases the balance.
func (t TransactionType) Credits() bool {
	switch t {
	case TypeDeposit, TypeRefund, TypeTransferIn:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypePayment, TypeRefund, TypeTransferIn, TypeTransferOut:
		return true
	default:
		return false
	}
}

// Transaction is one append-only ledger row. Amount is always positive;
// the type carries the sign convention. BalanceAfter must equal
// BalanceBefore plus or minus Amount per that convention.
type Transaction struct {
	ID            string
	UserID        string
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	// ReferenceID optionally points at the entity that caused the entry,
	// such as the order an order payment settled.
	ReferenceID string
	CreatedAt   time.Time
}

// Deduction is the outcome of a partial payment: how much the wallet
// covered and how much is still owed.
type Deduction struct {
	Deducted  decimal.Decimal
	Remaining decimal.Decimal
}

// Ledger is the wallet contract consumed by checkout and cancellation.
//
// Concurrency contract: for one logical operation, the balance read, the
// balance write, and the ledger append must be indivisible with respect
// to other ledger operations on the same user.
type Ledger interface {
	// Balance returns the user's current balance; zero for users with no
	// wallet yet. Never negative.
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	// DeductPartial deducts min(balance, amount) and reports what remains
	// owed. Insufficient funds are a supported outcome, not an error.
	DeductPartial(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) (Deduction, error)
	// Add credits the wallet. The type must be a crediting type
	// (deposit, refund, transfer_in) and the amount strictly positive.
	Add(ctx context.Context, userID string, amount decimal.Decimal, t TransactionType, description, referenceID string) error
	// History returns the user's ledger page, newest first.
	History(ctx context.Context, userID string, limit, offset int) ([]Transaction, error)
}

// PlanDeduction computes the partial-payment split for a balance and a
// due amount. Implementations call it inside their atomic section so the
// arithmetic is identical everywhere.
func PlanDeduction(balance, amount decimal.Decimal) (Deduction, error) {
	if !amount.IsPositive() {
		return Deduction{}, fault.Validation("deduction amount must be positive")
	}
	deducted := decimal.Min(balance, amount)
	return Deduction{
		Deducted:  deducted,
		Remaining: amount.Sub(deducted),
	}, nil
}

// ApplyTransaction computes the new balance for appending a ledger entry
// of the given type. It rejects non-positive amounts, unknown types, and
// any debit that would take the balance below zero.
func ApplyTransaction(balance decimal.Decimal, t TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !t.Valid() {
		return balance, fault.Validation("unknown transaction type %q", t)
	}
	if !amount.IsPositive() {
		return balance, fault.Validation("transaction amount must be positive")
	}
	if t.Credits() {
		return balance.Add(amount), nil
	}
	next := balance.Sub(amount)
	if next.IsNegative() {
		return balance, fault.InvalidState("insufficient balance: have %s, need %s", balance, amount)
	}
	return next, nil
}
