package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

const (
	getBalanceSQL = `SELECT balance FROM wallets WHERE user_id = $1`

	lockBalanceSQL = `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`

	upsertWalletSQL = `INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()`

	insertTransactionSQL = `INSERT INTO wallet_transactions
		(id, user_id, type, amount, balance_before, balance_after, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	historySQL = `SELECT id, user_id, type, amount, balance_before, balance_after, description, reference_id, created_at
		FROM wallet_transactions WHERE user_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
)

var _ wallet.Ledger = (*WalletLedger)(nil)

// WalletLedger implements wallet.Ledger backed by PostgreSQL. Every
// mutation locks the balance row and writes the balance change and its
// ledger entry in one transaction; when the ledger is already bound to a
// transaction the mutation joins it via a savepoint.
type WalletLedger struct {
	db DB
}

// NewWalletLedger returns a WalletLedger that uses the given db.
func NewWalletLedger(db DB) *WalletLedger {
	return &WalletLedger{db: db}
}

// Balance returns the user's current balance, zero when no wallet row
// exists yet.
func (l *WalletLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.db.QueryRow(ctx, getBalanceSQL, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("getting balance for %q: %w", userID, err)
	}
	return balance, nil
}

// DeductPartial deducts up to amount from the balance under a row lock
// and reports the split. A zero deduction writes no ledger entry.
func (l *WalletLedger) DeductPartial(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) (wallet.Deduction, error) {
	var out wallet.Deduction
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		balance, err := lockedBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		d, err := wallet.PlanDeduction(balance, amount)
		if err != nil {
			return err
		}
		out = d
		if !d.Deducted.IsPositive() {
			return nil
		}

		after, err := wallet.ApplyTransaction(balance, wallet.TypePayment, d.Deducted)
		if err != nil {
			return err
		}
		return l.writeEntry(ctx, tx, wallet.Transaction{
			ID: uuid.New().String(), UserID: userID, Type: wallet.TypePayment,
			Amount: d.Deducted, BalanceBefore: balance, BalanceAfter: after,
			Description: description, ReferenceID: referenceID,
		})
	})
	if err != nil {
		return wallet.Deduction{}, err
	}
	return out, nil
}

// Add applies a credit or debit of the given type to the balance.
func (l *WalletLedger) Add(ctx context.Context, userID string, amount decimal.Decimal, t wallet.TransactionType, description, referenceID string) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		balance, err := lockedBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		after, err := wallet.ApplyTransaction(balance, t, amount)
		if err != nil {
			return err
		}
		return l.writeEntry(ctx, tx, wallet.Transaction{
			ID: uuid.New().String(), UserID: userID, Type: t,
			Amount: amount, BalanceBefore: balance, BalanceAfter: after,
			Description: description, ReferenceID: referenceID,
		})
	})
}

// History returns the user's ledger entries, newest first.
func (l *WalletLedger) History(ctx context.Context, userID string, limit, offset int) ([]wallet.Transaction, error) {
	rows, err := l.db.Query(ctx, historySQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing wallet history for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (wallet.Transaction, error) {
		var t wallet.Transaction
		err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceBefore,
			&t.BalanceAfter, &t.Description, &t.ReferenceID, &t.CreatedAt)
		return t, err
	})
}

func (l *WalletLedger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning wallet transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing wallet transaction: %w", err)
	}
	return nil
}

// writeEntry persists the new balance and its ledger entry together.
func (l *WalletLedger) writeEntry(ctx context.Context, tx pgx.Tx, t wallet.Transaction) error {
	if _, err := tx.Exec(ctx, upsertWalletSQL, t.UserID, t.BalanceAfter); err != nil {
		return fmt.Errorf("updating balance for %q: %w", t.UserID, err)
	}
	if _, err := tx.Exec(ctx, insertTransactionSQL,
		t.ID, t.UserID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Description, t.ReferenceID,
	); err != nil {
		return fmt.Errorf("recording wallet transaction for %q: %w", t.UserID, err)
	}
	return nil
}

// lockedBalance reads the balance under FOR UPDATE, zero when the wallet
// row does not exist yet.
func lockedBalance(ctx context.Context, tx pgx.Tx, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, lockBalanceSQL, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("locking balance for %q: %w", userID, err)
	}
	return balance, nil
}
