package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marzouqa/souq-backend/internal/domain/cart"
	"github.com/marzouqa/souq-backend/internal/domain/order"
	"github.com/marzouqa/souq-backend/internal/domain/wallet"
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs multi-entity mutations inside a single PostgreSQL
// transaction. The callback's stores are all bound to that transaction,
// so the whole checkout (or cancel-with-refund) commits atomically.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork that uses the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Do begins a transaction, runs fn against transaction-bound stores, and
// commits when fn returns nil. Any error rolls everything back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s order.Stores) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning unit of work: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, txStores{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing unit of work: %w", err)
	}
	return nil
}

type txStores struct {
	tx pgx.Tx
}

func (s txStores) Orders() order.Repository { return NewOrderRepository(s.tx) }
func (s txStores) Wallet() wallet.Ledger    { return NewWalletLedger(s.tx) }
func (s txStores) Cart() cart.Store         { return NewCartStore(s.tx) }
