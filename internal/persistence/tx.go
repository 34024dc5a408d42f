package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

// TxManager implements repository.UnitOfWork over a pgx pool.
type TxManager struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	store  repository.Store
}

// NewTxManager binds pool-level repositories and a transaction runner.
func NewTxManager(pool *pgxpool.Pool, logger *zap.Logger) *TxManager {
	return &TxManager{pool: pool, logger: logger, store: repository.NewStore(pool)}
}

// Store returns repositories that run on the pool outside any transaction.
func (m *TxManager) Store() repository.Store {
	return m.store
}

// WithinTx begins a read-committed transaction, hands fn repositories bound to
// it, and commits only when fn succeeds.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				m.logger.Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(ctx, repository.NewStore(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ repository.UnitOfWork = (*TxManager)(nil)
