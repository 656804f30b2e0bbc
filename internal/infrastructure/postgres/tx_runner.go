package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL que retiene el
// advisory lock del insumo hasta el commit o rollback.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout <= 0 espera sin límite.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// RunForItem inicia una transacción, toma pg_advisory_xact_lock sobre itemID, ejecuta fn con
// repos atados a la tx y hace Commit o Rollback. Insumos distintos usan claves distintas y no se bloquean.
// Serialización, deadlock o timeout de lock se devuelven como domain.ErrConcurrentUpdate.
func (r *TxRunner) RunForItem(ctx context.Context, itemID string, fn func(
	movRepo repository.MovementRepository,
	itemRepo repository.ItemRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrapTxError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
			return wrapTxError("set lock_timeout", err)
		}
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, itemID); err != nil {
		return wrapTxError("lock item", err)
	}

	if err := fn(NewMovementRepository(tx), NewItemRepository(tx)); err != nil {
		if isRetryable(err) {
			return wrapTxError("ledger tx", err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapTxError("commit transaction", err)
	}
	return nil
}
