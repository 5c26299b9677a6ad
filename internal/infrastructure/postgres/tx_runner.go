package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Prospectos-api/internal/application/intake"
	"github.com/jhoicas/Prospectos-api/internal/application/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

var _ lifecycle.TxRunner = (*TxRunner)(nil)
var _ intake.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunLifecycle inicia una transacción con repos de prospectos y validaciones y hace Commit o Rollback.
// El bloqueo de fila lo toma LeadRepository.GetForUpdate.
func (r *TxRunner) RunLifecycle(ctx context.Context, fn func(
	leads repository.LeadRepository,
	validations repository.ValidationRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewLeadRepository(tx), NewValidationRepository(tx))
	})
}

// RunIntake serializa las capturas con un advisory lock de transacción para que dos
// registros de la misma persona no creen dos prospectos.
func (r *TxRunner) RunIntake(ctx context.Context, fn func(leads repository.LeadRepository) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, intakeLockKey); err != nil {
			return fmt.Errorf("intake lock: %w", err)
		}
		return fn(NewLeadRepository(tx))
	})
}

// intakeLockKey clave del advisory lock de captura.
const intakeLockKey int64 = 0x4c454144

func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
