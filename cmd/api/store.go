package main

import (
	"context"
	"fmt"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/application/intake"
	"github.com/jhoicas/Prospectos-api/internal/application/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/memory"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Prospectos-api/internal/interfaces/http"
	"github.com/jhoicas/Prospectos-api/pkg/config"
	"github.com/jhoicas/Prospectos-api/pkg/logger"
)

// store repositorios y transacciones del driver elegido.
type store struct {
	users       repository.UserRepository
	roles       access.RoleSource
	permissions repository.PermissionRepository
	leads       repository.LeadRepository
	validations repository.ValidationRepository
	audit       repository.AuditRepository
	lifecycleTx lifecycle.TxRunner
	intakeTx    intake.TxRunner
	checks      map[string]httpRouter.HealthCheck
	close       func()
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		tx := memory.NewTxRunner(s)
		return &store{
			users:       s.Users(),
			roles:       s.Roles(),
			permissions: s.Permissions(),
			leads:       s.Leads(),
			validations: s.Validations(),
			audit:       s.Audit(),
			lifecycleTx: tx,
			intakeTx:    tx,
			checks:      map[string]httpRouter.HealthCheck{},
			close:       func() {},
		}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB, postgres.PoolOptions{
			ApplicationName:  cfg.App.Name,
			StatementTimeout: cfg.DB.StatementTimeout,
			MaxConns:         int32(cfg.DB.MaxConns),
		})
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if cfg.Store.Migrate {
			applied, err := postgres.Migrate(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
			log.Info().Strs("applied", applied).Msg("migraciones aplicadas")
		}
		users := postgres.NewUserRepository(pool)
		tx := postgres.NewTxRunner(pool)
		return &store{
			users:       users,
			roles:       users,
			permissions: postgres.NewPermissionRepository(pool),
			leads:       postgres.NewLeadRepository(pool),
			validations: postgres.NewValidationRepository(pool),
			audit:       postgres.NewAuditRepository(pool),
			lifecycleTx: tx,
			intakeTx:    tx,
			checks: map[string]httpRouter.HealthCheck{
				"postgres": pool.Ping,
			},
			close: pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("driver de almacenamiento desconocido: %q", cfg.Store.Driver)
	}
}
