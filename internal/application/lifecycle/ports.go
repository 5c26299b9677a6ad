package lifecycle

import (
	"context"
	"time"

	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// TxRunner ejecuta leer–validar–escribir de un prospecto como una sola operación lógica.
// La implementación bloquea la fila del prospecto y hace Commit o Rollback.
type TxRunner interface {
	RunLifecycle(ctx context.Context, fn func(
		leads repository.LeadRepository,
		validations repository.ValidationRepository,
	) error) error
}

// LifetimeIDGenerator genera identificadores permanentes candidatos.
type LifetimeIDGenerator interface {
	NewLifetimeID(now time.Time) string
}
