package repository

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// MaxLeadCandidates tope de candidatos que devuelve FindCandidates. Las coincidencias por
// id externo o teléfono van primero.
const MaxLeadCandidates = 50

// LeadRepository puerto de persistencia de prospectos. Usable con pool o dentro de una tx.
type LeadRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	GetByID(ctx context.Context, id string) (*entity.Lead, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Lead, error)
	// FindCandidates prospectos que comparten teléfono normalizado, correo o id externo,
	// como máximo MaxLeadCandidates.
	FindCandidates(ctx context.Context, contact entity.ContactInfo) ([]*entity.Lead, error)
	UpdateContact(ctx context.Context, lead *entity.Lead) error
	UpdateStatus(ctx context.Context, lead *entity.Lead) error
	// AssignLifetimeID asigna el identificador solo si el prospecto no tiene uno.
	// Devuelve domain.ErrDuplicateLifetimeAllocation si ya estaba asignado.
	AssignLifetimeID(ctx context.Context, leadID, lifetimeID string) error
	IncrementCallCount(ctx context.Context, lead *entity.Lead) error
}
