package repository

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// AuditRepository bitácora de transiciones de prospectos.
type AuditRepository interface {
	Insert(ctx context.Context, e *entity.AuditEntry) error
	ListByLead(ctx context.Context, leadID string, limit int) ([]*entity.AuditEntry, error)
}
