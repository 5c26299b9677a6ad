package repository

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// ValidationRepository formularios de validación (uno por prospecto).
type ValidationRepository interface {
	// GetByLeadID devuelve (nil, nil) si aún no existe registro.
	GetByLeadID(ctx context.Context, leadID string) (*entity.ValidationRecord, error)
	Save(ctx context.Context, rec *entity.ValidationRecord) error
}
