package repository

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// PermissionRepository tabla de permisos por (rol, tipo, id).
// GetRolePermission devuelve (nil, nil) si no existe la fila; error solo ante fallos de transporte.
type PermissionRepository interface {
	GetRolePermission(ctx context.Context, role entity.Role, pageID string) (*entity.PermissionEntry, error)
	Upsert(ctx context.Context, entry *entity.PermissionEntry) error
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.PermissionEntry, error)
}
