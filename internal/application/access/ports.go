package access

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// PermissionStore fuente de la tabla de permisos. (nil, nil) = sin fila; error = fallo de transporte.
type PermissionStore interface {
	GetRolePermission(ctx context.Context, role entity.Role, pageID string) (*entity.PermissionEntry, error)
}

// RoleSource rol vigente del usuario según el backend (el de la sesión puede estar desactualizado).
type RoleSource interface {
	CurrentRole(ctx context.Context, principalID string) (entity.Role, error)
}

// PrivilegeCache recuerda qué Principals se observaron con rol privilegiado.
// Es la única vía de concesión cuando la fuente de permisos no responde.
type PrivilegeCache interface {
	Remember(ctx context.Context, principalID string) error
	IsPrivileged(ctx context.Context, principalID string) (bool, error)
	Forget(ctx context.Context, principalID string) error
}

// Resolver contrato del resolvedor que consume el guard.
type Resolver interface {
	Resolve(ctx context.Context, role entity.Role, pageID string) (entity.Resolution, error)
}
