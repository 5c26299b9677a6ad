package ports

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// Tipos de cambio de sesión.
const (
	SessionSignedIn    = "signed_in"
	SessionSignedOut   = "signed_out"
	SessionRoleChanged = "role_changed"
)

// SessionChange evento emitido por la capa de sesión.
type SessionChange struct {
	Kind        string
	PrincipalID string
	OldRole     entity.Role
	NewRole     entity.Role
}

// SessionProvider fuente del Principal actual. CurrentPrincipal devuelve (nil, nil) si no hay sesión.
type SessionProvider interface {
	CurrentPrincipal(ctx context.Context) (*entity.Principal, error)
	OnSessionChange(fn func(SessionChange))
}
