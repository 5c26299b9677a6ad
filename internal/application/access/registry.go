package access

import (
	"context"
	"sync"

	"github.com/jhoicas/Prospectos-api/internal/application/ports"
)

// GuardRegistry mantiene un Guard por Principal para conservar la secuencia de navegación
// y el reintento pendiente entre peticiones.
type GuardRegistry struct {
	deps GuardDeps
	cfg  GuardConfig

	mu     sync.Mutex
	guards map[string]*Guard
}

// NewGuardRegistry construye el registro. Se suscribe a los cambios de sesión para
// descartar guards y señales de privilegio de sesiones cerradas o con rol modificado.
func NewGuardRegistry(deps GuardDeps, cfg GuardConfig) *GuardRegistry {
	if deps.Privileges == nil {
		deps.Privileges = NewMemoryPrivilegeCache(0, 0)
	}
	r := &GuardRegistry{deps: deps, cfg: cfg, guards: make(map[string]*Guard)}
	if deps.Session != nil {
		deps.Session.OnSessionChange(r.onSessionChange)
	}
	return r
}

// For devuelve el guard del Principal. Con principalID vacío devuelve un guard efímero.
func (r *GuardRegistry) For(principalID string) *Guard {
	if principalID == "" {
		return NewGuard(r.deps, r.cfg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guards[principalID]
	if !ok {
		g = NewGuard(r.deps, r.cfg)
		r.guards[principalID] = g
	}
	return g
}

// Forget descarta el guard y la señal de privilegio del Principal.
func (r *GuardRegistry) Forget(ctx context.Context, principalID string) {
	r.mu.Lock()
	delete(r.guards, principalID)
	r.mu.Unlock()
	if err := r.deps.Privileges.Forget(ctx, principalID); err != nil {
		r.deps.Log.Warn().Err(err).Str("principal_id", principalID).Msg("no se pudo descartar la señal de privilegio")
	}
}

// Len número de guards activos.
func (r *GuardRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.guards)
}

func (r *GuardRegistry) onSessionChange(ch ports.SessionChange) {
	switch ch.Kind {
	case ports.SessionSignedOut, ports.SessionRoleChanged:
		r.Forget(context.Background(), ch.PrincipalID)
	}
}
