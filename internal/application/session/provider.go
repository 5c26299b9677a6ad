// Package session es el único dueño del estado de sesión: el Principal viaja en el
// context.Context de cada petición y los cambios se publican a los suscriptores.
package session

import (
	"context"
	"sync"

	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

type principalKey struct{}

// WithPrincipal adjunta el Principal autenticado al contexto.
func WithPrincipal(ctx context.Context, p *entity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extrae el Principal del contexto (nil si no hay sesión).
func PrincipalFrom(ctx context.Context) *entity.Principal {
	p, _ := ctx.Value(principalKey{}).(*entity.Principal)
	return p
}

var _ ports.SessionProvider = (*Provider)(nil)

// Provider implementa ports.SessionProvider sobre el contexto de la petición.
type Provider struct {
	mu        sync.RWMutex
	listeners []func(ports.SessionChange)
}

// NewProvider construye el proveedor de sesión.
func NewProvider() *Provider {
	return &Provider{}
}

// CurrentPrincipal devuelve el Principal del contexto o (nil, nil).
func (p *Provider) CurrentPrincipal(ctx context.Context) (*entity.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return PrincipalFrom(ctx), nil
}

// OnSessionChange registra un suscriptor.
func (p *Provider) OnSessionChange(fn func(ports.SessionChange)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Publish notifica un cambio a todos los suscriptores, en orden de registro.
func (p *Provider) Publish(ch ports.SessionChange) {
	p.mu.RLock()
	listeners := make([]func(ports.SessionChange), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.RUnlock()
	for _, fn := range listeners {
		fn(ch)
	}
}
