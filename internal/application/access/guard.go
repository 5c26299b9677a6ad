package access

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// GuardConfig ajustes del guard.
type GuardConfig struct {
	// MaxRetries reintentos manuales permitidos por navegación pendiente.
	MaxRetries int
	// SignInPath ruta de inicio de sesión para redirigir a usuarios sin sesión.
	SignInPath string
}

// GuardDeps colaboradores del guard. Roles, Privileges, Notifier y Metrics son opcionales.
type GuardDeps struct {
	Session    ports.SessionProvider
	Resolver   Resolver
	Roles      RoleSource
	Privileges PrivilegeCache
	Notifier   ports.NotificationSink
	Metrics    ports.Metrics
	Log        zerolog.Logger
}

type pendingNav struct {
	seq      uint64
	path     string
	attempts int
}

// Guard verifica navegaciones de una sesión. Cada verificación lleva un número de secuencia
// monótono y solo se aplica la de la secuencia más reciente emitida.
// Los reintentos reutilizan la secuencia de la navegación pendiente; runs ordena
// las ejecuciones de una misma secuencia.
type Guard struct {
	deps GuardDeps
	cfg  GuardConfig

	mu      sync.Mutex
	issued  uint64
	runs    uint64
	applied uint64
	current entity.AccessDecision
	pending *pendingNav
}

// NewGuard construye un guard.
func NewGuard(deps GuardDeps, cfg GuardConfig) *Guard {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/" + entity.AuthPageID
	}
	if deps.Privileges == nil {
		deps.Privileges = NewMemoryPrivilegeCache(0, 0)
	}
	if deps.Notifier == nil {
		deps.Notifier = ports.NopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	return &Guard{
		deps:    deps,
		cfg:     cfg,
		current: entity.AccessDecision{State: entity.GuardLoading, Pending: true},
	}
}

// Navigate verifica una navegación asignándole la siguiente secuencia.
func (g *Guard) Navigate(ctx context.Context, path string) (entity.AccessDecision, error) {
	g.mu.Lock()
	g.issued++
	seq := g.issued
	run := g.nextRun()
	g.mu.Unlock()
	return g.run(ctx, seq, run, path, 0)
}

// Check verifica una navegación con la secuencia del llamador (p. ej. contador del navegador).
// Una secuencia menor que la última emitida se descarta sin consultar a nadie.
func (g *Guard) Check(ctx context.Context, seq uint64, path string) (entity.AccessDecision, error) {
	g.mu.Lock()
	if seq < g.issued {
		g.mu.Unlock()
		return entity.AccessDecision{Seq: seq, Path: path, PageID: entity.PageIDFromPath(path), Superseded: true}, nil
	}
	g.issued = seq
	run := g.nextRun()
	g.mu.Unlock()
	return g.run(ctx, seq, run, path, 0)
}

// Retry repite la última navegación que quedó pendiente por fallo de la fuente de permisos.
// Los reintentos son manuales y tienen tope.
func (g *Guard) Retry(ctx context.Context) (entity.AccessDecision, error) {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return g.Current(), domain.ErrNothingToRetry
	}
	if g.pending.attempts >= g.cfg.MaxRetries {
		cur := g.current
		g.mu.Unlock()
		return cur, domain.ErrRetryLimitReached
	}
	p := g.pending
	if p.seq != g.issued {
		// Ya hay una navegación más reciente en curso.
		g.mu.Unlock()
		return entity.AccessDecision{Seq: p.seq, Path: p.path, PageID: entity.PageIDFromPath(p.path), Superseded: true}, nil
	}
	p.attempts++
	seq, path, attempts := p.seq, p.path, p.attempts
	run := g.nextRun()
	g.mu.Unlock()
	return g.run(ctx, seq, run, path, attempts)
}

// Current última decisión aplicada.
func (g *Guard) Current() entity.AccessDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// nextRun requiere g.mu.
func (g *Guard) nextRun() uint64 {
	g.runs++
	return g.runs
}

func (g *Guard) run(ctx context.Context, seq, run uint64, path string, attempts int) (entity.AccessDecision, error) {
	d := g.evaluate(ctx, seq, path, attempts)
	if err := ctx.Err(); err != nil {
		// Navegación cancelada: no se aplica nada.
		return d, err
	}

	g.mu.Lock()
	if seq != g.issued || run < g.applied {
		g.mu.Unlock()
		d.Superseded = true
		return d, nil
	}
	g.applied = run
	g.current = d
	if d.State == entity.GuardChecking {
		// Un reintento concurrente ya pudo reservar más intentos sobre la misma secuencia.
		if g.pending != nil && g.pending.seq == seq && g.pending.attempts > attempts {
			attempts = g.pending.attempts
		}
		g.pending = &pendingNav{seq: seq, path: path, attempts: attempts}
	} else {
		g.pending = nil
	}
	g.mu.Unlock()

	g.deps.Metrics.ObserveDecision(d.State, d.FromCache)
	g.notify(ctx, d)
	return d, nil
}

func (g *Guard) evaluate(ctx context.Context, seq uint64, path string, attempts int) entity.AccessDecision {
	pageID := entity.PageIDFromPath(path)
	d := entity.AccessDecision{Seq: seq, Path: path, PageID: pageID, State: entity.GuardLoading, Attempts: attempts}

	principal, err := g.deps.Session.CurrentPrincipal(ctx)
	if err != nil || principal == nil {
		d.State = entity.GuardUnauthenticated
		d.Reason = "inicie sesión para continuar"
		d.RedirectTo = g.cfg.SignInPath + "?redirect=" + url.QueryEscape(path)
		return d
	}
	if pageID == entity.AuthPageID {
		d.State = entity.GuardAllowed
		d.Allow = true
		return d
	}

	d.State = entity.GuardChecking
	role := principal.Role
	if g.deps.Roles != nil {
		fresh, err := g.deps.Roles.CurrentRole(ctx, principal.ID)
		if errors.Is(err, domain.ErrUserNotFound) {
			// Cuenta eliminada: no hay degradación posible.
			g.trackPrivilege(ctx, principal.ID, entity.RoleUnrecognized)
			d.State = entity.GuardUnauthenticated
			d.Reason = "la cuenta ya no existe; inicie sesión de nuevo"
			d.RedirectTo = g.cfg.SignInPath + "?redirect=" + url.QueryEscape(path)
			return d
		}
		if err != nil {
			return g.unknown(ctx, d, principal, err)
		}
		role = fresh
	}
	g.trackPrivilege(ctx, principal.ID, role)

	res, err := g.deps.Resolver.Resolve(ctx, role, pageID)
	switch res {
	case entity.ResolutionAllow:
		d.State = entity.GuardAllowed
		d.Allow = true
		return d
	case entity.ResolutionDeny:
		d.State = entity.GuardDenied
		d.Reason = denyReason(role, pageID)
		return d
	default:
		if err == nil {
			err = domain.ErrPermissionSourceUnavailable
		}
		return g.unknown(ctx, d, principal, err)
	}
}

// unknown aplica la única degradación permitida: la señal de privilegio en caché.
func (g *Guard) unknown(ctx context.Context, d entity.AccessDecision, p *entity.Principal, cause error) entity.AccessDecision {
	privileged, cerr := g.deps.Privileges.IsPrivileged(ctx, p.ID)
	if cerr == nil && privileged {
		g.deps.Log.Warn().Err(cause).
			Str("principal_id", p.ID).Str("page", d.PageID).
			Msg("fuente de permisos no disponible, se concede por privilegio en caché")
		d.State = entity.GuardAllowed
		d.Allow = true
		d.FromCache = true
		d.Reason = "acceso concedido con permisos en caché; la fuente de permisos no responde"
		return d
	}
	g.deps.Log.Warn().Err(cause).Str("principal_id", p.ID).Str("page", d.PageID).Int("attempts", d.Attempts).
		Msg("no se pudo verificar permisos")
	d.State = entity.GuardChecking
	d.Pending = true
	d.Retryable = d.Attempts < g.cfg.MaxRetries
	if d.Retryable {
		d.Reason = "no se pudieron verificar los permisos; puede reintentar"
	} else {
		d.Reason = "no se pudieron verificar los permisos y se agotaron los reintentos; intente más tarde"
	}
	return d
}

func (g *Guard) trackPrivilege(ctx context.Context, principalID string, role entity.Role) {
	var err error
	if role.IsPrivileged() {
		err = g.deps.Privileges.Remember(ctx, principalID)
	} else {
		err = g.deps.Privileges.Forget(ctx, principalID)
	}
	if err != nil {
		g.deps.Log.Debug().Err(err).Str("principal_id", principalID).Msg("caché de privilegios")
	}
}

func (g *Guard) notify(ctx context.Context, d entity.AccessDecision) {
	if d.Reason == "" {
		return
	}
	level := ports.LevelInfo
	switch {
	case d.State == entity.GuardDenied:
		level = ports.LevelError
	case d.Pending, d.FromCache:
		level = ports.LevelWarning
	}
	var principalID string
	if p, _ := g.deps.Session.CurrentPrincipal(ctx); p != nil {
		principalID = p.ID
	}
	g.deps.Notifier.Notify(ctx, ports.Notification{
		Level:       level,
		Kind:        "access_decision",
		PrincipalID: principalID,
		Message:     d.Reason,
	})
}

func denyReason(role entity.Role, pageID string) string {
	return fmt.Sprintf("el rol %q no tiene permiso para la página %q; solicite acceso a un administrador o actualice sus permisos", role, pageID)
}
