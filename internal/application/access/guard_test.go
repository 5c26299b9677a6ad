package access_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeSession struct {
	mu        sync.Mutex
	principal *entity.Principal
	listeners []func(ports.SessionChange)
}

func (s *fakeSession) CurrentPrincipal(context.Context) (*entity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal, nil
}

func (s *fakeSession) OnSessionChange(fn func(ports.SessionChange)) {
	s.listeners = append(s.listeners, fn)
}

func (s *fakeSession) publish(ch ports.SessionChange) {
	for _, fn := range s.listeners {
		fn(ch)
	}
}

type mapStore struct {
	mu      sync.Mutex
	entries map[string]bool
	err     error
}

func (s *mapStore) GetRolePermission(_ context.Context, role entity.Role, pageID string) (*entity.PermissionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	allowed, ok := s.entries[string(role)+"|"+pageID]
	if !ok {
		return nil, nil
	}
	return &entity.PermissionEntry{Role: role, PermissionType: entity.PermissionTypePage, PermissionID: pageID, Allowed: allowed}, nil
}

func (s *mapStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type fakeRoles struct {
	mu   sync.Mutex
	role entity.Role
	err  error
}

func (f *fakeRoles) CurrentRole(context.Context, string) (entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.role, f.err
}

func (f *fakeRoles) set(role entity.Role, err error) {
	f.mu.Lock()
	f.role, f.err = role, err
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []ports.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item ports.Notification) {
	n.mu.Lock()
	n.items = append(n.items, item)
	n.mu.Unlock()
}

func principal(role entity.Role) *entity.Principal {
	return &entity.Principal{ID: "user-1", Email: "ana@correo.mx", Role: role}
}

func newGuard(sess *fakeSession, store access.PermissionStore, roles access.RoleSource, maxRetries int) *access.Guard {
	deps := access.GuardDeps{
		Session:  sess,
		Resolver: access.NewPermissionResolver(store, access.ResolverConfig{Timeout: 50 * time.Millisecond}, zerolog.Nop()),
		Log:      zerolog.Nop(),
	}
	if roles != nil {
		deps.Roles = roles
	}
	return access.NewGuard(deps, access.GuardConfig{MaxRetries: maxRetries})
}

// ──────────────────────────────────────────────────────────────────────────────
// Reglas de transición
// ──────────────────────────────────────────────────────────────────────────────

func TestGuard_SinSesion_Unauthenticated(t *testing.T) {
	g := newGuard(&fakeSession{}, &mapStore{}, nil, 3)

	d, err := g.Navigate(context.Background(), "/leads/1")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardUnauthenticated, d.State)
	assert.False(t, d.Allow)
	assert.Equal(t, "/auth?redirect=%2Fleads%2F1", d.RedirectTo, "se conserva la ruta original")
}

func TestGuard_PaginaAuthSiempreAccesible(t *testing.T) {
	store := &mapStore{err: errors.New("db caída")}
	g := newGuard(&fakeSession{principal: principal(entity.RoleUnverified)}, store, nil, 3)

	d, err := g.Navigate(context.Background(), "/auth")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardAllowed, d.State)
	assert.True(t, d.Allow)
}

// Escenario: supply entra a admin-config sin fila de permiso → Denied con motivo específico.
func TestGuard_SupplySinPermiso_Denied(t *testing.T) {
	notifier := &recordingNotifier{}
	sess := &fakeSession{principal: principal(entity.RoleSupply)}
	g := access.NewGuard(access.GuardDeps{
		Session:  sess,
		Resolver: access.NewPermissionResolver(&mapStore{}, access.ResolverConfig{}, zerolog.Nop()),
		Notifier: notifier,
		Log:      zerolog.Nop(),
	}, access.GuardConfig{})

	d, err := g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardDenied, d.State)
	assert.False(t, d.Allow)
	assert.False(t, d.Retryable, "Denied no se reintenta automáticamente")
	assert.Contains(t, d.Reason, "supply")
	assert.Contains(t, d.Reason, "admin-config")

	_, err = g.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrNothingToRetry)

	require.Len(t, notifier.items, 1)
	assert.Equal(t, ports.LevelError, notifier.items[0].Level)
	assert.Equal(t, "user-1", notifier.items[0].PrincipalID)
}

func TestGuard_PermisoExplicito_Allowed(t *testing.T) {
	store := &mapStore{entries: map[string]bool{"supply|leads": true}}
	g := newGuard(&fakeSession{principal: principal(entity.RoleSupply)}, store, nil, 3)

	d, err := g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardAllowed, d.State)
	assert.Equal(t, d, g.Current())
}

func TestGuard_FuenteCaida_NuncaConcedeSinCache(t *testing.T) {
	store := &mapStore{err: context.DeadlineExceeded}
	g := newGuard(&fakeSession{principal: principal(entity.RoleSupply)}, store, nil, 2)

	d, err := g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardChecking, d.State)
	assert.True(t, d.Pending)
	assert.True(t, d.Retryable)
	assert.False(t, d.Allow)

	for i := 1; i <= 2; i++ {
		d, err = g.Retry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.GuardChecking, d.State)
		assert.False(t, d.Allow)
		assert.Equal(t, i, d.Attempts)
	}
	assert.False(t, d.Retryable, "al alcanzar el tope ya no se ofrece reintento")

	_, err = g.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrRetryLimitReached)
	assert.False(t, g.Current().Allow)
}

func TestGuard_ReintentoManualResuelve(t *testing.T) {
	store := &mapStore{entries: map[string]bool{"afiliados|leads": true}, err: errors.New("timeout")}
	g := newGuard(&fakeSession{principal: principal(entity.RoleAfiliados)}, store, nil, 3)

	d, err := g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)
	require.True(t, d.Pending)

	store.setErr(nil)
	d, err = g.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.GuardAllowed, d.State)
	assert.Equal(t, 1, d.Attempts)

	_, err = g.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrNothingToRetry)
}

// Escenario: la fuente de permisos hace timeout para un admin con Allow previo en caché.
func TestGuard_AdminConCache_AllowedSinBloquear(t *testing.T) {
	roles := &fakeRoles{role: entity.RoleAdmin}
	g := newGuard(&fakeSession{principal: principal(entity.RoleAdmin)}, &mapStore{}, roles, 3)

	d, err := g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	require.Equal(t, entity.GuardAllowed, d.State)
	assert.False(t, d.FromCache)

	roles.set("", context.DeadlineExceeded)
	d, err = g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardAllowed, d.State)
	assert.True(t, d.Allow)
	assert.True(t, d.FromCache)
	assert.False(t, d.Pending)
}

func TestGuard_Degradado_SinSenalPrevia_NoConcede(t *testing.T) {
	roles := &fakeRoles{err: context.DeadlineExceeded}
	g := newGuard(&fakeSession{principal: principal(entity.RoleAdmin)}, &mapStore{}, roles, 3)

	d, err := g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardChecking, d.State)
	assert.False(t, d.Allow)
}

func TestGuard_DegradacionDeRol_OlvidaPrivilegio(t *testing.T) {
	roles := &fakeRoles{role: entity.RoleAdmin}
	g := newGuard(&fakeSession{principal: principal(entity.RoleAdmin)}, &mapStore{}, roles, 3)

	_, err := g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)

	roles.set(entity.RoleSupply, nil)
	d, err := g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardDenied, d.State)

	roles.set("", errors.New("timeout"))
	d, err = g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardChecking, d.State, "tras la degradación no queda señal de privilegio")
}

// Una cuenta eliminada no se degrada al privilegio en caché: se pide iniciar sesión.
func TestGuard_CuentaEliminada_Unauthenticated(t *testing.T) {
	roles := &fakeRoles{role: entity.RoleAdmin}
	privileges := access.NewMemoryPrivilegeCache(10, time.Hour)
	g := access.NewGuard(access.GuardDeps{
		Session:    &fakeSession{principal: principal(entity.RoleAdmin)},
		Resolver:   access.NewPermissionResolver(&mapStore{}, access.ResolverConfig{}, zerolog.Nop()),
		Roles:      roles,
		Privileges: privileges,
		Log:        zerolog.Nop(),
	}, access.GuardConfig{})

	d, err := g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	require.Equal(t, entity.GuardAllowed, d.State)

	roles.set(entity.RoleUnrecognized, domain.ErrUserNotFound)
	d, err = g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardUnauthenticated, d.State)
	assert.False(t, d.Allow)
	assert.False(t, d.FromCache)
	assert.Equal(t, "/auth?redirect=%2Fadmin-config", d.RedirectTo)

	ok, _ := privileges.IsPrivileged(context.Background(), "user-1")
	assert.False(t, ok, "la señal de privilegio se olvida")

	// Aunque después la fuente caiga, ya no queda nada que conceder.
	roles.set("", context.DeadlineExceeded)
	d, err = g.Navigate(context.Background(), "/admin-config")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardChecking, d.State)
	assert.False(t, d.Allow)
}

// ──────────────────────────────────────────────────────────────────────────────
// Secuencia de navegación
// ──────────────────────────────────────────────────────────────────────────────

type gatedResolver struct {
	release chan struct{}
	entered chan struct{}
}

func (r *gatedResolver) Resolve(ctx context.Context, _ entity.Role, pageID string) (entity.Resolution, error) {
	if pageID == "lenta" {
		close(r.entered)
		<-r.release
		return entity.ResolutionDeny, nil
	}
	return entity.ResolutionAllow, nil
}

func TestGuard_RespuestaObsoletaNoSobrescribe(t *testing.T) {
	res := &gatedResolver{release: make(chan struct{}), entered: make(chan struct{})}
	g := access.NewGuard(access.GuardDeps{
		Session:  &fakeSession{principal: principal(entity.RoleSupply)},
		Resolver: res,
		Log:      zerolog.Nop(),
	}, access.GuardConfig{})

	type result struct {
		d   entity.AccessDecision
		err error
	}
	slow := make(chan result, 1)
	go func() {
		d, err := g.Check(context.Background(), 1, "/lenta")
		slow <- result{d, err}
	}()
	<-res.entered

	fast, err := g.Check(context.Background(), 2, "/leads")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardAllowed, fast.State)
	assert.False(t, fast.Superseded)

	close(res.release)
	old := <-slow
	require.NoError(t, old.err)
	assert.True(t, old.d.Superseded, "la respuesta N llega tarde y se descarta")

	cur := g.Current()
	assert.Equal(t, uint64(2), cur.Seq)
	assert.Equal(t, entity.GuardAllowed, cur.State)
}

func TestGuard_SecuenciaAntiguaDescartada(t *testing.T) {
	g := newGuard(&fakeSession{principal: principal(entity.RoleSupply)}, &mapStore{}, nil, 3)
	_, err := g.Check(context.Background(), 5, "/x")
	require.NoError(t, err)

	d, err := g.Check(context.Background(), 4, "/leads")
	require.NoError(t, err)
	assert.True(t, d.Superseded)
	assert.Equal(t, uint64(5), g.Current().Seq)
}

// Los reintentos no consumen secuencias: la siguiente navegación del llamador se aplica.
func TestGuard_ReintentosNoAdelantanLaSecuencia(t *testing.T) {
	store := &mapStore{entries: map[string]bool{"supply|leads": true}, err: errors.New("timeout")}
	g := newGuard(&fakeSession{principal: principal(entity.RoleSupply)}, store, nil, 3)

	d, err := g.Check(context.Background(), 5, "/leads")
	require.NoError(t, err)
	require.Equal(t, entity.GuardChecking, d.State)

	for i := 0; i < 2; i++ {
		d, err = g.Retry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(5), d.Seq)
		assert.False(t, d.Superseded)
	}
	store.setErr(nil)

	d, err = g.Check(context.Background(), 6, "/leads")
	require.NoError(t, err)
	assert.False(t, d.Superseded)
	assert.Equal(t, entity.GuardAllowed, d.State)

	cur := g.Current()
	assert.Equal(t, uint64(6), cur.Seq)
	assert.Equal(t, entity.GuardAllowed, cur.State)
	_, err = g.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrNothingToRetry)
}

// Un reintento en vuelo pierde frente a una navegación más reciente.
func TestGuard_ReintentoObsoletoNoSobrescribe(t *testing.T) {
	store := &mapStore{err: errors.New("timeout")}
	res := &switchResolver{inner: access.NewPermissionResolver(store, access.ResolverConfig{Timeout: 50 * time.Millisecond}, zerolog.Nop())}
	g := access.NewGuard(access.GuardDeps{
		Session:  &fakeSession{principal: principal(entity.RoleSupply)},
		Resolver: res,
		Log:      zerolog.Nop(),
	}, access.GuardConfig{})

	d, err := g.Check(context.Background(), 1, "/leads")
	require.NoError(t, err)
	require.Equal(t, entity.GuardChecking, d.State)

	res.block()
	done := make(chan entity.AccessDecision, 1)
	go func() {
		d, _ := g.Retry(context.Background())
		done <- d
	}()
	<-res.entered

	store.setErr(nil)
	res.passThrough()
	d, err = g.Check(context.Background(), 2, "/reportes")
	require.NoError(t, err)
	assert.Equal(t, entity.GuardDenied, d.State)

	close(res.release)
	retried := <-done
	assert.True(t, retried.Superseded)
	assert.Equal(t, uint64(2), g.Current().Seq)
	assert.Equal(t, entity.GuardDenied, g.Current().State)
}

// switchResolver bloquea la próxima resolución hasta que se libere.
type switchResolver struct {
	inner   access.Resolver
	mu      sync.Mutex
	blocked bool
	entered chan struct{}
	release chan struct{}
}

func (r *switchResolver) block() {
	r.mu.Lock()
	r.blocked = true
	r.entered = make(chan struct{})
	r.release = make(chan struct{})
	r.mu.Unlock()
}

func (r *switchResolver) passThrough() {
	r.mu.Lock()
	r.blocked = false
	r.mu.Unlock()
}

func (r *switchResolver) Resolve(ctx context.Context, role entity.Role, pageID string) (entity.Resolution, error) {
	r.mu.Lock()
	blocked, entered, release := r.blocked, r.entered, r.release
	r.mu.Unlock()
	if blocked {
		close(entered)
		<-release
		return entity.ResolutionUnknown, domain.ErrPermissionSourceUnavailable
	}
	return r.inner.Resolve(ctx, role, pageID)
}

func TestGuard_NavegacionCancelada(t *testing.T) {
	g := newGuard(&fakeSession{principal: principal(entity.RoleSupply)}, &mapStore{}, nil, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Navigate(ctx, "/leads")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entity.GuardLoading, g.Current().State, "una navegación cancelada no se aplica")
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro de guards
// ──────────────────────────────────────────────────────────────────────────────

func TestGuardRegistry_CambioDeSesion(t *testing.T) {
	sess := &fakeSession{principal: principal(entity.RoleAdmin)}
	privileges := access.NewMemoryPrivilegeCache(10, time.Hour)
	reg := access.NewGuardRegistry(access.GuardDeps{
		Session:    sess,
		Resolver:   access.NewPermissionResolver(&mapStore{}, access.ResolverConfig{}, zerolog.Nop()),
		Privileges: privileges,
		Log:        zerolog.Nop(),
	}, access.GuardConfig{})

	g := reg.For("user-1")
	assert.Same(t, g, reg.For("user-1"))
	assert.NotSame(t, reg.For(""), reg.For(""), "sin principal los guards son efímeros")

	_, err := g.Navigate(context.Background(), "/leads")
	require.NoError(t, err)
	ok, _ := privileges.IsPrivileged(context.Background(), "user-1")
	require.True(t, ok)

	sess.publish(ports.SessionChange{Kind: ports.SessionSignedOut, PrincipalID: "user-1"})
	assert.Equal(t, 0, reg.Len())
	ok, _ = privileges.IsPrivileged(context.Background(), "user-1")
	assert.False(t, ok)
}
