// Package access decide si un usuario puede ver una página de la consola.
package access

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// ResolverConfig ajustes del resolvedor.
type ResolverConfig struct {
	Timeout   time.Duration // tope por consulta a la fuente de permisos
	CacheSize int
	CacheTTL  time.Duration
}

// DefaultResolverConfig valores por defecto.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Timeout:   3 * time.Second,
		CacheSize: 512,
		CacheTTL:  5 * time.Minute,
	}
}

var _ Resolver = (*PermissionResolver)(nil)

// PermissionResolver resuelve (rol, página) → Allow/Deny/Unknown con política default-deny.
// Es seguro para uso concurrente: el único estado compartido es la caché de lectura.
type PermissionResolver struct {
	store PermissionStore
	cfg   ResolverConfig
	cache *expirable.LRU[string, entity.Resolution]
	group singleflight.Group
	log   zerolog.Logger
}

// NewPermissionResolver construye el resolvedor.
func NewPermissionResolver(store PermissionStore, cfg ResolverConfig, log zerolog.Logger) *PermissionResolver {
	def := DefaultResolverConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	return &PermissionResolver{
		store: store,
		cfg:   cfg,
		cache: expirable.NewLRU[string, entity.Resolution](cfg.CacheSize, nil, cfg.CacheTTL),
		log:   log.With().Str("component", "permission_resolver").Logger(),
	}
}

// Resolve aplica, en orden:
//   - rol privilegiado → Allow sin consultar la tabla
//   - rol desconocido → Deny
//   - fila con allowed=true → Allow; allowed=false o sin fila → Deny
//   - error o timeout de la fuente → Unknown + *domain.PermissionSourceError
func (r *PermissionResolver) Resolve(ctx context.Context, role entity.Role, pageID string) (entity.Resolution, error) {
	if role.IsPrivileged() {
		return entity.ResolutionAllow, nil
	}
	if !role.IsValid() {
		return entity.ResolutionDeny, nil
	}
	key := cacheKey(role, pageID)
	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if res, ok := r.cache.Get(key); ok {
			return res, nil
		}
		// La consulta compartida no depende de la cancelación del primer llamador, solo del tope.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
		defer cancel()

		entry, err := r.store.GetRolePermission(lctx, role, pageID)
		if err != nil {
			return entity.ResolutionUnknown, &domain.PermissionSourceError{Role: string(role), PageID: pageID, Cause: err}
		}
		res := entity.ResolutionDeny
		if entry != nil && entry.Allowed {
			res = entity.ResolutionAllow
		}
		r.cache.Add(key, res)
		return res, nil
	})
	if err != nil {
		r.log.Warn().Err(err).Str("role", string(role)).Str("page", pageID).Msg("fuente de permisos no disponible")
		return entity.ResolutionUnknown, err
	}
	return v.(entity.Resolution), nil
}

// InvalidateRole descarta las entradas en caché de un rol.
func (r *PermissionResolver) InvalidateRole(role entity.Role) {
	prefix := string(role) + "|"
	for _, k := range r.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			r.cache.Remove(k)
		}
	}
}

// Purge vacía la caché.
func (r *PermissionResolver) Purge() {
	r.cache.Purge()
}

func cacheKey(role entity.Role, pageID string) string {
	return string(role) + "|" + pageID
}
