package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/application/session"
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/pkg/jwt"
)

// Locals keys de la sesión en Fiber.
const (
	LocalUserID    = "user_id"
	LocalRole      = "role"
	LocalPrincipal = "principal"
)

// AuthMiddleware valida el Bearer Token JWT y adjunta el Principal a c.Locals y al UserContext.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		id, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		attachPrincipal(c, id)
		return c.Next()
	}
}

// OptionalAuth adjunta el Principal si el token es válido; sin token (o inválido) la petición
// sigue como anónima. Lo usa la verificación de acceso, que responde "unauthenticated".
func OptionalAuth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get("Authorization"))
		if ok && tokenString != "" {
			if id, err := jwt.Parse(jwtSecret, tokenString); err == nil {
				attachPrincipal(c, id)
			}
		}
		return c.Next()
	}
}

type roleSource interface {
	CurrentRole(ctx context.Context, principalID string) (entity.Role, error)
}

// FreshRole reemplaza el rol del token por el rol vigente del usuario, para que un cambio
// de rol aplique sin esperar a que el token expire. Con src nil no hace nada.
func FreshRole(src roleSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if src == nil || p == nil {
			return c.Next()
		}
		role, err := src.CurrentRole(c.UserContext(), p.ID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHENTICATED", Message: "la sesión ya no es válida"})
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code: "PERMISSION_SOURCE_UNAVAILABLE", Message: "no se pudo verificar el rol, intente de nuevo", Retryable: true,
			})
		}
		fresh := *p
		fresh.Role = role
		c.Locals(LocalRole, role)
		c.Locals(LocalPrincipal, &fresh)
		c.SetUserContext(session.WithPrincipal(c.UserContext(), &fresh))
		return c.Next()
	}
}

// RequireRole permite el paso solo a los roles indicados. Usar DESPUÉS de AuthMiddleware.
func RequireRole(roles ...entity.Role) fiber.Handler {
	allowed := make(map[entity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "el rol " + string(role) + " no tiene acceso a este recurso"})
		}
		return c.Next()
	}
}

// RequirePrivileged atajo de RequireRole para admin y owner.
func RequirePrivileged() fiber.Handler {
	return RequireRole(entity.RoleAdmin, entity.RoleOwner)
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetRole devuelve el rol del token; vacío si no hay sesión o el token no lo trae.
func GetRole(c *fiber.Ctx) entity.Role {
	r, _ := c.Locals(LocalRole).(entity.Role)
	return r
}

// GetPrincipal devuelve el Principal de la sesión o nil.
func GetPrincipal(c *fiber.Ctx) *entity.Principal {
	p, _ := c.Locals(LocalPrincipal).(*entity.Principal)
	return p
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func attachPrincipal(c *fiber.Ctx, id *jwt.Identity) {
	var role entity.Role
	if id.Role != "" {
		role = entity.ParseRole(id.Role)
	}
	p := &entity.Principal{
		ID:            id.UserID,
		Email:         id.Email,
		Role:          role,
		EmailVerified: id.EmailVerified,
	}
	c.Locals(LocalUserID, p.ID)
	c.Locals(LocalRole, role)
	c.Locals(LocalPrincipal, p)
	c.SetUserContext(session.WithPrincipal(c.UserContext(), p))
}
