package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// pageResolver es el contrato mínimo que necesita el middleware para verificar páginas.
// Lo implementa *access.PermissionResolver; el uso de interfaz evita el import circular.
type pageResolver interface {
	Resolve(ctx context.Context, role entity.Role, pageID string) (entity.Resolution, error)
}

// RequirePage devuelve un middleware Fiber que aplica la tabla de permisos de la consola
// a las rutas de la API de una página. Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 403 Forbidden  → el rol no tiene la página (o no hay fila: default-deny).
//   - 503 Service Unavailable → la fuente de permisos no respondió; se puede reintentar.
//   - Si no hay rol en el contexto, responde 401.
func RequirePage(pageID string, resolver pageResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "rol no encontrado en el token",
			})
		}

		res, err := resolver.Resolve(c.UserContext(), role, pageID)
		switch {
		case err != nil || res == entity.ResolutionUnknown:
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:      "PERMISSION_SOURCE_UNAVAILABLE",
				Message:   "no se pudo verificar el permiso, intente de nuevo",
				Retryable: true,
			})
		case res == entity.ResolutionDeny:
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "PAGE_FORBIDDEN",
				Message: "el rol " + string(role) + " no tiene acceso a la página '" + pageID + "'",
			})
		}

		return c.Next()
	}
}
