package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck verifica una dependencia (base de datos, Redis).
type HealthCheck func(ctx context.Context) error

// HealthHandler estado del servicio y de sus dependencias.
type HealthHandler struct {
	service string
	checks  map[string]HealthCheck
	now     func() time.Time
}

// NewHealthHandler construye el handler. checks puede ser nil.
func NewHealthHandler(service string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, now: time.Now}
}

// Check godoc
// @Summary      Estado del servicio
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}
	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"service":      h.service,
		"timestamp":    h.now().UTC().Format(time.RFC3339),
		"dependencies": deps,
	})
}
