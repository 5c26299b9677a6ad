package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type httpObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// MetricsMiddleware registra cada petición con la plantilla de la ruta (no la URL cruda)
// para no disparar la cardinalidad de las etiquetas.
func MetricsMiddleware(obs httpObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		obs.ObserveHTTP(c.Method(), route, status, time.Since(start))
		return err
	}
}
