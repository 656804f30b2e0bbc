package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestObserver registra duración y status por ruta. Lo implementa *metrics.HTTP.
type requestObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

// MetricsMiddleware mide cada petición usando el patrón de ruta (no la URL) como etiqueta.
func MetricsMiddleware(obs requestObserver) fiber.Handler {
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
		obs.Observe(c.Method(), route, status, time.Since(start))
		return err
	}
}
