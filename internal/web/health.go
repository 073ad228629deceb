package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *directory.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports that the process is serving.
func HealthHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	}
}

// UpstreamHealthHandler checks that the directory backend answers.
func UpstreamHealthHandler(p Pinger, sessions *SessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		err := p.Ping(ctx)
		latency := time.Since(start).String()

		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "unhealthy",
				"error":    err.Error(),
				"latency":  latency,
				"sessions": sessions.Len(),
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"latency":  latency,
			"sessions": sessions.Len(),
		})
	}
}
