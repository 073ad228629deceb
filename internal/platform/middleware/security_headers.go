package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets response headers for a server-rendered page that shows
// patient names and phone numbers. Styles are inline in the page, scripts are
// not used, and forms only post back to this origin.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy",
				"default-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// Appointment lists contain PHI.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
