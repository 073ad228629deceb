package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Deathstroke97/idoc/internal/platform/middleware"
)

// ServerConfig collects what NewServer needs to assemble the echo instance.
type ServerConfig struct {
	Version      string
	Logger       zerolog.Logger
	Sessions     *SessionStore
	Upstream     Pinger
	RateLimit    middleware.RateLimitConfig
	CORSOrigins  []string
	BodyLimit    string
	SecureCookie bool
}

// NewServer wires middleware, the renderer and all routes.
func NewServer(cfg ServerConfig) (*echo.Echo, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	// Global middleware
	e.Use(middleware.Recovery(cfg.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(cfg.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID", "X-CSRF-Token"},
		AllowCredentials: true,
	}))

	e.GET("/health", HealthHandler(cfg.Version))
	e.GET("/health/upstream", UpstreamHealthHandler(cfg.Upstream, cfg.Sessions))

	rl := cfg.RateLimit
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}

	h := NewHandler(cfg.Sessions, cfg.Logger, cfg.SecureCookie)
	rl.KeyFunc = h.RateLimitKey
	h.RegisterRoutes(e,
		middleware.RateLimit(rl),
		middleware.BodyLimit(cfg.BodyLimit),
		echomw.CSRFWithConfig(echomw.CSRFConfig{
			TokenLookup:    "header:X-CSRF-Token,form:_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   cfg.SecureCookie,
			CookieSameSite: http.SameSiteLaxMode,
		}),
	)

	return e, nil
}
