// Package web serves the "My appointments" screen. Each browser session owns
// an appointments.Controller; form posts drive its actions and redirect back
// to the rendered page, and a JSON mirror of the same actions lives under
// /api.
package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Deathstroke97/idoc/internal/appointments"
	"github.com/Deathstroke97/idoc/internal/directory"
	"github.com/Deathstroke97/idoc/internal/platform/middleware"
)

const (
	sessionCookie = "idoc_session"
	pagePath      = "/appointments"
)

type Handler struct {
	sessions     *SessionStore
	logger       zerolog.Logger
	secureCookie bool
}

func NewHandler(sessions *SessionStore, logger zerolog.Logger, secureCookie bool) *Handler {
	return &Handler{sessions: sessions, logger: logger, secureCookie: secureCookie}
}

// RegisterRoutes mounts the page and API groups. limit runs ahead of Session
// so requests without a live session are throttled before one is created;
// mw runs after it.
func (h *Handler) RegisterRoutes(e *echo.Echo, limit echo.MiddlewareFunc, mw ...echo.MiddlewareFunc) {
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, pagePath)
	})

	chain := append([]echo.MiddlewareFunc{limit, h.Session}, mw...)
	page := e.Group(pagePath, chain...)
	page.GET("", h.Page)
	page.POST("/search", h.Search)
	page.POST("/clear", h.Clear)
	page.POST("/:id/cancel", h.Cancel)

	api := e.Group("/api/appointments", chain...)
	api.GET("", h.GetView)
	api.POST("/search", h.SearchJSON)
	api.POST("/clear", h.ClearJSON)
	api.POST("/:id/cancel", h.CancelJSON)
}

// Session resolves the idoc_session cookie, creating a session when it is
// missing or expired.
func (h *Handler) Session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var sess *Session
		if ck, err := c.Cookie(sessionCookie); err == nil {
			sess, _ = h.sessions.Get(ck.Value)
		}
		if sess == nil {
			sess = h.sessions.Create()
			c.SetCookie(&http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set("session", sess)
		c.Set("session_id", sess.ID)
		return next(c)
	}
}

// RateLimitKey buckets by session when the request carries a live
// idoc_session cookie and by client IP otherwise.
func (h *Handler) RateLimitKey(c echo.Context) string {
	if ck, err := c.Cookie(sessionCookie); err == nil {
		if sess, ok := h.sessions.Get(ck.Value); ok {
			return "session:" + sess.ID
		}
	}
	return middleware.IPKey(c)
}

func sessionFrom(c echo.Context) *Session {
	sess, _ := c.Get("session").(*Session)
	return sess
}

// actionContext detaches from the client connection so a load that has
// started always settles, and carries the request id to the backend.
func actionContext(c echo.Context) context.Context {
	ctx := context.WithoutCancel(c.Request().Context())
	if rid, ok := c.Get("request_id").(string); ok && rid != "" {
		ctx = directory.WithRequestID(ctx, rid)
	}
	return ctx
}

func csrfToken(c echo.Context) string {
	tok, _ := c.Get("csrf").(string)
	return tok
}

type pageData struct {
	View appointments.View
	CSRF string
}

type viewResponse struct {
	appointments.View
	CSRF string `json:"csrf_token,omitempty"`
}

// ensureLoaded runs the initial unscoped load the first time a session is
// displayed.
func (h *Handler) ensureLoaded(c echo.Context, sess *Session) {
	if sess.claimInitialLoad() {
		h.logger.Debug().Str("session_id", sess.ID).Msg("initial appointments load")
		_ = sess.Controller.Load(actionContext(c), "")
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	return id, nil
}

// -- HTML --

func (h *Handler) Page(c echo.Context) error {
	sess := sessionFrom(c)
	h.ensureLoaded(c, sess)
	return c.Render(http.StatusOK, "appointments.html", pageData{
		View: sess.Controller.View(),
		CSRF: csrfToken(c),
	})
}

func (h *Handler) Search(c echo.Context) error {
	sess := sessionFrom(c)
	sess.markLoaded()
	_ = sess.Controller.Search(actionContext(c), c.FormValue("phone"))
	return c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) Clear(c echo.Context) error {
	sess := sessionFrom(c)
	sess.markLoaded()
	_ = sess.Controller.Clear(actionContext(c))
	return c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sess := sessionFrom(c)
	sess.markLoaded()
	_ = sess.Controller.Cancel(actionContext(c), id)
	return c.Redirect(http.StatusSeeOther, pagePath)
}

// -- JSON --

func (h *Handler) respond(c echo.Context, sess *Session) error {
	return c.JSON(http.StatusOK, viewResponse{View: sess.Controller.View(), CSRF: csrfToken(c)})
}

func (h *Handler) GetView(c echo.Context) error {
	sess := sessionFrom(c)
	h.ensureLoaded(c, sess)
	return h.respond(c, sess)
}

type searchRequest struct {
	Phone string `json:"phone" form:"phone"`
}

func (h *Handler) SearchJSON(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := sessionFrom(c)
	sess.markLoaded()
	_ = sess.Controller.Search(actionContext(c), req.Phone)
	return h.respond(c, sess)
}

func (h *Handler) ClearJSON(c echo.Context) error {
	sess := sessionFrom(c)
	sess.markLoaded()
	_ = sess.Controller.Clear(actionContext(c))
	return h.respond(c, sess)
}

func (h *Handler) CancelJSON(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sess := sessionFrom(c)
	sess.markLoaded()
	_ = sess.Controller.Cancel(actionContext(c), id)
	return h.respond(c, sess)
}
