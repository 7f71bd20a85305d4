package handler

import (
	"net/http"

	"helpdesk/internal/config"
	"helpdesk/internal/dto"
	"helpdesk/internal/service"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
)

type SessionsHandler struct {
	svc service.AuthService
	cfg *config.Config
}

func NewSessionsHandler(svc service.AuthService, cfg *config.Config) *SessionsHandler {
	return &SessionsHandler{svc: svc, cfg: cfg}
}

// Create handles POST /sessions (login). On success it sets the HTTP-only
// session cookie alongside the JSON body.
func (h *SessionsHandler) Create(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, cookieValue, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, cookieValue,
		h.cfg.SessionHours*3600, "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusCreated, resp)
}

// Destroy handles DELETE /sessions (logout). The server-side session is
// revoked and the cookie cleared; repeating the call is harmless.
func (h *SessionsHandler) Destroy(c *gin.Context) {
	cookie, _ := c.Cookie(session.CookieName)
	if err := h.svc.Logout(c.Request.Context(), cookie); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(session.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
	c.Status(http.StatusNoContent)
}
