package middleware

import (
	"net/http"

	"helpdesk/internal/apierror"
	"helpdesk/internal/model"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// SessionAuth resolves the caller identity from the session cookie on every
// protected route. Missing, expired, or tampered sessions get a 401.
func SessionAuth(sessions session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(session.CookieName)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.ResponseOf(
				apierror.Unauthorized("Autenticacion requerida")))
			return
		}

		identity, err := sessions.Get(c.Request.Context(), cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.ResponseOf(
				apierror.Unauthorized("Sesion invalida o expirada")))
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// RequireRole rejects requests whose session role is not in the allowed list.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		identity, ok := c.MustGet(IdentityKey).(*session.Identity)
		if !ok || !allowed[identity.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.ResponseOf(
				apierror.Forbidden("Permisos insuficientes")))
			return
		}
		c.Next()
	}
}

// GetIdentity is a helper to retrieve the typed identity from the Gin context.
func GetIdentity(c *gin.Context) session.Identity {
	identity, _ := c.MustGet(IdentityKey).(*session.Identity)
	return *identity
}
