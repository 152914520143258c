package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-beachwise/logger"
	"go-beachwise/session"

	"go.uber.org/zap"
)

// SessionCookie is the only cookie Firebase Hosting forwards to backends.
const SessionCookie = "__session"

const (
	sessionKey = "beachwise.session"
	tokenKey   = "beachwise.sessionToken"
)

// RequireSession rejects requests without a valid session and attaches the session
// context to the ones that have one.
func RequireSession(provider Provider, registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			unauthorized(c, "No session")
			return
		}

		identity, err := provider.VerifySession(c.Request.Context(), token)
		if err != nil {
			logger.Log.Info("Rejected session", zap.Error(err))
			registry.Close(token)
			unauthorized(c, "Session expired or revoked")
			return
		}

		c.Set(sessionKey, registry.Open(token, identity))
		c.Set(tokenKey, token)
		c.Next()
	}
}

func unauthorized(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    "Unauthenticated",
		"details":  details,
		"redirect": "/login",
	})
}

// TokenFromRequest reads the session cookie, falling back to a bearer token.
func TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Current returns the session context RequireSession attached.
func Current(c *gin.Context) *session.Context {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	return v.(*session.Context)
}

// CurrentToken returns the raw session token of the request.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func SetSessionCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}
