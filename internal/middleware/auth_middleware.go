package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/auth"
)

// SessionTokenKey is the cookie session key holding the signed admin token
const SessionTokenKey = "token"

const adminSessionKey = "adminSession"

// SessionVerifier validates admin session tokens
type SessionVerifier interface {
	Verify(token string) (*models.AdminSession, error)
}

// AuthMiddleware guards admin-only routes
type AuthMiddleware struct {
	verifier SessionVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier SessionVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAdmin rejects requests without a valid admin session
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			AbortWithAPIError(c, apperrors.ErrUnauthenticated)
			return
		}

		session, err := m.verifier.Verify(token)
		if err != nil {
			AbortWithAPIError(c, err)
			return
		}

		c.Set(adminSessionKey, session)
		c.Next()
	}
}

// CurrentSession verifies the request's token without aborting
func (m *AuthMiddleware) CurrentSession(c *gin.Context) (*models.AdminSession, bool) {
	token := TokenFromRequest(c)
	if token == "" {
		return nil, false
	}
	session, err := m.verifier.Verify(token)
	if err != nil {
		return nil, false
	}
	return session, true
}

// TokenFromRequest reads a Bearer token, falling back to the session cookie
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, err := auth.ExtractBearerToken(header); err == nil {
			return token
		}
	}

	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	token, _ := sessions.Default(c).Get(SessionTokenKey).(string)
	return token
}

// GetAdminSession returns the session placed by RequireAdmin
func GetAdminSession(c *gin.Context) (*models.AdminSession, bool) {
	v, ok := c.Get(adminSessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*models.AdminSession)
	return session, ok
}
