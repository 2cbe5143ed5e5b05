package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards portal administration routes with a shared bearer key.
// With no key configured, admin routes are open unless Required is set
// (production), in which case they are closed.
type AdminAuth struct {
	key      string
	required bool
}

// NewAdminAuth creates admin auth for key. required closes admin routes when key is empty.
func NewAdminAuth(key string, required bool) *AdminAuth {
	return &AdminAuth{key: key, required: required}
}

// Enabled reports whether a key must be presented
func (a *AdminAuth) Enabled() bool {
	return a.key != ""
}

// authFailure describes a rejected credential
type authFailure struct {
	status  int
	message string
	code    string
}

// check validates the Authorization header against the configured key
func (a *AdminAuth) check(authHeader string) *authFailure {
	if a.key == "" {
		if a.required {
			return &authFailure{http.StatusServiceUnavailable, "Admin access is not configured", "AUTH_NOT_CONFIGURED"}
		}
		return nil
	}

	if authHeader == "" {
		return &authFailure{http.StatusUnauthorized, "Authorization header required", "AUTH_REQUIRED"}
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return &authFailure{http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <admin_key>", "AUTH_INVALID_FORMAT"}
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(a.key)) != 1 {
		return &authFailure{http.StatusUnauthorized, "Invalid admin key", "AUTH_INVALID_KEY"}
	}
	return nil
}

// Middleware rejects requests without a valid admin key
func (a *AdminAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if f := a.check(c.GetHeader("Authorization")); f != nil {
			c.AbortWithStatusJSON(f.status, gin.H{
				"error": f.message,
				"code":  f.code,
			})
			return
		}
		c.Next()
	}
}

// Verify reports whether the presented admin key is valid.
// Used by the portal to check a stored key.
func (a *AdminAuth) Verify(c *gin.Context) {
	if f := a.check(c.GetHeader("Authorization")); f != nil {
		c.JSON(f.status, gin.H{
			"valid": false,
			"error": f.message,
			"code":  f.code,
		})
		return
	}

	resp := gin.H{
		"valid":        true,
		"auth_enabled": a.Enabled(),
	}
	if !a.Enabled() {
		resp["message"] = "Authentication is not configured"
	}
	c.JSON(http.StatusOK, resp)
}

// Status reports whether admin authentication is enabled. Public.
func (a *AdminAuth) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"auth_enabled": a.Enabled(),
	})
}
