package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"manabitrack/internal/model"
)

// ContextKey is the gin context key carrying parsed claims.
const ContextKey = "claims"

// Bearer enforces bearer JWT tokens signed with HS256.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextKey, claims)
		c.Next()
	}
}

// RequireAdmin allows admin and super_admin tokens only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := FromContext(c)
		if claims.Role != model.RoleAdmin && claims.Role != model.RoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin allows super_admin tokens only.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if FromContext(c).Role != model.RoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "super admin access required"})
			return
		}
		c.Next()
	}
}

// FromContext returns the claims set by Bearer, zero when absent.
func FromContext(c *gin.Context) Claims {
	v, ok := c.Get(ContextKey)
	if !ok {
		return Claims{}
	}
	claims, _ := v.(Claims)
	return claims
}

// ActingSchool resolves the acting-school scope for a request: school
// tokens act as their own school, admin tokens may name any school via the
// school query parameter (empty means all schools).
func ActingSchool(c *gin.Context) (string, bool) {
	claims := FromContext(c)
	if claims.Role == model.RoleSchool {
		return claims.SchoolID, true
	}
	return c.Query("school"), false
}
