package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/domain/apperror"
	"github.com/oksasatya/scopeguard/pkg/helpers"
)

const (
	CtxClaimsKey  = "claims"
	CtxUserIDKey  = "userID"
	CtxSubjectKey = "subject"
)

// TokenVerifier is the slice of the auth service the guards need.
type TokenVerifier interface {
	VerifyToken(token string) (*helpers.Claims, error)
	RequireScopes(claims *helpers.Claims, required ...string) error
}

// ExtractBearerToken returns the credentials of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerAuth verifies the bearer token and stores its claims in the context.
// Verification is stateless; no store or session lookup happens here.
func BearerAuth(v TokenVerifier, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, log, apperror.ErrAuthentication.WithReason("missing bearer token"))
			return
		}
		claims, err := v.VerifyToken(token)
		if err != nil {
			AbortWithError(c, log, err)
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSubjectKey, claims.Subject)
		c.Next()
	}
}

// RequireScopes rejects requests whose token lacks any of scopes with 403.
// Mount after BearerAuth; without verified claims it answers 401.
func RequireScopes(v TokenVerifier, log *logrus.Logger, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			AbortWithError(c, log, apperror.ErrAuthentication.WithReason("no verified claims"))
			return
		}
		if err := v.RequireScopes(claims, scopes...); err != nil {
			AbortWithError(c, log, err)
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by BearerAuth.
func ClaimsFrom(c *gin.Context) (*helpers.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*helpers.Claims)
	return claims, ok && claims != nil
}
