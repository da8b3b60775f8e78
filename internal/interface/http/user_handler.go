package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/domain/apperror"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
	"github.com/oksasatya/scopeguard/pkg/response"
)

type UserHandler struct {
	Logger *logrus.Logger
}

func NewUserHandler(logger *logrus.Logger) *UserHandler {
	return &UserHandler{Logger: logger}
}

type meResponse struct {
	Subject   string    `json:"subject"`
	UserID    string    `json:"user_id"`
	Scopes    []string  `json:"scopes"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Me returns the identity carried by the verified token. It reads nothing
// from the store, so the scopes shown are the token's snapshot.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		middleware.AbortWithError(c, h.Logger, apperror.ErrAuthentication.WithReason("no verified claims"))
		return
	}
	res := meResponse{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Scopes:  claims.Scopes,
	}
	if claims.IssuedAt != nil {
		res.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	response.Send(c, response.Success(c, http.StatusOK, res, "ok", nil))
}
