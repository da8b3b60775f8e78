package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/application"
	"github.com/oksasatya/scopeguard/internal/domain/apperror"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
	"github.com/oksasatya/scopeguard/pkg/response"
	"github.com/oksasatya/scopeguard/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	FullName string `json:"full_name" binding:"required,max=200"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,pwd"`
}

// tokenRequest accepts a JSON body or the OAuth2 password grant form, where
// the email travels as "username".
type tokenRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, h.Logger, invalidPayload(err))
		return
	}

	profile, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.AbortWithError(c, h.Logger, err)
		return
	}
	msg := "user registered"
	if !profile.IsActive {
		msg = "user registered; an administrator will activate the account"
	}
	response.Send(c, response.Success(c, http.StatusCreated, profile, msg, nil))
}

// Token handles POST /token. The success body follows RFC 6749 section 5.1
// so standard OAuth2 clients can read it.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.AbortWithError(c, h.Logger, invalidPayload(err))
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, h.Logger, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, res)
}

func invalidPayload(err error) error {
	return apperror.ErrValidation.WithReason(err.Error()).WithDetails(validation.ToDetails(err))
}
