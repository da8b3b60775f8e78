package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/application"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
	"github.com/oksasatya/scopeguard/pkg/response"
)

type AdminHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAdminHandler(svc *application.AuthService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

type searchQuery struct {
	Q    string `form:"q" binding:"max=200"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

type userURI struct {
	ID string `json:"id" uri:"id" binding:"required,uuid"`
}

// ActivateUser handles POST /admin/users/:id/activate
func (h *AdminHandler) ActivateUser(c *gin.Context) { h.setActive(c, true) }

// DeactivateUser handles POST /admin/users/:id/deactivate
func (h *AdminHandler) DeactivateUser(c *gin.Context) { h.setActive(c, false) }

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	var uri userURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.AbortWithError(c, h.Logger, invalidPayload(err))
		return
	}
	profile, err := h.Svc.SetUserActive(c.Request.Context(), uri.ID, active)
	if err != nil {
		middleware.AbortWithError(c, h.Logger, err)
		return
	}
	msg := "user deactivated"
	if active {
		msg = "user activated"
	}
	response.Send(c, response.Success(c, http.StatusOK, profile, msg, nil))
}

// SearchUsers handles GET /admin/users/search?q=&size=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.AbortWithError(c, h.Logger, invalidPayload(err))
		return
	}
	users, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		middleware.AbortWithError(c, h.Logger, err)
		return
	}
	response.Send(c, response.Success(c, http.StatusOK, users, "ok", map[string]any{"count": len(users)}))
}
