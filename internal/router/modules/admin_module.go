package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/internal/domain/entity"
	handlers "github.com/oksasatya/scopeguard/internal/interface/http"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
)

// AdminModule serves /api/admin/* to holders of the admin scope.
type AdminModule struct {
	Handler  *handlers.AdminHandler
	Verifier middleware.TokenVerifier
	Redis    *redis.Client
	Logger   *logrus.Logger
}

func NewAdminModule(h *handlers.AdminHandler, v middleware.TokenVerifier, rdb *redis.Client, logger *logrus.Logger) *AdminModule {
	return &AdminModule{Handler: h, Verifier: v, Redis: rdb, Logger: logger}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(
		middleware.BearerAuth(m.Verifier, m.Logger),
		middleware.RequireScopes(m.Verifier, m.Logger, entity.ScopeAdmin),
		middleware.RateLimit(m.Redis, m.Logger, 60, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		admin.GET("/users/search", m.Handler.SearchUsers)
		admin.POST("/users/:id/activate", m.Handler.ActivateUser)
		admin.POST("/users/:id/deactivate", m.Handler.DeactivateUser)
	}
}
