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

// UserModule serves GET /api/me to holders of the read scope.
type UserModule struct {
	Handler  *handlers.UserHandler
	Verifier middleware.TokenVerifier
	Redis    *redis.Client
	Logger   *logrus.Logger
}

func NewUserModule(h *handlers.UserHandler, v middleware.TokenVerifier, rdb *redis.Client, logger *logrus.Logger) *UserModule {
	return &UserModule{Handler: h, Verifier: v, Redis: rdb, Logger: logger}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(
		middleware.BearerAuth(m.Verifier, m.Logger),
		middleware.RateLimit(m.Redis, m.Logger, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/me", middleware.RequireScopes(m.Verifier, m.Logger, entity.ScopeRead), m.Handler.Me)
	}
}
