package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/scopeguard/internal/interface/http"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
)

// AuthModule serves the public credential endpoints:
// POST /api/register, POST /api/token
type AuthModule struct {
	Handler *handlers.AuthHandler
	Redis   *redis.Client
	Logger  *logrus.Logger
	Allow   middleware.AllowFunc
}

func NewAuthModule(h *handlers.AuthHandler, rdb *redis.Client, logger *logrus.Logger, allow middleware.AllowFunc) *AuthModule {
	return &AuthModule{Handler: h, Redis: rdb, Logger: logger, Allow: allow}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.Redis, m.Logger, 5, time.Minute, middleware.KeyByIPAndPath(), m.Allow) // 5 req/min per IP
	tokenLimiter := middleware.RateLimit(m.Redis, m.Logger, 10, time.Minute, middleware.KeyByIPAndPath(), m.Allow)   // 10 req/min per IP

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/token", tokenLimiter, m.Handler.Token)
}
