package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/scopeguard/internal/container"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
)

// NewEngine builds the gin engine with global middleware and every module
// mounted under /api.
func NewEngine(c *container.Container) *gin.Engine {
	cfg := c.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP())
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSAllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID, "WWW-Authenticate", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	reg := NewRegistry(r)
	// Access log covers /api only; health checks would drown it.
	if cfg.HTTPLogEnabled {
		reg.Use(gin.LoggerWithWriter(c.Logger.Out))
	}
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}
