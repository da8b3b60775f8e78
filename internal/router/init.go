package router

import (
	"github.com/oksasatya/scopeguard/internal/container"
	handlers "github.com/oksasatya/scopeguard/internal/interface/http"
	"github.com/oksasatya/scopeguard/internal/interface/middleware"
	"github.com/oksasatya/scopeguard/internal/router/modules"
)

// InitModules wires every feature module from c into the registry.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config
	rdb := c.Redis
	if !cfg.RateLimitEnabled {
		rdb = nil
	}
	var allow middleware.AllowFunc
	if cfg.RateLimitBypassPrivate {
		allow = middleware.AllowPrivateIP()
	}

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(c.Auth, c.Logger), rdb, c.Logger, allow))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(c.Logger), c.Auth, rdb, c.Logger))
	r.Add(modules.NewAdminModule(handlers.NewAdminHandler(c.Auth, c.Logger), c.Auth, rdb, c.Logger))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb, c.Logger))
	}
}
