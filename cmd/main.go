package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/config"
	"github.com/oksasatya/scopeguard/internal/container"
	"github.com/oksasatya/scopeguard/internal/domain/entity"
	"github.com/oksasatya/scopeguard/internal/domain/repository"
	"github.com/oksasatya/scopeguard/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/scopeguard/internal/infrastructure/postgres"
	"github.com/oksasatya/scopeguard/internal/router"
	"github.com/oksasatya/scopeguard/pkg/helpers"
	"github.com/oksasatya/scopeguard/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open credential store")
	}
	defer closeStore()

	var opts []container.Option

	// Redis (rate limiting); the limiter fails open, so an unreachable Redis is not fatal
	if cfg.RateLimitEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limits will not be enforced until it is")
		}
		opts = append(opts, container.WithRedis(rdb))
	}

	// RabbitMQ (registration events)
	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; registration events disabled")
		} else {
			defer pub.Close()
			opts = append(opts, container.WithPublisher(pub))
		}
	}

	// Elasticsearch (user directory)
	if cfg.SearchEnabled {
		es, err := helpers.NewESClient(helpers.ESOptions{
			Addrs:      cfg.ElasticsearchAddrs,
			Username:   cfg.ElasticsearchUser,
			Password:   cfg.ElasticsearchPass,
			Timeout:    cfg.ElasticsearchTimeout,
			MaxRetries: cfg.ElasticsearchMaxRetries,
		})
		if err != nil {
			logger.WithError(err).Warn("elasticsearch client init failed; user search disabled")
		} else {
			opts = append(opts, container.WithElasticsearch(es))
		}
	}

	c := container.New(cfg, logger, store, opts...)

	// An in-memory store starts empty, so give it the administrator up front.
	if cfg.StoreDriver == config.StoreDriverMemory {
		p, err := c.Auth.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.SeedAdminName)
		if err != nil {
			logger.WithError(err).Fatal("seed admin failed")
		}
		logger.WithField("email", p.Email).Info("seeded in-memory administrator")
	}

	r := router.NewEngine(c)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}
	if err := c.Auth.Wait(ctxShutdown); err != nil {
		logger.WithError(err).Warn("registration side effects still running at exit")
	}
	logger.Info("server exited properly")
}

// openStore builds the configured credential store. For postgres it connects
// the pool and applies migrations first.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.CredentialStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory credential store; data is lost on restart")
		return memory.NewCredentialStore(entity.DefaultScopes()...), func() {}, nil
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolConfig{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
		MaxConnIdleTime: cfg.DBMaxConnIdle,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := pginfra.RunMigrations(pginfra.OpenDB(pool), cfg.MigrationsDir, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}

	db := pginfra.OpenDB(pool)
	closeFn := func() {
		_ = db.Close()
		pool.Close()
	}
	return pginfra.NewCredentialStore(db), closeFn, nil
}
