package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/scopeguard/config"
	"github.com/oksasatya/scopeguard/internal/application"
	pginfra "github.com/oksasatya/scopeguard/internal/infrastructure/postgres"
	"github.com/oksasatya/scopeguard/pkg/helpers"
)

// Seeds the read/write/admin scopes and an administrator holding all three.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	if err := cfg.ValidateSeed(); err != nil {
		logger.WithError(err).Fatal("invalid seed configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolConfig{MaxConns: 2, MinConns: 0, MaxConnLifetime: time.Minute})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(pginfra.OpenDB(pool), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	db := pginfra.OpenDB(pool)
	defer func() { _ = db.Close() }()

	svc := application.NewAuthService(
		pginfra.NewCredentialStore(db),
		helpers.NewPasswordHasher(cfg.HashCost, cfg.HashWorkers),
		helpers.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.JWTIssuer),
		logger,
		cfg.DefaultScope,
	)

	p, err := svc.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.SeedAdminName)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s scopes=%v\n", p.ID, p.Email, p.Scopes)
}
