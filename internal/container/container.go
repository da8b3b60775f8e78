// Package container builds the application's object graph once, in main,
// and hands it to the router. Nothing in here is global.
package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/scopeguard/config"
	"github.com/oksasatya/scopeguard/internal/application"
	"github.com/oksasatya/scopeguard/internal/domain/repository"
	"github.com/oksasatya/scopeguard/internal/infrastructure/search"
	"github.com/oksasatya/scopeguard/pkg/helpers"
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Store  repository.CredentialStore

	// Optional infrastructure; nil disables the feature.
	Redis     *redis.Client
	Publisher *helpers.RabbitPublisher
	ES        *elasticsearch.Client

	Hasher *helpers.PasswordHasher
	Tokens *helpers.TokenManager
	Auth   *application.AuthService
}

type Option func(*Container)

func WithRedis(rdb *redis.Client) Option { return func(c *Container) { c.Redis = rdb } }

func WithPublisher(p *helpers.RabbitPublisher) Option {
	return func(c *Container) { c.Publisher = p }
}

func WithElasticsearch(es *elasticsearch.Client) Option { return func(c *Container) { c.ES = es } }

// WithTokenManager replaces the token manager built from config (tests pin the clock).
func WithTokenManager(tm *helpers.TokenManager) Option { return func(c *Container) { c.Tokens = tm } }

func WithHasher(h *helpers.PasswordHasher) Option { return func(c *Container) { c.Hasher = h } }

func New(cfg *config.Config, logger *logrus.Logger, store repository.CredentialStore, opts ...Option) *Container {
	c := &Container{Config: cfg, Logger: logger, Store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.Hasher == nil {
		c.Hasher = helpers.NewPasswordHasher(cfg.HashCost, cfg.HashWorkers)
	}
	if c.Tokens == nil {
		c.Tokens = helpers.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.JWTIssuer)
	}

	svcOpts := []application.Option{application.WithActivationRequired(cfg.RequireActivation)}
	if c.Publisher != nil {
		svcOpts = append(svcOpts, application.WithEvents(c.Publisher))
	}
	if c.ES != nil {
		svcOpts = append(svcOpts, application.WithDirectory(search.NewUserDirectory(c.ES, cfg.ESUsersIndex, cfg.ElasticsearchTimeout)))
	}
	c.Auth = application.NewAuthService(c.Store, c.Hasher, c.Tokens, logger, cfg.DefaultScope, svcOpts...)
	return c
}
