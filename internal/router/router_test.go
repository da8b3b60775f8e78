package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/scopeguard/config"
	"github.com/oksasatya/scopeguard/internal/container"
	"github.com/oksasatya/scopeguard/internal/domain/entity"
	"github.com/oksasatya/scopeguard/internal/infrastructure/memory"
	"github.com/oksasatya/scopeguard/pkg/helpers"
	"github.com/oksasatya/scopeguard/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:             "scopeguard",
		Env:                 "development",
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		JWTIssuer:           "scopeguard",
		AccessTTL:           30 * time.Minute,
		DefaultScope:        []string{entity.ScopeRead},
		DebugMetricsEnabled: true,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestServer(t *testing.T, cfg *config.Config, opts ...container.Option) (*gin.Engine, *container.Container, *clock) {
	t.Helper()
	clk := &clock{t: time.Now()}
	opts = append([]container.Option{
		container.WithHasher(helpers.NewPasswordHasher(bcrypt.MinCost, 2)),
		container.WithTokenManager(helpers.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.JWTIssuer, helpers.WithClock(clk.now))),
	}, opts...)
	c := container.New(cfg, helpers.NewDiscardLogger(), memory.NewCredentialStore(entity.DefaultScopes()...), opts...)
	return NewEngine(c), c, clk
}

func call(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScenario_RegisterLoginAndScopes(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())

	w := call(r, http.MethodPost, "/api/register", `{"full_name":"A","email":"a@example.com","password":"pw123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/token", `{"email":"a@example.com","password":"pw123"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/me", "", tok.AccessToken).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/admin/users/search?q=a", "", tok.AccessToken).Code)
}

func TestScenario_ExpiredTokenIsRejected(t *testing.T) {
	r, _, clk := newTestServer(t, testConfig())
	require.Equal(t, http.StatusCreated,
		call(r, http.MethodPost, "/api/register", `{"full_name":"A","email":"a@example.com","password":"pw123"}`, "").Code)

	w := call(r, http.MethodPost, "/api/token", `{"email":"a@example.com","password":"pw123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))

	clk.t = clk.t.Add(31 * time.Minute)
	w = call(r, http.MethodGet, "/api/me", "", tok.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestScenario_RegisterIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r, _, _ := newTestServer(t, cfg, container.WithRedis(rdb))

	var last int
	for i := 0; i < 6; i++ {
		last = call(r, http.MethodPost, "/api/register", `{"email":"bad"}`, "").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestHealthAndDebug(t *testing.T) {
	r, _, _ := newTestServer(t, testConfig())
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/debug/vars", "", "").Code)

	cfg := testConfig()
	cfg.DebugMetricsEnabled = false
	r, _, _ = newTestServer(t, cfg)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/api/debug/vars", "", "").Code)
}

func TestRegistry_UseAppliesToAPIOnly(t *testing.T) {
	engine := gin.New()
	reg := NewRegistry(engine)

	var seen []string
	reg.Use(func(c *gin.Context) {
		seen = append(seen, c.FullPath())
		c.Next()
	})
	reg.Add(moduleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}))
	reg.RegisterAll()

	assert.Equal(t, http.StatusNoContent, call(engine, http.MethodGet, "/api/ping", "", "").Code)
	assert.Equal(t, http.StatusOK, call(engine, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, []string{"/api/ping"}, seen)
}

type moduleFunc func(rg *gin.RouterGroup)

func (f moduleFunc) Register(rg *gin.RouterGroup) { f(rg) }

func TestEngine_HTTPLogSkipsHealthz(t *testing.T) {
	var buf strings.Builder
	cfg := testConfig()
	cfg.HTTPLogEnabled = true
	logger := helpers.NewDiscardLogger()
	logger.SetOutput(&buf)

	c := container.New(cfg, logger, memory.NewCredentialStore(entity.DefaultScopes()...),
		container.WithHasher(helpers.NewPasswordHasher(bcrypt.MinCost, 1)))
	r := NewEngine(c)

	call(r, http.MethodGet, "/healthz", "", "")
	assert.Empty(t, buf.String())

	call(r, http.MethodGet, "/api/me", "", "")
	assert.Contains(t, buf.String(), "/api/me")
}
