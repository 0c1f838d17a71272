package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-coin-ledger/internal/adapter/http/middleware"
	redisStore "campus-coin-ledger/internal/adapter/storage/redis"
	"campus-coin-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(store middleware.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}

	r.POST("/test",
		func(c *gin.Context) {
			if sub := c.GetHeader("X-Test-Partner"); sub != "" {
				c.Set(middleware.CtxPrincipal, &domain.Principal{Subject: uuid.MustParse(sub), Role: domain.RolePartner})
			}
			c.Next()
		},
		middleware.RateLimiter(store, middleware.GroupCouponsValidate, rule, zerolog.Nop()),
		func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		},
	)
	return r
}

func newStore(t *testing.T) *redisStore.RateLimitStore {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func send(router *gin.Engine, partner string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "/test", nil)
	if partner != "" {
		req.Header.Set("X-Test-Partner", partner)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	for i := 0; i < 3; i++ {
		w := send(router, "")
		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, send(router, "").Code)
	}

	w := send(router, "")
	assert.Equal(t, 429, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_001")
}

func TestRateLimiter_KeyedByPrincipal(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))
	partnerA := uuid.NewString()
	partnerB := uuid.NewString()

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, send(router, partnerA).Code)
	}
	assert.Equal(t, 429, send(router, partnerA).Code)

	// Partner B has its own window.
	assert.Equal(t, 200, send(router, partnerB).Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int64, time.Duration) (*redisStore.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	router := setupRateLimitRouter(failingLimiter{})

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, send(router, "").Code)
	}
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	assert.Equal(t, int64(30), rules[middleware.GroupCouponsValidate].Limit)
	assert.Equal(t, time.Minute, rules[middleware.GroupCouponsValidate].Window)
	assert.Equal(t, int64(120), rules[middleware.GroupTransfers].Limit)
	assert.Equal(t, int64(30), rules[middleware.GroupRedemptions].Limit)
}
