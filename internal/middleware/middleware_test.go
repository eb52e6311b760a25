package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, "ada", 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newProtected() *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(secret), RequireRole("ADMIN"))
	g.GET("/who", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"id":   c.Get(ContextUserID),
			"role": c.Get(ContextRole),
			"name": c.Get(ContextName),
		})
	})
	return e
}

func do(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/who", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := newProtected()

	rec := do(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = do(e, "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, bearer(t, 7, "STUDENT"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, bearer(t, 7, "ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"ADMIN","name":"ada"}`, rec.Body.String())
}

func TestActorKey(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", actorKey(c))
	c.Set(ContextUserID, uint64(42))
	assert.Equal(t, "42", actorKey(c))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "nope") })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "abc")
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(204), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["route"])
}

func TestCacheKeyAndPayload(t *testing.T) {
	e := echo.New()
	mk := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/sites/:id")
		return c
	}
	cfg := config.CacheConfig{Prefix: "sites-cache", KeyStrategy: "route_query"}
	a, b := cacheKeyFrom(cfg, mk("/v1/sites/1?x=1")), cacheKeyFrom(cfg, mk("/v1/sites/2?x=1"))
	assert.NotEqual(t, a, b, "different ids must not share an entry")
	assert.Equal(t, a, cacheKeyFrom(cfg, mk("/v1/sites/1?x=1")))
	assert.Contains(t, a, "sites-cache:")

	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)
	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestDisabledRedisMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil, zap.NewNop()))
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop()))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "hi") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "hi", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))

	var p *CachePurger
	assert.NotPanics(t, func() { p.Purge(t.Context()) })
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/locations/3/reservations", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/locations/:id/reservations")
	c.Set(ContextUserID, uint64(9))

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:POST /v1/locations/:id/reservations",
		buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
	assert.Equal(t, int64(3), asInt64("3"))
	assert.Equal(t, int64(1), asInt64(int64(1)))
}
