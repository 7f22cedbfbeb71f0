package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccessKey(t *testing.T) {
	r := gin.New()
	r.GET("/x", AccessKey("s3cret"), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{"Missing", "", http.StatusUnauthorized},
		{"Wrong", "nope", http.StatusUnauthorized},
		{"Prefix", "s3cre", http.StatusUnauthorized},
		{"Different case", "S3CRET", http.StatusUnauthorized},
		{"Exact", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.key != "" {
				headers[AccessKeyHeader] = tt.key
			}
			w := perform(r, http.MethodGet, "/x", headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("Empty secret rejects everything", func(t *testing.T) {
		r := gin.New()
		r.GET("/x", AccessKey(""), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		w := perform(r, http.MethodGet, "/x", map[string]string{AccessKeyHeader: "anything"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, http.MethodGet, "/x", nil).Code)
}

func TestIPRateLimiter_PerClient(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	a := l.GetLimiter("10.0.0.1")
	assert.Same(t, a, l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, a, l.GetLimiter("10.0.0.2"))
	assert.Equal(t, 2, l.ips.ItemCount())
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/x", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"n": calls})
	})
	r.GET("/fail", func(c *gin.Context) {
		calls++
		c.Status(http.StatusServiceUnavailable)
	})

	w := perform(r, http.MethodGet, "/x", nil)
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	first := w.Body.String()

	w = perform(r, http.MethodGet, "/x", nil)
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
	assert.Equal(t, first, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	perform(r, http.MethodGet, "/fail", nil)
	perform(r, http.MethodGet, "/fail", nil)
	assert.Equal(t, 3, calls, "errors are not cached")
}

func TestCORS(t *testing.T) {
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }

	t.Run("Wildcard", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"*"}))
		r.GET("/x", handler)

		w := perform(r, http.MethodGet, "/x", map[string]string{"Origin": "https://coop.example"})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), AccessKeyHeader)
	})

	t.Run("Preflight", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"https://coop.example"}))
		r.PUT("/x", handler)

		w := perform(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://coop.example"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://coop.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Foreign origin gets no headers", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"https://coop.example"}))
		r.GET("/x", handler)

		w := perform(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Origin checker", func(t *testing.T) {
		check := OriginChecker([]string{"https://coop.example/"})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.True(t, check(req))
		req.Header.Set("Origin", "https://coop.example")
		assert.True(t, check(req))
		req.Header.Set("Origin", "https://evil.example")
		assert.False(t, check(req))
	})
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/ok", map[string]string{AccessKeyHeader: "s3cret"})
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = perform(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: "abc"})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	w = perform(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.All()
	assert.Len(t, logs.FilterMessage("http request").All(), 3)
	assert.Len(t, logs.FilterMessage("panic recovered in HTTP handler").All(), 1)
	for _, e := range entries {
		for _, f := range e.Context {
			assert.NotEqual(t, "s3cret", f.String)
		}
	}
}
